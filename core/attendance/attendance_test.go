package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultThresholds = Thresholds{Shortage: 75, Good: 85}

func TestPercentage(t *testing.T) {
	tests := []struct {
		attended, total, want int
	}{
		{35, 42, 83},
		{0, 0, 100},
		{0, 10, 0},
		{10, 10, 100},
		{1, 3, 33},
		{2, 3, 67},
		{3, 4, 75},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percentage(tt.attended, tt.total), "%d/%d", tt.attended, tt.total)
	}
}

func TestThresholds_Standing(t *testing.T) {
	tests := []struct {
		pct  int
		want Standing
	}{
		{100, StandingGood},
		{85, StandingGood},
		{84, StandingBorderline},
		{83, StandingBorderline},
		{75, StandingBorderline},
		{74, StandingShortage},
		{0, StandingShortage},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, defaultThresholds.Standing(tt.pct), "pct %d", tt.pct)
	}

	assert.Equal(t, StandingBorderline, defaultThresholds.Standing(Percentage(35, 42)))
}

func TestClassesNeededAndCanMiss(t *testing.T) {
	tests := []struct {
		name                 string
		attended, total      int
		wantNeeded, wantMiss int
	}{
		{name: "borderline", attended: 35, total: 42, wantNeeded: 0, wantMiss: 4},
		{name: "shortage", attended: 20, total: 30, wantNeeded: 10, wantMiss: 0},
		{name: "nothing held", attended: 0, total: 0, wantNeeded: 0, wantMiss: 0},
		{name: "perfect", attended: 12, total: 12, wantNeeded: 0, wantMiss: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			needed := ClassesNeeded(tt.attended, tt.total, 75)
			miss := CanMiss(tt.attended, tt.total, 75)
			assert.Equal(t, tt.wantNeeded, needed)
			assert.Equal(t, tt.wantMiss, miss)

			assert.GreaterOrEqual(t, Percentage(tt.attended+needed, tt.total+needed), 75)
			if needed > 0 {
				assert.Less(t, Percentage(tt.attended+needed-1, tt.total+needed-1), 75)
			}
			if tt.total > 0 && miss >= 0 && Percentage(tt.attended, tt.total) >= 75 {
				assert.GreaterOrEqual(t, Percentage(tt.attended, tt.total+miss), 75)
				assert.Less(t, Percentage(tt.attended, tt.total+miss+1), 75)
			}
		})
	}

	assert.Equal(t, -1, ClassesNeeded(0, 1, 100+1))
}

func TestRecord_Attended(t *testing.T) {
	tests := []struct {
		status       Status
		verification Verification
		want         bool
	}{
		{StatusPresent, VerificationApproved, true},
		{StatusAbsent, VerificationApproved, false},
		{StatusMedical, VerificationApproved, true},
		{StatusMedical, VerificationPending, false},
		{StatusOD, VerificationRejected, false},
		{StatusOD, VerificationApproved, true},
	}
	for _, tt := range tests {
		r := Record{Status: tt.status, Verification: tt.verification}
		assert.Equal(t, tt.want, r.Attended(), "%s/%s", tt.status, tt.verification)
	}
}

func TestSummarize(t *testing.T) {
	var records []Record
	add := func(courseID, code string, n int, status Status, verification Verification) {
		for i := 0; i < n; i++ {
			records = append(records, Record{CourseID: courseID, CourseCode: code, Status: status, Verification: verification})
		}
	}
	add("c2", "MA201", 33, StatusPresent, VerificationApproved)
	add("c2", "MA201", 2, StatusMedical, VerificationApproved)
	add("c2", "MA201", 7, StatusAbsent, VerificationApproved)
	add("c1", "CS101", 6, StatusPresent, VerificationApproved)
	add("c1", "CS101", 3, StatusAbsent, VerificationApproved)
	add("c1", "CS101", 1, StatusOD, VerificationPending)

	summaries := Summarize(records, defaultThresholds)
	require.Len(t, summaries, 2)

	cs := summaries[0]
	assert.Equal(t, "CS101", cs.CourseCode)
	assert.Equal(t, 6, cs.Attended)
	assert.Equal(t, 10, cs.Total)
	assert.Equal(t, 60, cs.Percentage)
	assert.Equal(t, StandingShortage, cs.Standing)
	assert.Equal(t, 1, cs.PendingClaims)
	assert.Equal(t, 6, cs.ClassesNeeded)

	ma := summaries[1]
	assert.Equal(t, "MA201", ma.CourseCode)
	assert.Equal(t, 35, ma.Attended)
	assert.Equal(t, 42, ma.Total)
	assert.Equal(t, 83, ma.Percentage)
	assert.Equal(t, StandingBorderline, ma.Standing)
}
