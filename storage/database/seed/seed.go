// Package seed loads the demo catalog, results and dating profiles.
package seed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/dating"
	"github.com/trezcool/kampus/core/grade"
)

// DemoStudentID owns the seeded results.
const DemoStudentID = "demo-student"

type Repositories struct {
	Courses course.Repository
	Grades  grade.Repository
	Dating  dating.Repository
}

var seededAt = time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

func slots(day1, day2, start, end, location string) []course.Slot {
	return []course.Slot{
		{Day: day1, Start: start, End: end, Location: location},
		{Day: day2, Start: start, End: end, Location: location},
	}
}

func Courses() []course.Course {
	courses := []course.Course{
		{Code: "CS101", Name: "Data Structures", Credits: 4, Type: course.TypeCore, Seats: course.Seats{Total: 60, Available: 12}, Schedule: slots("Mon", "Wed", "09:00", "10:30", "LH-1"), Faculty: "Dr. Rao"},
		{Code: "CS102", Name: "Discrete Mathematics", Credits: 3, Type: course.TypeCore, Seats: course.Seats{Total: 60, Available: 20}, Schedule: slots("Tue", "Thu", "09:00", "10:30", "LH-2"), Faculty: "Dr. Iyer"},
		{Code: "CS201", Name: "Algorithms", Credits: 4, Type: course.TypeCore, Seats: course.Seats{Total: 50, Available: 8}, Schedule: slots("Mon", "Wed", "11:00", "12:30", "LH-3"), Prerequisites: []string{"CS101"}, Faculty: "Dr. Menon"},
		{Code: "CS202", Name: "Database Systems", Credits: 4, Type: course.TypeCore, Seats: course.Seats{Total: 50, Available: 0}, Schedule: slots("Tue", "Thu", "11:00", "12:30", "LH-1"), Prerequisites: []string{"CS101"}, Faculty: "Dr. Kapoor"},
		{Code: "CS301", Name: "Operating Systems", Credits: 4, Type: course.TypeCore, Seats: course.Seats{Total: 45, Available: 15}, Schedule: slots("Mon", "Thu", "14:00", "15:30", "LH-4"), Prerequisites: []string{"CS201"}, Faculty: "Dr. Sharma"},
		{Code: "CS302", Name: "Computer Networks", Credits: 3, Type: course.TypeCore, Seats: course.Seats{Total: 45, Available: 10}, Schedule: slots("Tue", "Fri", "14:00", "15:30", "LH-2"), Faculty: "Dr. Nair"},
		{Code: "CS351", Name: "Machine Learning", Credits: 3, Type: course.TypeElective, Seats: course.Seats{Total: 40, Available: 5}, Schedule: slots("Wed", "Fri", "16:00", "17:30", "LH-5"), Prerequisites: []string{"MA201"}, Faculty: "Dr. Bose"},
		{Code: "CS352", Name: "Computer Graphics", Credits: 3, Type: course.TypeElective, Seats: course.Seats{Total: 30, Available: 18}, Schedule: slots("Mon", "Fri", "16:00", "17:30", "LH-6"), Faculty: "Dr. Das"},
		{Code: "CS391", Name: "Systems Lab", Credits: 2, Type: course.TypeLab, Seats: course.Seats{Total: 30, Available: 6}, Schedule: []course.Slot{{Day: "Sat", Start: "09:00", End: "12:00", Location: "Lab-2"}}, Prerequisites: []string{"CS301"}, Faculty: "Dr. Sharma"},
		{Code: "CS499", Name: "Capstone Project", Credits: 6, Type: course.TypeProject, Seats: course.Seats{Total: 20, Available: 20}, Schedule: []course.Slot{}, Faculty: "Dr. Menon"},
		{Code: "MA201", Name: "Probability and Statistics", Credits: 3, Type: course.TypeCore, Seats: course.Seats{Total: 80, Available: 30}, Schedule: slots("Wed", "Fri", "09:00", "10:30", "LH-7"), Faculty: "Dr. Gupta"},
		{Code: "HS101", Name: "Technical Communication", Credits: 2, Type: course.TypeElective, Seats: course.Seats{Total: 100, Available: 40}, Schedule: []course.Slot{{Day: "Thu", Start: "16:00", End: "17:00", Location: "LH-8"}}, Faculty: "Prof. Sen"},
	}
	for i := range courses {
		courses[i].ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("course/"+courses[i].Code)).String()
		courses[i].CreatedAt = seededAt
		if courses[i].Prerequisites == nil {
			courses[i].Prerequisites = []string{}
		}
	}
	return courses
}

func Results() []grade.CourseResult {
	type row struct {
		semester int
		code     string
		name     string
		credits  int
		marks    float64
	}
	rows := []row{
		{1, "CS101", "Data Structures", 4, 86},
		{1, "CS102", "Discrete Mathematics", 4, 92},
		{1, "MA101", "Calculus", 3, 74},
		{1, "HS101", "Technical Communication", 2, 81},
		{2, "CS201", "Algorithms", 4, 78},
		{2, "MA201", "Probability and Statistics", 3, 65},
		{2, "CS291", "Programming Lab", 2, 95},
	}
	results := make([]grade.CourseResult, 0, len(rows))
	for _, r := range rows {
		letter, point := grade.For(r.marks)
		results = append(results, grade.CourseResult{
			ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte("result/"+r.code)).String(),
			StudentID:  DemoStudentID,
			Semester:   r.semester,
			CourseCode: r.code,
			CourseName: r.name,
			Credits:    r.credits,
			Marks:      r.marks,
			Grade:      letter,
			GradePoint: point,
			RecordedAt: seededAt,
		})
	}
	return results
}

func Profiles() []dating.Profile {
	profiles := []dating.Profile{
		{Name: "Aanya", Age: 20, Interests: []string{"music", "photography"}, Bio: "Second year, always at the canteen."},
		{Name: "Rohan", Age: 21, Interests: []string{"football", "movies"}, Bio: "Captain of the hostel football team."},
		{Name: "Meera", Age: 19, Interests: []string{"books", "chai"}, Bio: "Library regular. Ask me for recommendations."},
		{Name: "Kabir", Age: 22, Interests: []string{"coding", "fests"}, Bio: "Organising this year's tech fest."},
		{Name: "Ishita", Age: 20, Interests: []string{"dance", "travel"}, Bio: "Cultural committee, weekend trekker."},
		{Name: "Arjun", Age: 21, Interests: []string{"guitar", "coffee"}, Bio: "Open mic every Friday."},
	}
	for i := range profiles {
		profiles[i].ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("profile/"+profiles[i].Name)).String()
		profiles[i].Images = []string{"https://picsum.photos/seed/" + profiles[i].Name + "/400/600"}
		profiles[i].CreatedAt = seededAt.Add(time.Duration(i) * time.Minute)
	}
	return profiles
}

// Run saves the seed records. Running it again updates courses and results in place.
func Run(ctx context.Context, db core.DB, repos Repositories) error {
	return core.RunInTx(ctx, db, func(exec core.DBExecutor) error {
		for _, c := range Courses() {
			if _, _, err := repos.Courses.SaveCourse(ctx, c, exec); err != nil {
				return errors.Wrapf(err, "seeding course %s", c.Code)
			}
		}
		for _, r := range Results() {
			if _, err := repos.Grades.SaveResult(ctx, r, exec); err != nil {
				return errors.Wrapf(err, "seeding result %s", r.CourseCode)
			}
		}

		existing, err := repos.Dating.QueryProfiles(ctx, "", exec)
		if err != nil {
			return errors.Wrap(err, "querying profiles")
		}
		seeded := make(map[string]struct{}, len(existing))
		for _, p := range existing {
			seeded[p.ID] = struct{}{}
		}
		for _, p := range Profiles() {
			if _, ok := seeded[p.ID]; ok {
				continue
			}
			if _, err = repos.Dating.CreateProfile(ctx, p, exec); err != nil {
				return errors.Wrapf(err, "seeding profile %s", p.Name)
			}
		}
		return nil
	})
}
