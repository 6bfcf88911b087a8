package sqlxrepos_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/expense"
	"github.com/trezcool/kampus/core/grade"
	"github.com/trezcool/kampus/core/user"
	"github.com/trezcool/kampus/storage/database/seed"
	"github.com/trezcool/kampus/storage/database/sqlx"
	"github.com/trezcool/kampus/tests"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	return validate
}

func Test_seed(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	repos := seed.Repositories{
		Courses: sqlxrepos.NewCourseRepository(db),
		Grades:  sqlxrepos.NewGradeRepository(db),
		Dating:  sqlxrepos.NewDatingRepository(db),
	}

	// twice: seeding is idempotent
	require.NoError(t, seed.Run(ctx, db, repos))
	require.NoError(t, seed.Run(ctx, db, repos))

	courses, err := repos.Courses.QueryCourses(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, courses, len(seed.Courses()))

	profiles, err := repos.Dating.QueryProfiles(ctx, "")
	require.NoError(t, err)
	assert.Len(t, profiles, len(seed.Profiles()))

	tr, err := grade.NewService(repos.Grades, newValidator()).Transcript(ctx, "demo-student")
	require.NoError(t, err)
	assert.Equal(t, 8.68, tr.CGPA)
}

func Test_userRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(db)

	usr := testutil.CreateUser(t, repo, "stu-1", "Asha Rao", "asha@kampus.test", user.RoleStudent)
	assert.Empty(t, usr.AvatarURL)

	usr.Name = "Asha R."
	usr.AvatarURL = "https://example.com/asha.png"
	usr.UpdatedAt = usr.UpdatedAt.Add(time.Minute)
	updated, err := repo.UpsertUser(ctx, usr)
	require.NoError(t, err)
	assert.Equal(t, "Asha R.", updated.Name)
	assert.Equal(t, usr.AvatarURL, updated.AvatarURL)
	assert.WithinDuration(t, usr.CreatedAt, updated.CreatedAt, time.Millisecond)

	_, err = repo.GetUser(ctx, "nope")
	assert.Equal(t, user.ErrNotFound, err)
}

func Test_courseService_concurrentEnrollments(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	conf := core.NewTestConfig()
	svc := course.NewService(db, sqlxrepos.NewCourseRepository(db), newValidator(), conf)

	c, err := svc.Create(ctx, course.NewCourse{Code: "CS351", Name: "Compilers", Credits: 3, Type: string(course.TypeElective), Seats: 3})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		conflicts int
	)
	for _, id := range []string{"s1", "s2", "s3", "s4", "s5", "s6"} {
		wg.Add(1)
		go func(studentID string) {
			defer wg.Done()
			_, err := svc.Enroll(ctx, studentID, c.ID)
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				winners = append(winners, studentID)
			case course.ErrNoSeats:
				conflicts++
			default:
				t.Errorf("Enroll() unexpected error = %v", err)
			}
		}(id)
	}
	wg.Wait()
	require.Len(t, winners, 3)
	assert.Equal(t, 3, conflicts)

	c, err = svc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Seats.Available)

	reg, err := svc.Drop(ctx, winners[0], c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reg.CurrentCredits())

	c, err = svc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Seats.Available)
}

func Test_expenseRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewExpenseRepository(db)
	now := time.Now().UTC().Truncate(time.Millisecond)

	g, err := repo.CreateGroup(ctx, expense.Group{
		ID: "grp-1", Name: "Goa trip", OwnerID: "stu-1", CreatedAt: now,
		Members: []expense.Member{{UserID: "stu-1", Name: "Asha", JoinedAt: now}},
	})
	require.NoError(t, err)
	require.NoError(t, repo.AddMember(ctx, g.ID, expense.Member{UserID: "stu-2", Name: "Ravi", JoinedAt: now}))
	assert.Equal(t, expense.ErrAlreadyMember, repo.AddMember(ctx, g.ID, expense.Member{UserID: "stu-2", Name: "Ravi", JoinedAt: now}))

	e, err := repo.CreateExpense(ctx, expense.Expense{
		ID: "exp-1", GroupID: g.ID, Description: "Dinner", Amount: 300, PayerID: "stu-1", CreatedAt: now,
		Splits: []expense.Split{
			{MemberID: "stu-1", Amount: 150, Settled: true},
			{MemberID: "stu-2", Amount: 150},
		},
	})
	require.NoError(t, err)
	require.NoError(t, repo.SettleSplit(ctx, e.ID, "stu-2"))

	got, err := repo.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	for _, s := range got.Splits {
		assert.True(t, s.Settled)
	}

	g, err = repo.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, g.Members, 2)
}
