package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"assignments/internal/model"
	"assignments/internal/storage/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	teacher      = model.NewUserContext("t1", model.RoleTeacher)
	otherTeacher = model.NewUserContext("t2", model.RoleTeacher)
	student      = model.NewUserContext("s1", model.RoleStudent)
	student2     = model.NewUserContext("s2", model.RoleStudent)
)

// fixedNow момент, от которого считаются дедлайны в тестах
var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*AssignmentService, *repository.AssignmentMemoryRepository) {
	t.Helper()
	repo := repository.NewAssignmentMemoryRepository()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewAssignmentService(repo, zap.NewNop(), opts...), repo
}

func makeCreate(title string, students ...string) model.AssignmentCreate {
	if students == nil {
		students = []string{}
	}
	return model.AssignmentCreate{
		Title:       title,
		Description: "Desc",
		Content:     "Text",
		Deadline:    fixedNow.Add(7 * 24 * time.Hour),
		Students:    students,
	}
}

func TestNewAssignmentID(t *testing.T) {
	pattern := regexp.MustCompile(`^as-[0-9a-f]{12}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewAssignmentID()
		assert.Regexp(t, pattern, id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 1000)
}

func TestCreateAssignment_RequiresTeacher(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.CreateAssignment(context.Background(), makeCreate("Homework"), student)
	assert.ErrorIs(t, err, model.ErrForbidden)
	assert.Equal(t, 0, repo.Len())
}

func TestCreateAssignment_OK(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateAssignment(ctx, makeCreate("Homework", "s1", "s2", "s1"), teacher)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	saved, err := repo.FindOne(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "t1", saved.TeacherID)
	assert.Equal(t, []string{"s1", "s2"}, saved.Students)
	assert.Equal(t, model.AssignmentStatusOpen, saved.Status)
	assert.Nil(t, saved.CompletedAt)
	assert.Equal(t, fixedNow.Truncate(time.Millisecond), saved.CreatedAt)
	assert.Equal(t, time.UTC, saved.CreatedAt.Location())
}

func TestCreateAssignment_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	data := makeCreate("")
	data.Deadline = time.Time{}

	_, err := svc.CreateAssignment(context.Background(), data, teacher)
	var verrs model.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
}

func TestCreateAssignment_RegeneratesOnCollision(t *testing.T) {
	ids := []string{"as-taken", "as-taken", "as-fresh"}
	next := 0
	svc, repo := newTestService(t, WithIDGenerator(func() string {
		id := ids[next]
		next++
		return id
	}))
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.Assignment{AssignmentID: "as-taken", TeacherID: "t9", Students: []string{}})
	require.NoError(t, err)

	id, err := svc.CreateAssignment(ctx, makeCreate("Homework"), teacher)
	require.NoError(t, err)
	assert.Equal(t, "as-fresh", id)
	assert.Equal(t, 3, next)
}

func TestCreateAssignment_GivesUpAfterRepeatedCollisions(t *testing.T) {
	calls := 0
	svc, repo := newTestService(t, WithIDGenerator(func() string {
		calls++
		return "as-taken"
	}))
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.Assignment{AssignmentID: "as-taken", TeacherID: "t9", Students: []string{}})
	require.NoError(t, err)

	_, err = svc.CreateAssignment(ctx, makeCreate("Homework"), teacher)
	assert.ErrorIs(t, err, model.ErrDuplicateID)
	assert.Equal(t, maxIDAttempts, calls)
}

func TestListAssignments(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a1, err := svc.CreateAssignment(ctx, makeCreate("A", "s1"), teacher)
	require.NoError(t, err)
	a2, err := svc.CreateAssignment(ctx, makeCreate("B", "s2"), teacher)
	require.NoError(t, err)
	_, err = svc.CreateAssignment(ctx, makeCreate("C", "s1"), otherTeacher)
	require.NoError(t, err)

	t.Run("teacher sees own", func(t *testing.T) {
		items, err := svc.ListAssignments(ctx, teacher)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a1, a2}, idsOf(items))
	})

	t.Run("student sees assigned", func(t *testing.T) {
		items, err := svc.ListAssignments(ctx, student2)
		require.NoError(t, err)
		assert.Equal(t, []string{a2}, idsOf(items))
	})

	t.Run("other role gets empty list", func(t *testing.T) {
		items, err := svc.ListAssignments(ctx, model.NewUserContext("x1", "admin"))
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("teacher and student gets teacher view", func(t *testing.T) {
		both := model.NewUserContext("t1", model.RoleStudent, model.RoleTeacher)
		items, err := svc.ListAssignments(ctx, both)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a1, a2}, idsOf(items))
	})
}

func TestVisibilityScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateAssignment(ctx, makeCreate("Essay", "s1", "s2"), teacher)
	require.NoError(t, err)

	got, err := svc.GetAssignment(ctx, id, teacher)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentStatusOpen, got.Status)
	assert.Nil(t, got.CompletedAt)

	forTeacher, err := svc.ListAssignments(ctx, teacher)
	require.NoError(t, err)
	assert.Contains(t, idsOf(forTeacher), id)

	forS1, err := svc.ListAssignments(ctx, student)
	require.NoError(t, err)
	assert.Contains(t, idsOf(forS1), id)

	forS3, err := svc.ListAssignments(ctx, model.NewUserContext("s3", model.RoleStudent))
	require.NoError(t, err)
	assert.NotContains(t, idsOf(forS3), id)
}

func TestGetAssignment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateAssignment(ctx, makeCreate("X", "s1"), teacher)
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      string
		user    model.UserContext
		wantErr error
	}{
		{name: "owner teacher", id: id, user: teacher},
		{name: "other teacher", id: id, user: otherTeacher, wantErr: model.ErrForbidden},
		{name: "assigned student", id: id, user: student},
		{name: "unassigned student", id: id, user: student2, wantErr: model.ErrForbidden},
		{name: "missing for teacher", id: "as-missing", user: teacher, wantErr: model.ErrNotFound},
		{name: "not found precedes forbidden", id: "as-missing", user: student2, wantErr: model.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GetAssignment(ctx, tt.id, tt.user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, got.AssignmentID)
		})
	}
}

func TestDeleteAssignment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("requires teacher", func(t *testing.T) {
		_, err := svc.DeleteAssignment(ctx, "non-existent", student)
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("deletes and then reports missing", func(t *testing.T) {
		id, err := svc.CreateAssignment(ctx, makeCreate("X"), teacher)
		require.NoError(t, err)

		deleted, err := svc.DeleteAssignment(ctx, id, teacher)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = svc.DeleteAssignment(ctx, id, teacher)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("any teacher may delete", func(t *testing.T) {
		id, err := svc.CreateAssignment(ctx, makeCreate("X"), teacher)
		require.NoError(t, err)

		deleted, err := svc.DeleteAssignment(ctx, id, otherTeacher)
		require.NoError(t, err)
		assert.True(t, deleted)
	})
}

func TestSweepDeadlines_OnceOnly(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	deadline := fixedNow.Add(-time.Hour).Truncate(time.Millisecond)
	_, err := repo.Create(ctx, &model.Assignment{
		AssignmentID: "as-late",
		TeacherID:    "t1",
		Deadline:     deadline,
		Students:     []string{"s1"},
		Status:       model.AssignmentStatusOpen,
		CreatedAt:    deadline.Add(-time.Hour),
	})
	require.NoError(t, err)

	now := deadline.Add(time.Second)
	closed, err := svc.SweepDeadlines(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []model.ClosedAssignment{{AssignmentID: "as-late", TeacherID: "t1"}}, closed)

	got, err := repo.FindOne(ctx, "as-late")
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, now, *got.CompletedAt)

	again, err := svc.SweepDeadlines(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestSweepDeadlines_TruncatesToMilliseconds(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.Assignment{
		AssignmentID: "as-1",
		TeacherID:    "t1",
		Deadline:     fixedNow.Add(-time.Minute),
		Students:     []string{},
		Status:       model.AssignmentStatusOpen,
	})
	require.NoError(t, err)

	local := fixedNow.In(time.FixedZone("UTC+3", 3*60*60))
	_, err = svc.SweepDeadlines(ctx, local)
	require.NoError(t, err)

	got, err := repo.FindOne(ctx, "as-1")
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, fixedNow.Truncate(time.Millisecond), *got.CompletedAt)
	assert.Equal(t, time.UTC, got.CompletedAt.Location())
}

func idsOf(items []model.Assignment) []string {
	ids := make([]string, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.AssignmentID)
	}
	return ids
}
