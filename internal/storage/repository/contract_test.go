package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"assignments/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// base момент отсчета, усеченный до миллисекунд как в сервисе
var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newAssignment(id, teacherID string, deadline time.Time, students ...string) *model.Assignment {
	if students == nil {
		students = []string{}
	}
	return &model.Assignment{
		AssignmentID: id,
		TeacherID:    teacherID,
		Title:        "Title " + id,
		Description:  "Description",
		Content:      "Content",
		Deadline:     deadline,
		Students:     students,
		Status:       model.AssignmentStatusOpen,
		CreatedAt:    base,
	}
}

// runRepositoryContract проверяет поведение, общее для всех движков хранилища
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) model.AssignmentRepository) {
	ctx := context.Background()

	t.Run("create and find one", func(t *testing.T) {
		repo := newRepo(t)
		a := newAssignment("as-1", "t1", base.Add(time.Hour), "s1", "s2")

		id, err := repo.Create(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, "as-1", id)

		got, err := repo.FindOne(ctx, "as-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "t1", got.TeacherID)
		assert.Equal(t, []string{"s1", "s2"}, got.Students)
		assert.Equal(t, model.AssignmentStatusOpen, got.Status)
		assert.Nil(t, got.CompletedAt)
		assert.True(t, got.Deadline.Equal(a.Deadline))
	})

	t.Run("find one missing", func(t *testing.T) {
		repo := newRepo(t)
		got, err := repo.FindOne(ctx, "as-missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("duplicate id", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Create(ctx, newAssignment("as-1", "t1", base))
		require.NoError(t, err)

		_, err = repo.Create(ctx, newAssignment("as-1", "t2", base))
		assert.ErrorIs(t, err, model.ErrDuplicateID)
	})

	t.Run("find for teacher and student", func(t *testing.T) {
		repo := newRepo(t)
		for _, a := range []*model.Assignment{
			newAssignment("as-1", "t1", base, "s1"),
			newAssignment("as-2", "t1", base, "s2"),
			newAssignment("as-3", "t2", base, "s1", "s2"),
		} {
			_, err := repo.Create(ctx, a)
			require.NoError(t, err)
		}

		teacher, err := repo.FindForTeacher(ctx, "t1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"as-1", "as-2"}, ids(teacher))

		student, err := repo.FindForStudent(ctx, "s1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"as-1", "as-3"}, ids(student))

		none, err := repo.FindForStudent(ctx, "s9")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Create(ctx, newAssignment("as-1", "t1", base))
		require.NoError(t, err)

		deleted, err := repo.Delete(ctx, "as-1")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, "as-1")
		require.NoError(t, err)
		assert.False(t, deleted)

		got, err := repo.FindOne(ctx, "as-1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("close expired", func(t *testing.T) {
		repo := newRepo(t)
		for _, a := range []*model.Assignment{
			newAssignment("as-past-1", "t1", base.Add(-time.Hour)),
			newAssignment("as-past-2", "t2", base.Add(-time.Minute)),
			newAssignment("as-exact", "t1", base),
			newAssignment("as-future", "t1", base.Add(time.Hour)),
		} {
			_, err := repo.Create(ctx, a)
			require.NoError(t, err)
		}

		closed, err := repo.CloseExpired(ctx, base)
		require.NoError(t, err)
		assert.ElementsMatch(t, []model.ClosedAssignment{
			{AssignmentID: "as-past-1", TeacherID: "t1"},
			{AssignmentID: "as-past-2", TeacherID: "t2"},
		}, closed)

		got, err := repo.FindOne(ctx, "as-past-1")
		require.NoError(t, err)
		assert.Equal(t, model.AssignmentStatusCompleted, got.Status)
		require.NotNil(t, got.CompletedAt)
		assert.True(t, got.CompletedAt.Equal(base))

		exact, err := repo.FindOne(ctx, "as-exact")
		require.NoError(t, err)
		assert.Equal(t, model.AssignmentStatusOpen, exact.Status)

		again, err := repo.CloseExpired(ctx, base)
		require.NoError(t, err)
		assert.Empty(t, again)
	})

	t.Run("concurrent close reports each assignment once", func(t *testing.T) {
		repo := newRepo(t)
		const total = 50
		for i := 0; i < total; i++ {
			_, err := repo.Create(ctx, newAssignment(fmt.Sprintf("as-%05d", i), "t1", base.Add(-time.Hour)))
			require.NoError(t, err)
		}

		const callers = 4
		results := make([][]model.ClosedAssignment, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				closed, err := repo.CloseExpired(ctx, base)
				assert.NoError(t, err)
				results[i] = closed
			}(i)
		}
		wg.Wait()

		seen := make(map[string]int)
		for _, closed := range results {
			for _, c := range closed {
				seen[c.AssignmentID]++
			}
		}
		assert.Len(t, seen, total)
		for id, n := range seen {
			assert.Equal(t, 1, n, "assignment %s reported %d times", id, n)
		}
	})
}

func ids(assignments []model.Assignment) []string {
	out := make([]string, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, a.AssignmentID)
	}
	return out
}
