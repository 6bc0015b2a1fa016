package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"assignments/internal/model"
	"assignments/internal/storage/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// everySchedule расписание с произвольно малым интервалом
type everySchedule time.Duration

func (e everySchedule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

type publishCall struct {
	AssignmentID string
	TeacherID    *string
	Status       model.AssignmentStatus
	CtxErr       error
}

// fakePublisher запоминает вызовы и падает для выбранных заданий
type fakePublisher struct {
	mu     sync.Mutex
	calls  []publishCall
	failOn map[string]bool
}

func (p *fakePublisher) PublishAssignmentStatus(ctx context.Context, assignmentID string, teacherID *string, status model.AssignmentStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, publishCall{
		AssignmentID: assignmentID,
		TeacherID:    teacherID,
		Status:       status,
		CtxErr:       ctx.Err(),
	})
	if p.failOn[assignmentID] {
		return fmt.Errorf("%w: simulated transport failure", model.ErrPublishFailure)
	}
	return nil
}

func (p *fakePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.calls))
	for _, c := range p.calls {
		ids = append(ids, c.AssignmentID)
	}
	return ids
}

// closerFunc адаптер функции к DeadlineCloser
type closerFunc func(ctx context.Context, now time.Time) ([]model.ClosedAssignment, error)

func (f closerFunc) SweepDeadlines(ctx context.Context, now time.Time) ([]model.ClosedAssignment, error) {
	return f(ctx, now)
}

func seedExpired(t *testing.T, repo model.AssignmentRepository, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := repo.Create(context.Background(), &model.Assignment{
			AssignmentID: id,
			TeacherID:    "t1",
			Deadline:     time.Now().Add(-time.Hour),
			Students:     []string{},
			Status:       model.AssignmentStatusOpen,
		})
		require.NoError(t, err)
	}
}

func newTestSweeper(closer DeadlineCloser, pub EventPublisher, interval time.Duration) *Sweeper {
	return NewSweeper(closer, pub, SweeperConfig{
		Schedule:    everySchedule(interval),
		PassTimeout: 5 * time.Second,
		Concurrency: 4,
	}, nil, zap.NewNop())
}

func TestSweeper_PublishFailureIsIsolated(t *testing.T) {
	repo := repository.NewAssignmentMemoryRepository()
	svc := NewAssignmentService(repo, zap.NewNop())
	seedExpired(t, repo, "as-1", "as-2", "as-3")

	pub := &fakePublisher{failOn: map[string]bool{"as-2": true}}
	sweeper := newTestSweeper(svc, pub, time.Hour)

	report := sweeper.RunOnce(context.Background())
	assert.Equal(t, uint64(1), report.Pass)
	assert.NoError(t, report.Err)
	assert.ElementsMatch(t, []string{"as-1", "as-2", "as-3"}, report.Closed)
	assert.Equal(t, []string{"as-2"}, report.Failed)
	assert.Len(t, report.Outcomes, 3)
	assert.ElementsMatch(t, []string{"as-1", "as-2", "as-3"}, pub.published())

	for _, c := range pub.calls {
		assert.Equal(t, model.AssignmentStatusCompleted, c.Status)
		require.NotNil(t, c.TeacherID)
		assert.Equal(t, "t1", *c.TeacherID)
	}

	// следующий проход ничего не переиздает
	next := sweeper.RunOnce(context.Background())
	assert.Equal(t, uint64(2), next.Pass)
	assert.Empty(t, next.Closed)
	assert.Empty(t, next.Failed)
	assert.Len(t, pub.published(), 3)
}

func TestSweeper_NothingToClose(t *testing.T) {
	repo := repository.NewAssignmentMemoryRepository()
	pub := &fakePublisher{}
	sweeper := newTestSweeper(NewAssignmentService(repo, zap.NewNop()), pub, time.Hour)

	report := sweeper.RunOnce(context.Background())
	assert.Empty(t, report.Closed)
	assert.Nil(t, report.Outcomes)
	assert.Empty(t, pub.published())
}

func TestSweeper_EmptyTeacherIsPublishedAsNull(t *testing.T) {
	closer := closerFunc(func(context.Context, time.Time) ([]model.ClosedAssignment, error) {
		return []model.ClosedAssignment{{AssignmentID: "as-1"}}, nil
	})
	pub := &fakePublisher{}

	newTestSweeper(closer, pub, time.Hour).RunOnce(context.Background())
	require.Len(t, pub.calls, 1)
	assert.Nil(t, pub.calls[0].TeacherID)
}

func TestSweeper_StorageErrorKeepsLoopAlive(t *testing.T) {
	var calls atomic.Int32
	closer := closerFunc(func(context.Context, time.Time) ([]model.ClosedAssignment, error) {
		if calls.Add(1) == 1 {
			return nil, fmt.Errorf("close: %w", model.ErrStorageUnavailable)
		}
		return nil, nil
	})

	sweeper := newTestSweeper(closer, &fakePublisher{}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestSweeper_PartialCloseIsStillPublished(t *testing.T) {
	closer := closerFunc(func(context.Context, time.Time) ([]model.ClosedAssignment, error) {
		return []model.ClosedAssignment{{AssignmentID: "as-1", TeacherID: "t1"}},
			fmt.Errorf("cursor: %w", model.ErrStorageUnavailable)
	})
	pub := &fakePublisher{}

	report := newTestSweeper(closer, pub, time.Hour).RunOnce(context.Background())
	assert.ErrorIs(t, report.Err, model.ErrStorageUnavailable)
	assert.Equal(t, []string{"as-1"}, report.Closed)
	assert.Equal(t, []string{"as-1"}, pub.published())
}

func TestSweeper_StopsPromptlyWhileIdle(t *testing.T) {
	repo := repository.NewAssignmentMemoryRepository()
	sweeper := newTestSweeper(NewAssignmentService(repo, zap.NewNop()), &fakePublisher{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sweeper.pass.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestSweeper_InFlightPassSurvivesCancel(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	closer := closerFunc(func(ctx context.Context, _ time.Time) ([]model.ClosedAssignment, error) {
		close(entered)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []model.ClosedAssignment{{AssignmentID: "as-1", TeacherID: "t1"}}, nil
	})
	pub := &fakePublisher{}
	sweeper := newTestSweeper(closer, pub, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	<-entered
	cancel()
	close(release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after in-flight pass")
	}

	require.Len(t, pub.calls, 1)
	assert.Equal(t, "as-1", pub.calls[0].AssignmentID)
	assert.NoError(t, pub.calls[0].CtxErr)
}

func TestSweeper_DoesNotStartAfterCancel(t *testing.T) {
	var calls atomic.Int32
	closer := closerFunc(func(context.Context, time.Time) ([]model.ClosedAssignment, error) {
		calls.Add(1)
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	newTestSweeper(closer, &fakePublisher{}, time.Millisecond).Run(ctx)
	assert.Equal(t, int32(0), calls.Load())
}

// panicPublisher падает с паникой для одного задания
type panicPublisher struct {
	fakePublisher
}

func (p *panicPublisher) PublishAssignmentStatus(ctx context.Context, assignmentID string, teacherID *string, status model.AssignmentStatus) error {
	if assignmentID == "as-boom" {
		panic("boom")
	}
	return p.fakePublisher.PublishAssignmentStatus(ctx, assignmentID, teacherID, status)
}

func TestSweeper_PublisherPanicIsContained(t *testing.T) {
	closer := closerFunc(func(context.Context, time.Time) ([]model.ClosedAssignment, error) {
		return []model.ClosedAssignment{
			{AssignmentID: "as-ok", TeacherID: "t1"},
			{AssignmentID: "as-boom", TeacherID: "t1"},
		}, nil
	})
	pub := &panicPublisher{}

	report := newTestSweeper(closer, pub, time.Hour).RunOnce(context.Background())
	assert.Equal(t, []string{"as-boom"}, report.Failed)
	assert.Equal(t, []string{"as-ok"}, pub.published())
	for _, o := range report.Outcomes {
		if o.AssignmentID == "as-boom" {
			assert.True(t, errors.Is(o.Err, model.ErrPublishFailure))
		}
	}
}

func TestSweeper_ConcurrencyLimit(t *testing.T) {
	closed := make([]model.ClosedAssignment, 20)
	for i := range closed {
		closed[i] = model.ClosedAssignment{AssignmentID: fmt.Sprintf("as-%02d", i), TeacherID: "t1"}
	}
	closer := closerFunc(func(context.Context, time.Time) ([]model.ClosedAssignment, error) {
		return closed, nil
	})

	var inFlight, peak atomic.Int32
	pub := publisherFunc(func(context.Context, string, *string, model.AssignmentStatus) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	sweeper := NewSweeper(closer, pub, SweeperConfig{
		Schedule:    everySchedule(time.Hour),
		PassTimeout: 5 * time.Second,
		Concurrency: 3,
	}, nil, zap.NewNop())

	report := sweeper.RunOnce(context.Background())
	assert.Len(t, report.Closed, 20)
	assert.Empty(t, report.Failed)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

type publisherFunc func(ctx context.Context, assignmentID string, teacherID *string, status model.AssignmentStatus) error

func (f publisherFunc) PublishAssignmentStatus(ctx context.Context, assignmentID string, teacherID *string, status model.AssignmentStatus) error {
	return f(ctx, assignmentID, teacherID, status)
}
