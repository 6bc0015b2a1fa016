package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"assignments/internal/infrastructure/metrics"
	"assignments/internal/model"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SweeperConfig параметры фоновой сверки дедлайнов
type SweeperConfig struct {
	// Schedule определяет момент следующего прохода от конца предыдущего
	Schedule cron.Schedule
	// PassTimeout ограничивает один проход вместе с публикациями
	PassTimeout time.Duration
	// Concurrency максимальное число одновременных публикаций
	Concurrency int
}

// PublishOutcome результат публикации для одного задания
type PublishOutcome struct {
	AssignmentID string
	Err          error
}

// SweepReport итог одного прохода сверки
type SweepReport struct {
	Pass     uint64
	Closed   []string
	Failed   []string
	Outcomes []PublishOutcome
	Err      error
	Duration time.Duration
}

// Sweeper периодически закрывает просроченные задания и публикует события о них
type Sweeper struct {
	closer    DeadlineCloser
	publisher EventPublisher
	cfg       SweeperConfig
	metrics   metrics.Interface
	logger    *zap.Logger
	now       func() time.Time
	pass      atomic.Uint64
}

// NewSweeper создает фоновую задачу сверки
func NewSweeper(closer DeadlineCloser, publisher EventPublisher, cfg SweeperConfig, m metrics.Interface, logger *zap.Logger) *Sweeper {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = time.Minute
	}
	if cfg.Schedule == nil {
		cfg.Schedule = cron.Every(30 * time.Second)
	}
	if m == nil {
		m = metrics.Nop{}
	}

	return &Sweeper{
		closer:    closer,
		publisher: publisher,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Run выполняет проходы до отмены ctx. Первый проход запускается сразу.
// Начатый проход не прерывается отменой и завершается сам.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Deadline sweeper started")
	defer s.logger.Info("Deadline sweeper stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		s.RunOnce(ctx)

		next := s.cfg.Schedule.Next(s.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RunOnce выполняет один проход: закрытие просроченных и публикация событий.
// Ошибки хранилища и публикации логируются и не прерывают работу.
func (s *Sweeper) RunOnce(ctx context.Context) SweepReport {
	passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PassTimeout)
	defer cancel()

	start := time.Now()
	report := SweepReport{Pass: s.pass.Add(1)}

	closed, err := s.closer.SweepDeadlines(passCtx, s.now())
	if err != nil {
		report.Err = err
		s.logger.Error("Deadline sweep failed",
			zap.Uint64("pass", report.Pass),
			zap.Int("closed", len(closed)),
			zap.Error(err))
	}

	report.Closed = model.ClosedIDs(closed)
	s.metrics.RecordClosed(len(closed))

	if len(closed) > 0 {
		report.Outcomes = s.publishAll(passCtx, report.Pass, closed)
		for _, o := range report.Outcomes {
			if o.Err != nil {
				report.Failed = append(report.Failed, o.AssignmentID)
			}
		}
	}

	report.Duration = time.Since(start)

	result := metrics.ResultOK
	if report.Err != nil || len(report.Failed) > 0 {
		result = metrics.ResultError
	}
	s.metrics.RecordSweepPass(result, report.Duration)

	switch {
	case len(report.Failed) > 0:
		s.logger.Warn("Deadline sweep finished with publish failures",
			zap.Uint64("pass", report.Pass),
			zap.Int("closed", len(report.Closed)),
			zap.Int("failed", len(report.Failed)),
			zap.Strings("failed_ids", report.Failed),
			zap.Duration("duration", report.Duration))
	case len(report.Closed) > 0:
		s.logger.Info("Deadline sweep closed assignments",
			zap.Uint64("pass", report.Pass),
			zap.Int("closed", len(report.Closed)),
			zap.Duration("duration", report.Duration))
	default:
		s.logger.Debug("Deadline sweep found nothing to close",
			zap.Uint64("pass", report.Pass))
	}

	return report
}

// publishAll публикует completed для каждого закрытого задания параллельно.
// Ошибка одной публикации не отменяет остальные.
func (s *Sweeper) publishAll(ctx context.Context, pass uint64, closed []model.ClosedAssignment) []PublishOutcome {
	outcomes := make([]PublishOutcome, len(closed))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)

	for i, c := range closed {
		g.Go(func() error {
			var teacherID *string
			if c.TeacherID != "" {
				teacherID = &c.TeacherID
			}

			err := s.publishOne(ctx, c.AssignmentID, teacherID)
			outcomes[i] = PublishOutcome{AssignmentID: c.AssignmentID, Err: err}

			if err != nil {
				s.metrics.RecordPublish(model.AssignmentStatusCompleted.String(), metrics.ResultError)
				s.logger.Error("Failed to publish completed status",
					zap.Uint64("pass", pass),
					zap.String("assignment_id", c.AssignmentID),
					zap.Error(err))
			} else {
				s.metrics.RecordPublish(model.AssignmentStatusCompleted.String(), metrics.ResultOK)
			}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

// publishOne изолирует панику публикатора в пределах одного задания
func (s *Sweeper) publishOne(ctx context.Context, assignmentID string, teacherID *string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(model.ErrPublishFailure, errors.New("publisher panicked"))
			s.logger.Error("Publisher panicked",
				zap.String("assignment_id", assignmentID),
				zap.Any("panic", r))
		}
	}()

	return s.publisher.PublishAssignmentStatus(ctx, assignmentID, teacherID, model.AssignmentStatusCompleted)
}
