// Package publisher публикует события о смене статуса заданий в NATS JetStream.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"assignments/internal/model"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config параметры подключения к брокеру
type Config struct {
	URL            string
	Exchange       string
	RoutingKey     string
	Heartbeat      time.Duration
	PublishTimeout time.Duration
}

// NATSPublisher публикует события через JetStream.
// Безопасен для конкурентного использования после Connect.
type NATSPublisher struct {
	cfg     Config
	stream  string
	subject string
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream
}

// New создает публикатор без подключения
func New(cfg Config, logger *zap.Logger) *NATSPublisher {
	p := &NATSPublisher{
		cfg:     cfg,
		stream:  StreamName(cfg.Exchange),
		subject: Subject(cfg.Exchange, cfg.RoutingKey),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}

	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nats-publisher",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return p
}

// Connect подключается к брокеру и объявляет стрим.
// Делает до maxRetries попыток с паузой delay; при исчерпании возвращает ErrConnectFailure.
func (p *NATSPublisher) Connect(ctx context.Context, maxRetries int, delay time.Duration) error {
	var lastErr error
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		p.logger.Info("Attempting to connect to broker",
			zap.String("url", p.cfg.URL),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries))

		conn, js, err := p.dial(ctx, delay)
		if err == nil {
			p.mu.Lock()
			p.conn = conn
			p.js = js
			p.mu.Unlock()

			p.logger.Info("Connected to broker",
				zap.String("stream", p.stream),
				zap.String("subject", p.subject),
				zap.Int("attempt", attempt))
			return nil
		}

		lastErr = err
		p.logger.Warn("Failed to connect to broker",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == maxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", model.ErrConnectFailure, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w: broker unreachable after %d attempts: %w", model.ErrConnectFailure, maxRetries, lastErr)
}

// dial выполняет одну попытку подключения и объявления топологии
func (p *NATSPublisher) dial(ctx context.Context, reconnectWait time.Duration) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.Name("assignments-publisher"),
		nats.Timeout(5 * time.Second),
		nats.MaxPingsOutstanding(2),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			p.logger.Warn("Broker connection lost", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			p.logger.Info("Broker connection restored", zap.String("url", c.ConnectedUrl()))
		}),
	}
	if p.cfg.Heartbeat > 0 {
		opts = append(opts, nats.PingInterval(p.cfg.Heartbeat))
	}

	conn, err := nats.Connect(p.cfg.URL, opts...)
	if err != nil {
		return nil, nil, err
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	declareCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(declareCtx, jetstream.StreamConfig{
		Name:       p.stream,
		Subjects:   []string{p.cfg.Exchange + ".>"},
		Storage:    jetstream.FileStorage,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare stream %s: %w", p.stream, err)
	}

	return conn, js, nil
}

// PublishAssignmentStatus публикует событие о статусе задания.
// Любая ошибка возвращается обернутой в ErrPublishFailure.
func (p *NATSPublisher) PublishAssignmentStatus(ctx context.Context, assignmentID string, teacherID *string, status model.AssignmentStatus) error {
	p.mu.RLock()
	js := p.js
	p.mu.RUnlock()

	if js == nil {
		return fmt.Errorf("%w: publisher is not connected", model.ErrPublishFailure)
	}

	event := StatusEvent{
		AssignmentID: assignmentID,
		TeacherID:    teacherID,
		Status:       status,
		OccurredAt:   p.now(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: failed to encode event: %w", model.ErrPublishFailure, err)
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		publishCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
		defer cancel()
		return js.Publish(publishCtx, p.subject, body, jetstream.WithMsgID(event.MsgID()))
	})
	if err != nil {
		return fmt.Errorf("%w: assignment %s: %w", model.ErrPublishFailure, assignmentID, err)
	}

	p.logger.Debug("Published assignment status",
		zap.String("assignment_id", assignmentID),
		zap.String("status", status.String()))
	return nil
}

// Ready сообщает, можно ли сейчас публиковать
func (p *NATSPublisher) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn != nil && p.conn.IsConnected() && p.breaker.State() != gobreaker.StateOpen
}

// Close отправляет буфер и закрывает соединение.
// Безопасен без предварительного Connect и при повторном вызове.
func (p *NATSPublisher) Close() error {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.js = nil
	p.mu.Unlock()

	if conn == nil {
		return nil
	}

	var err error
	if conn.IsConnected() {
		if flushErr := conn.FlushTimeout(5 * time.Second); flushErr != nil && !errors.Is(flushErr, nats.ErrConnectionClosed) {
			err = fmt.Errorf("failed to flush broker connection: %w", flushErr)
		}
	}
	conn.Close()

	p.logger.Info("Broker connection closed")
	return err
}
