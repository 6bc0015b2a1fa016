package storage

import (
	"context"
	"fmt"
	"time"

	"assignments/internal/model"
	"assignments/internal/storage/repository"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const assignmentsCollection = "assignments"

// Mongo представляет подключение к MongoDB
type Mongo struct {
	client      *mongo.Client
	assignments *repository.AssignmentMongoRepository
	logger      *zap.Logger
}

// NewMongo создает подключение к MongoDB с retry логикой
func NewMongo(ctx context.Context, uri, database string, maxRetries int, retryDelay time.Duration, logger *zap.Logger) (*Mongo, error) {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		logger.Info("Attempting to connect to MongoDB",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries))

		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
			err = client.Ping(pingCtx, readpref.Primary())
			pingCancel()

			if err == nil {
				logger.Info("Connected to MongoDB",
					zap.Int("attempt", attempt),
					zap.String("database", database))

				collection := client.Database(database).Collection(assignmentsCollection)
				return &Mongo{
					client:      client,
					assignments: repository.NewAssignmentMongoRepository(collection, logger),
					logger:      logger,
				}, nil
			}

			if disconnectErr := client.Disconnect(context.Background()); disconnectErr != nil {
				logger.Warn("Failed to close MongoDB connection", zap.Error(disconnectErr))
			}
		}

		lastErr = err
		logger.Warn("Failed to connect to MongoDB",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == maxRetries {
			break
		}

		logger.Info("Retrying connection", zap.Duration("delay", retryDelay))
		if err := sleepContext(ctx, retryDelay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w: %w",
		maxRetries, model.ErrStorageUnavailable, lastErr)
}

// Assignments возвращает репозиторий заданий
func (m *Mongo) Assignments() model.AssignmentRepository {
	return m.assignments
}

// EnsureSchema создает индексы коллекции заданий
func (m *Mongo) EnsureSchema(ctx context.Context) error {
	return m.assignments.EnsureIndexes(ctx)
}

// Ping проверяет доступность MongoDB
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close закрывает соединение с MongoDB
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
