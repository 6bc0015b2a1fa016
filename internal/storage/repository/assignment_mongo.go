package repository

import (
	"context"
	"errors"
	"time"

	"assignments/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// AssignmentMongoRepository реализует model.AssignmentRepository поверх MongoDB
type AssignmentMongoRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

var _ model.AssignmentRepository = (*AssignmentMongoRepository)(nil)

// NewAssignmentMongoRepository создает репозиторий заданий для коллекции MongoDB
func NewAssignmentMongoRepository(collection *mongo.Collection, logger *zap.Logger) *AssignmentMongoRepository {
	return &AssignmentMongoRepository{
		collection: collection,
		logger:     logger,
	}
}

// Create создает новое задание
func (r *AssignmentMongoRepository) Create(ctx context.Context, assignment *model.Assignment) (string, error) {
	if _, err := r.collection.InsertOne(ctx, assignment); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", duplicate(assignment.AssignmentID, err)
		}
		return "", unavailable("create assignment", err)
	}
	return assignment.AssignmentID, nil
}

// FindForTeacher возвращает задания преподавателя
func (r *AssignmentMongoRepository) FindForTeacher(ctx context.Context, teacherID string) ([]model.Assignment, error) {
	return r.find(ctx, bson.M{"teacherId": teacherID}, "query assignments for teacher")
}

// FindForStudent возвращает задания, назначенные студенту
func (r *AssignmentMongoRepository) FindForStudent(ctx context.Context, studentID string) ([]model.Assignment, error) {
	return r.find(ctx, bson.M{"students": studentID}, "query assignments for student")
}

func (r *AssignmentMongoRepository) find(ctx context.Context, filter bson.M, op string) ([]model.Assignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer cursor.Close(ctx)

	assignments := make([]model.Assignment, 0)
	if err := cursor.All(ctx, &assignments); err != nil {
		return nil, unavailable(op, err)
	}
	return assignments, nil
}

// FindOne возвращает задание по ID
func (r *AssignmentMongoRepository) FindOne(ctx context.Context, assignmentID string) (*model.Assignment, error) {
	var assignment model.Assignment

	err := r.collection.FindOne(ctx, bson.M{"assignmentId": assignmentID}).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, unavailable("query assignment by ID", err)
	}
	return &assignment, nil
}

// Delete удаляет задание
func (r *AssignmentMongoRepository) Delete(ctx context.Context, assignmentID string) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"assignmentId": assignmentID})
	if err != nil {
		return false, unavailable("delete assignment", err)
	}
	return res.DeletedCount > 0, nil
}

// CloseExpired захватывает просроченные задания по одному через FindOneAndUpdate.
// Каждый документ переключается ровно одним вызовом, поэтому конкурентные
// сверки не получают одно и то же задание дважды. При ошибке посреди цикла
// возвращаются уже закрытые задания вместе с ошибкой.
func (r *AssignmentMongoRepository) CloseExpired(ctx context.Context, now time.Time) ([]model.ClosedAssignment, error) {
	filter := bson.M{
		"deadline": bson.M{"$lt": now},
		"status":   bson.M{"$ne": model.AssignmentStatusCompleted},
	}
	update := bson.M{"$set": bson.M{
		"status":      model.AssignmentStatusCompleted,
		"completedAt": now,
	}}
	opts := options.FindOneAndUpdate().
		SetProjection(bson.M{"assignmentId": 1, "teacherId": 1}).
		SetReturnDocument(options.After)

	closed := make([]model.ClosedAssignment, 0)
	for {
		var c model.ClosedAssignment
		err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return closed, unavailable("close expired assignments", err)
		}
		closed = append(closed, c)
	}

	if len(closed) > 0 {
		r.logger.Debug("Closed expired assignments",
			zap.Int("count", len(closed)),
			zap.Time("now", now))
	}

	return closed, nil
}

// EnsureIndexes создает индексы коллекции заданий
func (r *AssignmentMongoRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "assignmentId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "teacherId", Value: 1}}},
		{Keys: bson.D{{Key: "students", Value: 1}}},
		{Keys: bson.D{{Key: "deadline", Value: 1}, {Key: "status", Value: 1}}},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		return unavailable("create assignment indexes", err)
	}
	return nil
}
