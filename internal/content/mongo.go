// Package content provides storage backends for questionnaire content.
//
// This file implements the MongoDB-backed store used in production, where
// questions live as documents in a single collection.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/officeappout/out-run-app-sub001/internal/models"
)

const (
	// DefaultMongoDatabase is the database used when none is configured.
	DefaultMongoDatabase = "outrun"
	// questionsCollection holds one document per authored question.
	questionsCollection = "questions"

	mongoConnectTimeout = 10 * time.Second
)

// MongoStore is a content store backed by a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, opts ...Option) (*MongoStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.URI == "" {
		slog.Error("MongoStore URI not set")
		return nil, fmt.Errorf("mongo URI not set")
	}
	dbName := cfg.Database
	if dbName == "" {
		dbName = DefaultMongoDatabase
	}

	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	slog.Debug("Opening MongoDB connection", "database", dbName)
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		slog.Error("MongoDB ping failed", "error", err)
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}
	slog.Debug("MongoDB connection established", "database", dbName)

	return &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection(questionsCollection),
	}, nil
}

// GetFirstQuestion returns the entry node of a partition.
func (s *MongoStore) GetFirstQuestion(ctx context.Context, partition, language, gender string) (*models.QuestionNode, error) {
	slog.Debug("MongoStore GetFirstQuestion", "partition", partition, "language", language, "gender", gender)

	var doc QuestionDoc
	err := s.collection.FindOne(ctx, bson.M{"partition": partition, "entry": true}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			slog.Warn("MongoStore GetFirstQuestion no entry question", "partition", partition)
			return nil, fmt.Errorf("entry question for partition %s: %w", partition, ErrNotFound)
		}
		slog.Error("MongoStore GetFirstQuestion query failed", "error", err, "partition", partition)
		return nil, fmt.Errorf("failed to query entry question for %s: %w", partition, err)
	}
	return doc.Resolve(language, gender, true), nil
}

// GetQuestion returns a node by id without answers.
func (s *MongoStore) GetQuestion(ctx context.Context, questionID string) (*models.QuestionNode, error) {
	slog.Debug("MongoStore GetQuestion", "questionID", questionID)
	doc, err := s.findByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	return doc.Resolve("", "", false), nil
}

// GetQuestionWithAnswers returns a resolved node by id with its answers.
func (s *MongoStore) GetQuestionWithAnswers(ctx context.Context, questionID, language, gender string) (*models.QuestionNode, error) {
	slog.Debug("MongoStore GetQuestionWithAnswers", "questionID", questionID, "language", language, "gender", gender)
	doc, err := s.findByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	return doc.Resolve(language, gender, true), nil
}

func (s *MongoStore) findByID(ctx context.Context, questionID string) (*QuestionDoc, error) {
	var doc QuestionDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": questionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			slog.Warn("MongoStore question not found", "questionID", questionID)
			return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
		}
		slog.Error("MongoStore question query failed", "error", err, "questionID", questionID)
		return nil, fmt.Errorf("failed to query question %s: %w", questionID, err)
	}
	return &doc, nil
}

// PutQuestion stores or replaces a question document.
func (s *MongoStore) PutQuestion(ctx context.Context, doc QuestionDoc) error {
	if doc.ID == "" {
		return fmt.Errorf("question document missing id")
	}
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	if err != nil {
		slog.Error("MongoStore PutQuestion failed", "error", err, "questionID", doc.ID)
		return fmt.Errorf("failed to upsert question %s: %w", doc.ID, err)
	}
	slog.Debug("MongoStore PutQuestion succeeded", "questionID", doc.ID)
	return nil
}

// DeleteQuestion removes a question document.
func (s *MongoStore) DeleteQuestion(ctx context.Context, questionID string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": questionID})
	if err != nil {
		slog.Error("MongoStore DeleteQuestion failed", "error", err, "questionID", questionID)
		return fmt.Errorf("failed to delete question %s: %w", questionID, err)
	}
	slog.Debug("MongoStore DeleteQuestion succeeded", "questionID", questionID)
	return nil
}

// Close disconnects the MongoDB client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
