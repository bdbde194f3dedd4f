package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

// FlagStore records moderation strikes against users.
type FlagStore interface {
	AddStrike(ctx context.Context, userID, reason string) (*models.UserFlag, error)
}

type MongoUserFlagService struct {
	client *mongo.Client
	db     *mongo.Database
	col    *mongo.Collection
}

func NewMongoUserFlagService(ctx context.Context, mongoURI, dbName string) (*MongoUserFlagService, error) {
	client, db, err := connectMongo(ctx, mongoURI, dbName)
	if err != nil {
		return nil, err
	}
	col := db.Collection("user_flags")

	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoUserFlagService{client: client, db: db, col: col}, nil
}

func (s *MongoUserFlagService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// AddStrike increments the strike counter for the user and returns the updated record.
func (s *MongoUserFlagService) AddStrike(ctx context.Context, userID, reason string) (*models.UserFlag, error) {
	now := time.Now().UTC()
	// A path may appear in only one operator, so strikes/updated_at are left
	// out of $setOnInsert.
	update := bson.M{
		"$inc":         bson.M{"strikes": 1},
		"$set":         bson.M{"last_strike_at": now, "updated_at": now, "last_reason": reason},
		"$setOnInsert": bson.M{"user_id": userID},
	}

	var out models.UserFlag
	err := s.col.FindOneAndUpdate(ctx, bson.M{"user_id": userID}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MemoryUserFlagService is the in-process FlagStore.
type MemoryUserFlagService struct {
	mu    sync.Mutex
	flags map[string]*models.UserFlag
}

func NewMemoryUserFlagService() *MemoryUserFlagService {
	return &MemoryUserFlagService{flags: make(map[string]*models.UserFlag)}
}

func (s *MemoryUserFlagService) AddStrike(_ context.Context, userID, reason string) (*models.UserFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	f, ok := s.flags[userID]
	if !ok {
		f = &models.UserFlag{UserID: userID}
		s.flags[userID] = f
	}
	f.Strikes++
	f.LastReason = reason
	f.LastStrikeAt = now
	f.UpdatedAt = now

	out := *f
	return &out, nil
}
