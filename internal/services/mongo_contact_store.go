package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

// caseInsensitive compares strings ignoring case and diacritics.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

type MongoContactStore struct {
	client *mongo.Client
	db     *mongo.Database
	col    *mongo.Collection
}

func NewMongoContactStore(ctx context.Context, mongoURI, dbName string) (*MongoContactStore, error) {
	client, db, err := connectMongo(ctx, mongoURI, dbName)
	if err != nil {
		return nil, err
	}
	col := db.Collection("saved_contacts")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "name", Value: 1}}},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "email", Value: 1}},
			Options: options.Index().SetCollation(caseInsensitive),
		},
	})

	return &MongoContactStore{client: client, db: db, col: col}, nil
}

func (s *MongoContactStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoContactStore) Append(ctx context.Context, c *models.ScannedContact) error {
	if _, err := s.col.InsertOne(ctx, c); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return nil
}

func (s *MongoContactStore) ListByUser(ctx context.Context, userID string) ([]models.ScannedContact, error) {
	cur, err := s.col.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	defer cur.Close(ctx)

	out := make([]models.ScannedContact, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return out, nil
}

func (s *MongoContactStore) FindByEmail(ctx context.Context, userID, email string) (*models.ScannedContact, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	var c models.ScannedContact
	err := s.col.FindOne(ctx,
		bson.M{"user_id": userID, "email": email},
		options.FindOne().SetCollation(caseInsensitive),
	).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return &c, nil
}

func (s *MongoContactStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return res.DeletedCount, nil
}
