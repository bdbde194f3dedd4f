package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

type MongoProfileService struct {
	client      *mongo.Client
	db          *mongo.Database
	profilesCol *mongo.Collection
}

func NewMongoProfileService(ctx context.Context, mongoURI, dbName string) (*MongoProfileService, error) {
	client, db, err := connectMongo(ctx, mongoURI, dbName)
	if err != nil {
		return nil, err
	}
	col := db.Collection("profiles")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoProfileService{
		client:      client,
		db:          db,
		profilesCol: col,
	}, nil
}

func (s *MongoProfileService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoProfileService) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var prof models.Profile
	err := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof)
	if err == mongo.ErrNoDocuments {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &prof, nil
}

// GetOrCreate returns the user's profile, creating it on first sight. A
// profile missing its email is backfilled from the token.
func (s *MongoProfileService) GetOrCreate(ctx context.Context, userID string, email string) (*models.Profile, error) {
	now := time.Now().UTC()

	var prof models.Profile
	err := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof)
	if err == nil {
		if email != "" && prof.Email == "" {
			_, _ = s.profilesCol.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
				"$set": bson.M{"email": email, "updated_at": now},
			})
			prof.Email = email
			prof.UpdatedAt = now
		}
		return &prof, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	prof = models.Profile{
		UserID:    userID,
		Email:     email,
		UpdatedAt: now,
	}
	if _, err = s.profilesCol.InsertOne(ctx, prof); err != nil {
		// A concurrent request may have created it.
		if retry, err2 := s.GetByUserID(ctx, userID); err2 == nil {
			return retry, nil
		}
		return nil, err
	}
	return &prof, nil
}

func (s *MongoProfileService) Upsert(ctx context.Context, userID string, email string, req *models.UpsertProfileRequest) (*models.Profile, error) {
	// Normalise through the same path as the file store so both backends
	// persist identical documents.
	var patch models.Profile
	applyUpsert(&patch, req)

	set := bson.M{"updated_at": time.Now().UTC()}
	if email != "" {
		set["email"] = email
	}
	if req.DisplayName != nil {
		set["display_name"] = patch.DisplayName
	}
	if req.Name != nil {
		set["name"] = patch.Name
	}
	if req.Company != nil {
		set["company"] = patch.Company
	}
	if req.Role != nil {
		set["role"] = patch.Role
	}
	if req.Phone != nil {
		set["phone"] = patch.Phone
	}
	if req.PhotoURL != nil {
		set["photo_url"] = patch.PhotoURL
	}
	if req.Links != nil {
		set["links"] = patch.Links
	}

	_, err := s.profilesCol.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": set, "$setOnInsert": bson.M{"user_id": userID}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, err
	}
	return s.GetByUserID(ctx, userID)
}

func (s *MongoProfileService) Delete(ctx context.Context, userID string) error {
	_, err := s.profilesCol.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}

// ApprovePendingProfilePhoto points any profile whose photo_url is still
// pendingPath at the approved download URL.
func (s *MongoProfileService) ApprovePendingProfilePhoto(ctx context.Context, pendingPath string, approvedURL string) error {
	if strings.TrimSpace(pendingPath) == "" || strings.TrimSpace(approvedURL) == "" {
		return nil
	}
	_, err := s.profilesCol.UpdateOne(ctx, bson.M{"photo_url": pendingPath}, bson.M{
		"$set": bson.M{"photo_url": approvedURL, "updated_at": time.Now().UTC()},
	})
	return err
}

// RejectPendingProfilePhoto clears photo_url if it matches pendingPath.
func (s *MongoProfileService) RejectPendingProfilePhoto(ctx context.Context, pendingPath string) error {
	if strings.TrimSpace(pendingPath) == "" {
		return nil
	}
	_, err := s.profilesCol.UpdateOne(ctx, bson.M{"photo_url": pendingPath}, bson.M{
		"$set": bson.M{"photo_url": "", "updated_at": time.Now().UTC()},
	})
	return err
}
