package services

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

// FirestoreContactStore keeps contacts under users/{uid}/savedContacts/{id}.
type FirestoreContactStore struct {
	client *firestore.Client
}

func NewFirestoreContactStore(client *firestore.Client) *FirestoreContactStore {
	return &FirestoreContactStore{client: client}
}

func (s *FirestoreContactStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreContactStore) saved(userID string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(userID).Collection("savedContacts")
}

func (s *FirestoreContactStore) Append(ctx context.Context, c *models.ScannedContact) error {
	if _, err := s.saved(c.UserID).Doc(c.ID).Create(ctx, c); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return nil
}

func (s *FirestoreContactStore) ListByUser(ctx context.Context, userID string) ([]models.ScannedContact, error) {
	iter := s.saved(userID).OrderBy("name", firestore.Asc).Documents(ctx)
	return collect(iter)
}

// FindByEmail scans the user's contacts; Firestore has no case-insensitive
// equality.
func (s *FirestoreContactStore) FindByEmail(ctx context.Context, userID, email string) (*models.ScannedContact, error) {
	want := normalizeEmail(email)
	if want == "" {
		return nil, nil
	}
	all, err := collect(s.saved(userID).Documents(ctx))
	if err != nil {
		return nil, err
	}
	for i := range all {
		if normalizeEmail(all[i].Email) == want {
			return &all[i], nil
		}
	}
	return nil, nil
}

func (s *FirestoreContactStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	iter := s.saved(userID).Documents(ctx)
	defer iter.Stop()

	var n int64
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return n, nil
		}
		if err != nil {
			return n, apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return n, apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		n++
	}
}

func collect(iter *firestore.DocumentIterator) ([]models.ScannedContact, error) {
	defer iter.Stop()

	out := make([]models.ScannedContact, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		var c models.ScannedContact
		if err := doc.DataTo(&c); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		c.ID = doc.Ref.ID
		out = append(out, c)
	}
}
