package services

import (
	"context"

	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

// ContactService serves the saved-contacts listing.
type ContactService struct {
	store ContactStore
}

func NewContactService(store ContactStore) *ContactService {
	return &ContactService{store: store}
}

// List returns userID's contacts ordered by name, de-duplicated by email and
// optionally filtered by a name search.
func (s *ContactService) List(ctx context.Context, userID string, q models.ListContactsQuery) ([]models.ScannedContact, error) {
	all, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return filterByName(DedupeContacts(all), q.Search), nil
}
