package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
	"github.com/Tobless-scripts/Snap-Card/internal/storage"
)

// FileContactStore keeps contacts in memory and, when given a JSONStore,
// mirrors every write to disk.
type FileContactStore struct {
	mu       sync.RWMutex
	contacts map[string][]models.ScannedContact // userID -> contacts in insertion order
	store    *storage.JSONStore
}

type contactsData struct {
	Contacts map[string][]models.ScannedContact `json:"contacts"`
}

func NewMemoryContactStore() *FileContactStore {
	return &FileContactStore{contacts: make(map[string][]models.ScannedContact)}
}

func NewFileContactStore(dataDir string) (*FileContactStore, error) {
	store, err := storage.NewJSONStore(dataDir, "contacts.json")
	if err != nil {
		return nil, err
	}
	s := &FileContactStore{contacts: make(map[string][]models.ScannedContact), store: store}

	var data contactsData
	if err := store.Load(&data); err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	if data.Contacts != nil {
		s.contacts = data.Contacts
	}
	return s, nil
}

func (s *FileContactStore) Append(_ context.Context, c *models.ScannedContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contacts[c.UserID] = append(s.contacts[c.UserID], *c)
	if err := s.persist(); err != nil {
		list := s.contacts[c.UserID]
		s.contacts[c.UserID] = list[:len(list)-1]
		return apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return nil
}

func (s *FileContactStore) ListByUser(_ context.Context, userID string) ([]models.ScannedContact, error) {
	s.mu.RLock()
	out := append([]models.ScannedContact(nil), s.contacts[userID]...)
	s.mu.RUnlock()

	sortContactsByName(out)
	return out, nil
}

func (s *FileContactStore) FindByEmail(_ context.Context, userID, email string) (*models.ScannedContact, error) {
	want := normalizeEmail(email)
	if want == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contacts[userID] {
		if normalizeEmail(c.Email) == want {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (s *FileContactStore) DeleteByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.contacts[userID]
	delete(s.contacts, userID)
	if err := s.persist(); err != nil {
		s.contacts[userID] = removed
		return 0, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return int64(len(removed)), nil
}

// persist must be called with mu held.
func (s *FileContactStore) persist() error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(contactsData{Contacts: s.contacts})
}
