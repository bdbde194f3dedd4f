package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Tobless-scripts/Snap-Card/internal/models"
	"github.com/Tobless-scripts/Snap-Card/internal/storage"
)

// FileProfileService is the in-memory profile store, optionally persisted to
// a JSON file.
type FileProfileService struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile // userID -> profile
	store    *storage.JSONStore
}

type profilesData struct {
	Profiles map[string]*models.Profile `json:"profiles"`
}

func NewMemoryProfileService() *FileProfileService {
	return &FileProfileService{profiles: make(map[string]*models.Profile)}
}

func NewFileProfileService(dataDir string) (*FileProfileService, error) {
	store, err := storage.NewJSONStore(dataDir, "profiles.json")
	if err != nil {
		return nil, err
	}
	s := &FileProfileService{profiles: make(map[string]*models.Profile), store: store}

	var data profilesData
	if err := store.Load(&data); err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	if data.Profiles != nil {
		s.profiles = data.Profiles
	}
	return s, nil
}

func (s *FileProfileService) GetByUserID(_ context.Context, userID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return cloneProfile(p), nil
}

func (s *FileProfileService) GetOrCreate(_ context.Context, userID, email string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles[userID]; ok {
		if email != "" && p.Email == "" {
			p.Email = email
			p.UpdatedAt = time.Now().UTC()
			if err := s.persist(); err != nil {
				return nil, err
			}
		}
		return cloneProfile(p), nil
	}

	p := &models.Profile{UserID: userID, Email: email, UpdatedAt: time.Now().UTC()}
	s.profiles[userID] = p
	if err := s.persist(); err != nil {
		delete(s.profiles, userID)
		return nil, err
	}
	return cloneProfile(p), nil
}

func (s *FileProfileService) Upsert(_ context.Context, userID, email string, req *models.UpsertProfileRequest) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &models.Profile{UserID: userID}
	if existing, ok := s.profiles[userID]; ok {
		p = cloneProfile(existing)
	}
	if email != "" {
		p.Email = email
	}
	applyUpsert(p, req)
	p.UpdatedAt = time.Now().UTC()

	prev, had := s.profiles[userID]
	s.profiles[userID] = p
	if err := s.persist(); err != nil {
		if had {
			s.profiles[userID] = prev
		} else {
			delete(s.profiles, userID)
		}
		return nil, err
	}
	return cloneProfile(p), nil
}

func (s *FileProfileService) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, userID)
	return s.persist()
}

func (s *FileProfileService) ApprovePendingProfilePhoto(_ context.Context, pendingPath, approvedURL string) error {
	return s.replacePhoto(pendingPath, approvedURL)
}

func (s *FileProfileService) RejectPendingProfilePhoto(_ context.Context, pendingPath string) error {
	return s.replacePhoto(pendingPath, "")
}

func (s *FileProfileService) replacePhoto(match, next string) error {
	if match == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.PhotoURL == match {
			p.PhotoURL = next
			p.UpdatedAt = time.Now().UTC()
		}
	}
	return s.persist()
}

func (s *FileProfileService) persist() error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(profilesData{Profiles: s.profiles})
}

func cloneProfile(p *models.Profile) *models.Profile {
	out := *p
	if p.Links != nil {
		out.Links = make(map[string]string, len(p.Links))
		for k, v := range p.Links {
			out.Links[k] = v
		}
	}
	return &out
}
