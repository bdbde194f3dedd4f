package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
	"github.com/Tobless-scripts/Snap-Card/internal/vcard"
)

// unknownName is stored when a scanned card carries no FN.
const unknownName = "Unknown"

// IngestionService turns decoded vCard text into saved contacts.
type IngestionService struct {
	store         ContactStore
	log           *zap.Logger
	dedupeOnWrite bool
	now           func() time.Time

	wg sync.WaitGroup
}

type IngestionOption func(*IngestionService)

// WithDedupeOnWrite rejects a contact whose email the user already saved.
func WithDedupeOnWrite(on bool) IngestionOption {
	return func(s *IngestionService) { s.dedupeOnWrite = on }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) IngestionOption {
	return func(s *IngestionService) { s.now = now }
}

func NewIngestionService(store ContactStore, log *zap.Logger, opts ...IngestionOption) *IngestionService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &IngestionService{store: store, log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ingest decodes text and appends it to userID's contacts.
func (s *IngestionService) Ingest(ctx context.Context, text, userID string) (*models.ScannedContact, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.New(apperrors.KindValidation, "user id required", nil)
	}
	fields, err := vcard.Decode(text)
	if err != nil {
		return nil, err
	}

	if s.dedupeOnWrite && fields.Email != "" {
		existing, err := s.store.FindByEmail(ctx, userID, fields.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, apperrors.ErrDuplicateContact
		}
	}

	name := strings.TrimSpace(fields.DisplayName)
	if name == "" {
		name = unknownName
	}
	now := s.now()
	c := &models.ScannedContact{
		ID:           newContactID(now),
		UserID:       userID,
		Name:         name,
		Email:        fields.Email,
		Phone:        fields.Phone,
		Organization: fields.Organization,
		Title:        fields.Title,
		RawVCard:     text,
		CreatedAt:    now.UTC(),
	}
	if err := s.store.Append(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// IngestAsync runs Ingest in the background. Failures are logged, never
// returned; the caller has already moved on.
func (s *IngestionService) IngestAsync(text, userID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		c, err := s.Ingest(ctx, text, userID)
		if err != nil {
			s.log.Warn("contact ingestion failed",
				zap.String("user_id", userID),
				zap.String("kind", string(apperrors.KindOf(err))),
				zap.Error(err))
			return
		}
		s.log.Info("contact saved", zap.String("user_id", userID), zap.String("contact_id", c.ID))
	}()
}

// Wait blocks until in-flight async ingestions finish.
func (s *IngestionService) Wait() {
	s.wg.Wait()
}

// newContactID is a millisecond time token plus a random suffix, so IDs sort
// roughly by creation time.
func newContactID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}
