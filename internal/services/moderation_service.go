package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrImageRejected is returned when SafeSearch flags an image as unsafe.
var ErrImageRejected = errors.New("image rejected: violates community guidelines")

// PendingPrefix marks uploads that have not passed moderation yet.
const PendingPrefix = "pending/"

// ObjectStore is the bucket the profile photos live in.
type ObjectStore interface {
	// Promote copies from to to, stamps the approval metadata and removes from.
	Promote(ctx context.Context, from, to, token string) error
	Delete(ctx context.Context, name string) error
}

// Detector runs SafeSearch on a gs:// URI.
type Detector func(ctx context.Context, gcsURI string) (*SafeSearchResult, error)

// ModerationService checks profile photos uploaded under pending/ and
// promotes safe ones to their final path.
type ModerationService struct {
	objects ObjectStore
	detect  Detector
	bucket  string
	flags   FlagStore
	log     *zap.Logger
}

// NewModerationService creates a storage client once at server startup.
// flags may be nil if strike tracking is not needed.
func NewModerationService(ctx context.Context, bucket string, flags FlagStore, log *zap.Logger) (*ModerationService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("moderation: storage client: %w", err)
	}
	return NewModerationServiceWith(&GCSObjectStore{Client: client, Bucket: bucket}, DetectSafeSearch, bucket, flags, log), nil
}

func NewModerationServiceWith(objects ObjectStore, detect Detector, bucket string, flags FlagStore, log *zap.Logger) *ModerationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ModerationService{objects: objects, detect: detect, bucket: bucket, flags: flags, log: log}
}

// ModerateAndPromote runs SafeSearch on a pending/ path. Safe images are
// promoted and their download URL returned. Unsafe ones are deleted, a strike
// is recorded and ErrImageRejected returned. Paths outside pending/ are
// returned unchanged.
func (m *ModerationService) ModerateAndPromote(ctx context.Context, pendingPath, userID string) (string, error) {
	if !strings.HasPrefix(pendingPath, PendingPrefix) {
		return pendingPath, nil
	}

	gcsURI := fmt.Sprintf("gs://%s/%s", m.bucket, pendingPath)
	ss, err := m.detect(ctx, gcsURI)
	if err != nil {
		m.log.Error("safesearch failed", zap.String("path", pendingPath), zap.Error(err))
		return "", fmt.Errorf("moderation: safesearch: %w", err)
	}
	m.log.Info("safesearch result",
		zap.String("path", pendingPath),
		zap.String("adult", ss.Adult),
		zap.String("violence", ss.Violence),
		zap.String("racy", ss.Racy),
		zap.Bool("unsafe", ss.IsUnsafe()))

	if ss.IsUnsafe() {
		if err := m.objects.Delete(ctx, pendingPath); err != nil {
			m.log.Warn("delete rejected image failed", zap.String("path", pendingPath), zap.Error(err))
		}
		if m.flags != nil && userID != "" {
			if _, err := m.flags.AddStrike(ctx, userID, "profile_photo"); err != nil {
				m.log.Warn("strike failed", zap.String("user_id", userID), zap.Error(err))
			}
		}
		return "", ErrImageRejected
	}

	finalName := strings.TrimPrefix(pendingPath, PendingPrefix)
	token := NewDownloadToken()
	if err := m.objects.Promote(ctx, pendingPath, finalName, token); err != nil {
		return "", fmt.Errorf("moderation: promote: %w", err)
	}
	return FirebaseDownloadURL(m.bucket, finalName, token), nil
}

// GCSObjectStore implements ObjectStore on Cloud Storage.
type GCSObjectStore struct {
	Client *storage.Client
	Bucket string
	Log    *zap.Logger
}

func (g *GCSObjectStore) Promote(ctx context.Context, from, to, token string) error {
	b := g.Client.Bucket(g.Bucket)
	src := b.Object(from)
	dst := b.Object(to)

	// Firebase Storage may need a moment to finalize uploads.
	var attrs *storage.ObjectAttrs
	var err error
	const maxRetries = 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		attrs, err = src.Attrs(ctx)
		if err == nil {
			break
		}
		if errors.Is(err, storage.ErrObjectNotExist) && attempt < maxRetries-1 {
			backoff := time.Duration(attempt+1) * 500 * time.Millisecond
			if g.Log != nil {
				g.Log.Debug("object not visible yet", zap.String("name", from), zap.Duration("backoff", backoff))
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		return fmt.Errorf("source attrs: %w", err)
	}

	md := map[string]string{}
	for k, v := range attrs.Metadata {
		md[k] = v
	}
	md["moderation"] = "approved"
	md["firebaseStorageDownloadTokens"] = token

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if _, err := dst.Update(ctx, storage.ObjectAttrsToUpdate{Metadata: md}); err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	return src.Delete(ctx)
}

func (g *GCSObjectStore) Delete(ctx context.Context, name string) error {
	return g.Client.Bucket(g.Bucket).Object(name).Delete(ctx)
}

// Metadata returns the custom metadata of an object.
func (g *GCSObjectStore) Metadata(ctx context.Context, name string) (map[string]string, error) {
	attrs, err := g.Client.Bucket(g.Bucket).Object(name).Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("object attrs: %w", err)
	}
	return attrs.Metadata, nil
}

// NewDownloadToken returns a Firebase Storage download token.
func NewDownloadToken() string {
	return uuid.NewString()
}

func FirebaseDownloadURL(bucket, objectName, token string) string {
	return fmt.Sprintf(
		"https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket,
		url.PathEscape(objectName),
		url.QueryEscape(token),
	)
}
