package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/services"
)

// photoType is the upload metadata "type" this worker moderates.
const photoType = "profile_photo"

// Eventarc delivers CloudEvents; for GCS finalized events the body contains
// object info.
type gcsFinalizeEvent struct {
	Bucket   string            `json:"bucket"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

// cloudEventEnvelope handles structured content mode where the GCS payload
// is nested under "data".
type cloudEventEnvelope struct {
	Data gcsFinalizeEvent `json:"data"`
}

type objectStore interface {
	services.ObjectStore
	Metadata(ctx context.Context, name string) (map[string]string, error)
}

type verdicts interface {
	Approve(ctx context.Context, pendingPath, approvedURL string) error
	Reject(ctx context.Context, userID, pendingPath string) error
}

type worker struct {
	objects objectStore
	detect  services.Detector
	actions verdicts
	bucket  string
	log     *zap.Logger
	timeout time.Duration
}

func parseEvent(body []byte) (gcsFinalizeEvent, error) {
	var ev gcsFinalizeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, err
	}
	if ev.Bucket == "" || ev.Name == "" {
		var envelope cloudEventEnvelope
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data.Bucket != "" && envelope.Data.Name != "" {
			ev = envelope.Data
		}
	}
	return ev, nil
}

func (wk *worker) handleFinalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	log := wk.log.With(
		zap.String("ce_type", r.Header.Get("Ce-Type")),
		zap.String("ce_subject", r.Header.Get("Ce-Subject")))

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	ev, err := parseEvent(raw)
	if err != nil {
		log.Warn("undecodable event", zap.Error(err), zap.Int("bytes", len(raw)))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	log = log.With(zap.String("bucket", ev.Bucket), zap.String("name", ev.Name))

	if ev.Bucket != wk.bucket || ev.Name == "" || !strings.HasPrefix(ev.Name, services.PendingPrefix) {
		log.Debug("skipping event")
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), wk.timeout)
	defer cancel()

	if ev.Metadata["userId"] == "" && ev.Metadata["type"] == "" {
		md, err := wk.objects.Metadata(ctx, ev.Name)
		if err != nil {
			log.Warn("fetch object metadata", zap.Error(err))
		} else {
			ev.Metadata = md
		}
	}
	userID := ev.Metadata["userId"]
	if typ := ev.Metadata["type"]; typ != photoType {
		log.Info("skipping non-profile upload", zap.String("type", typ))
		w.WriteHeader(http.StatusOK)
		return
	}

	ss, err := wk.detect(ctx, fmt.Sprintf("gs://%s/%s", ev.Bucket, ev.Name))
	if err != nil {
		// 500 makes Eventarc retry.
		log.Error("safesearch", zap.Error(err))
		http.Error(w, "safesearch failed", http.StatusInternalServerError)
		return
	}
	log.Info("safesearch result",
		zap.String("user_id", userID),
		zap.String("adult", ss.Adult),
		zap.String("violence", ss.Violence),
		zap.String("racy", ss.Racy),
		zap.Bool("unsafe", ss.IsUnsafe()))

	if ss.IsUnsafe() {
		if err := wk.objects.Delete(ctx, ev.Name); err != nil {
			log.Error("delete unsafe object", zap.Error(err))
			http.Error(w, "delete failed", http.StatusInternalServerError)
			return
		}
		if err := wk.actions.Reject(ctx, userID, ev.Name); err != nil {
			log.Warn("reject pending photo", zap.Error(err))
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	finalName := strings.TrimPrefix(ev.Name, services.PendingPrefix)
	token := services.NewDownloadToken()
	if err := wk.objects.Promote(ctx, ev.Name, finalName, token); err != nil {
		log.Error("promote", zap.Error(err))
		http.Error(w, "promote failed", http.StatusInternalServerError)
		return
	}
	approvedURL := services.FirebaseDownloadURL(ev.Bucket, finalName, token)
	if err := wk.actions.Approve(ctx, ev.Name, approvedURL); err != nil {
		log.Warn("approve pending photo", zap.Error(err))
	}
	log.Info("photo approved", zap.String("url", approvedURL))
	w.WriteHeader(http.StatusOK)
}
