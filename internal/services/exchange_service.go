package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
	"github.com/Tobless-scripts/Snap-Card/internal/share"
	"github.com/Tobless-scripts/Snap-Card/internal/vcard"
)

// Scan formats reported in models.ScanResult.
const (
	FormatVCard       = "vcard"
	FormatUnsupported = "unsupported"
)

// Exporter is satisfied by *share.Exporter.
type Exporter interface {
	Export(ctx context.Context, payload, recipient string) (share.Outcome, error)
}

// ExchangeService routes a decoded QR payload: non-vCards are rejected, vCards
// are exported to the scanning user and, when signed in, saved in the
// background.
type ExchangeService struct {
	ingest *IngestionService
	log    *zap.Logger
}

func NewExchangeService(ingest *IngestionService, log *zap.Logger) *ExchangeService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExchangeService{ingest: ingest, log: log}
}

// HandleScan classifies text and dispatches it. exporter may be nil when the
// caller delivers the payload itself. recipient is only used for sharing.
func (s *ExchangeService) HandleScan(ctx context.Context, text, userID string, exporter Exporter, recipient string) (*models.ScanResult, error) {
	if !vcard.IsVCard(text) {
		s.log.Debug("scanned payload is not a vcard", zap.Int("bytes", len(text)))
		return &models.ScanResult{Format: FormatUnsupported}, apperrors.ErrUnsupportedFormat
	}

	res := &models.ScanResult{Format: FormatVCard, RawVCard: text}
	if userID != "" {
		s.ingest.IngestAsync(text, userID)
		res.Saved = true
	}

	if exporter != nil {
		outcome, err := exporter.Export(ctx, text, recipient)
		if err != nil {
			return res, err
		}
		res.Export = string(outcome)
	}
	return res, nil
}
