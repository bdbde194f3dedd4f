// Package share hands a vCard to the user: through a platform share target
// when one accepts the file, otherwise as a direct download.
package share

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/vcard"
)

// Outcome reports which path delivered the file.
type Outcome string

const (
	OutcomeShared     Outcome = "shared"
	OutcomeDownloaded Outcome = "downloaded"
)

// File is a named payload with its MIME type.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// VCardFile wraps a vCard payload as contact.vcf.
func VCardFile(payload string) File {
	return File{Name: vcard.FileName, MIMEType: vcard.MIMEType, Data: []byte(payload)}
}

// Sharer is a share target such as an e-mail relay.
type Sharer interface {
	CanShare(f File) bool
	Share(ctx context.Context, f File, recipient string) error
}

// Downloader delivers the file directly to the user.
type Downloader interface {
	Save(ctx context.Context, f File) error
}

type Exporter struct {
	Sharer     Sharer
	Downloader Downloader
	Log        *zap.Logger
}

func NewExporter(sharer Sharer, downloader Downloader, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{Sharer: sharer, Downloader: downloader, Log: log}
}

// Export shares payload with recipient when possible and falls back to a
// download when sharing is unsupported, has no recipient, or fails.
func (e *Exporter) Export(ctx context.Context, payload, recipient string) (Outcome, error) {
	if strings.TrimSpace(payload) == "" {
		return "", apperrors.ErrEmptyPayload
	}
	f := VCardFile(payload)
	recipient = strings.TrimSpace(recipient)

	if e.Sharer != nil && recipient != "" && e.Sharer.CanShare(f) {
		err := e.Sharer.Share(ctx, f, recipient)
		if err == nil {
			return OutcomeShared, nil
		}
		e.Log.Warn("share failed, falling back to download", zap.Error(err))
	}

	if e.Downloader == nil {
		return "", fmt.Errorf("export vcard: no download target")
	}
	if err := e.Downloader.Save(ctx, f); err != nil {
		return "", fmt.Errorf("export vcard: %w", err)
	}
	return OutcomeDownloaded, nil
}
