package handlers

import (
	"context"
	"net/http"
	"strconv"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/middleware"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
	"github.com/Tobless-scripts/Snap-Card/internal/qr"
	"github.com/Tobless-scripts/Snap-Card/internal/services"
	"github.com/Tobless-scripts/Snap-Card/internal/share"
	"github.com/Tobless-scripts/Snap-Card/internal/vcard"
)

const (
	minQRSize   = 64
	maxQRSize   = 1024
	maxQRMargin = 16
)

// CardHandler serves the caller's own card as vCard text and QR image.
type CardHandler struct {
	profiles services.ProfileStore
	gen      *vcard.Generator
	qrOpts   qr.Options
	sharer   share.Sharer
	log      *zap.Logger
}

// NewCardHandler wires the card endpoints. sharer may be nil, in which case
// sharing always downloads.
func NewCardHandler(profiles services.ProfileStore, gen *vcard.Generator, qrOpts qr.Options, sharer share.Sharer, log *zap.Logger) *CardHandler {
	if gen == nil {
		gen = vcard.NewGenerator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CardHandler{profiles: profiles, gen: gen, qrOpts: qrOpts, sharer: sharer, log: log}
}

// payload builds the caller's vCard. It writes the error response itself and
// returns "" on failure.
func (h *CardHandler) payload(w http.ResponseWriter, r *http.Request) string {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return ""
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	prof, err := h.profiles.GetOrCreate(ctx, userID, middleware.GetUserEmail(r.Context()))
	if err != nil {
		h.log.Error("load profile for card", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return ""
	}
	return h.gen.Generate(prof)
}

// GetVCard downloads the caller's card as contact.vcf.
func (h *CardHandler) GetVCard(w http.ResponseWriter, r *http.Request) {
	text := h.payload(w, r)
	if text == "" {
		return
	}
	if err := (share.HTTPDownloader{W: w}).Save(r.Context(), share.VCardFile(text)); err != nil {
		h.log.Warn("write vcard", zap.Error(err))
	}
}

// GetQRCode renders the caller's card as a QR PNG. With ?format=datauri the
// image is returned inside JSON along with the encoded vCard.
func (h *CardHandler) GetQRCode(w http.ResponseWriter, r *http.Request) {
	opts := h.qrOpts
	q := r.URL.Query()
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minQRSize || n > maxQRSize {
			writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(map[string]string{
				"size": "must be between " + strconv.Itoa(minQRSize) + " and " + strconv.Itoa(maxQRSize),
			}))
			return
		}
		opts.Size = n
	}
	if v := q.Get("margin"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxQRMargin {
			writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(map[string]string{
				"margin": "must be between 0 and " + strconv.Itoa(maxQRMargin),
			}))
			return
		}
		opts.Margin = n
	}

	text := h.payload(w, r)
	if text == "" {
		return
	}

	img, err := qr.Generate(text, opts)
	if err != nil {
		writeError(w, h.log, err, "Failed to render QR code")
		return
	}

	if q.Get("format") == "datauri" {
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.QRCodeResponse{
			DataURI: img.DataURI(),
			Size:    opts.Size,
			Margin:  opts.Margin,
			Modules: img.Modules,
			VCard:   text,
		}))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(img.PNG)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.PNG)
}

// ShareCard e-mails the caller's card to a recipient. When no recipient is
// given or the mail relay fails, the card is downloaded instead.
func (h *CardHandler) ShareCard(w http.ResponseWriter, r *http.Request) {
	var req models.ShareCardRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
		return
	}

	text := h.payload(w, r)
	if text == "" {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
	exp := share.NewExporter(h.sharer, share.HTTPDownloader{W: ww}, h.log)
	outcome, err := exp.Export(ctx, text, req.Recipient)
	if err != nil {
		if ww.Status() == 0 {
			writeError(w, h.log, err, "Failed to share card")
		} else {
			h.log.Warn("share card", zap.Error(err))
		}
		return
	}
	if outcome == share.OutcomeShared {
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.ShareResponse{
			Outcome:   string(outcome),
			Recipient: req.Recipient,
		}))
	}
}
