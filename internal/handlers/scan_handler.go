package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/middleware"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
	"github.com/Tobless-scripts/Snap-Card/internal/scanner"
	"github.com/Tobless-scripts/Snap-Card/internal/services"
	"github.com/Tobless-scripts/Snap-Card/internal/share"
)

// SavedHeader tells clients receiving the vCard download whether the contact
// was queued for saving.
const SavedHeader = "X-Contact-Saved"

type ScanConfig struct {
	FPS            int
	Timeout        time.Duration
	MaxUploadBytes int64
}

// ScanHandler turns a QR payload into a saved contact and a vCard for the
// scanning user.
type ScanHandler struct {
	exchange *services.ExchangeService
	decoder  scanner.FrameDecoder
	sharer   share.Sharer
	cfg      ScanConfig
	log      *zap.Logger
}

func NewScanHandler(exchange *services.ExchangeService, decoder scanner.FrameDecoder, sharer share.Sharer, cfg ScanConfig, log *zap.Logger) *ScanHandler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ScanHandler{exchange: exchange, decoder: decoder, sharer: sharer, cfg: cfg, log: log}
}

// ScanImage decodes a QR code from an uploaded photo (multipart field
// "image").
func (h *ScanHandler) ScanImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, models.NewErrorResponse("Image too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid multipart form"))
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing image"))
		return
	}
	defer file.Close()

	img, err := scanner.DecodeStill(file)
	if err != nil {
		writeError(w, h.log, err, "Unreadable image")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.Timeout)
	defer cancel()

	// The whole photo is searched; users rarely centre an uploaded code.
	sc := scanner.New(scanner.NewStillSource(img), h.decoder, scanner.Config{FPS: h.cfg.FPS}, h.log)
	if _, err := sc.Initialize(ctx); err != nil {
		writeError(w, h.log, err, "Failed to read image")
		return
	}
	handle, err := sc.Start(ctx, nil)
	switch {
	case err == nil:
	case errors.Is(err, scanner.ErrStopped) && errors.Is(ctx.Err(), context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, models.NewErrorResponse("Timed out reading image"))
		return
	case errors.Is(err, scanner.ErrStopped):
		// Client went away.
		return
	default:
		writeError(w, h.log, err, "Failed to read image")
		return
	}
	text, err := handle.Wait(ctx)
	switch {
	case err == nil:
	case errors.Is(err, scanner.ErrEndOfStream):
		writeJSON(w, http.StatusUnprocessableEntity, models.NewErrorResponse("No QR code found in image"))
		return
	case errors.Is(err, context.DeadlineExceeded):
		sc.Stop()
		writeJSON(w, http.StatusGatewayTimeout, models.NewErrorResponse("Timed out reading image"))
		return
	default:
		writeError(w, h.log, err, "Failed to read image")
		return
	}

	h.dispatch(w, r, text, r.FormValue("recipient"))
}

// ScanText handles a payload the client already decoded.
func (h *ScanHandler) ScanText(w http.ResponseWriter, r *http.Request) {
	var req models.ScanTextRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.dispatch(w, r, req.Text, req.Recipient)
}

// dispatch classifies text and delivers the vCard: JSON when it was e-mailed,
// otherwise the contact.vcf download itself.
func (h *ScanHandler) dispatch(w http.ResponseWriter, r *http.Request, text, recipient string) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID := middleware.GetUserID(r.Context())
	w.Header().Set(SavedHeader, strconv.FormatBool(userID != ""))

	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
	exp := share.NewExporter(h.sharer, share.HTTPDownloader{W: ww}, h.log)
	res, err := h.exchange.HandleScan(ctx, text, userID, exp, recipient)
	if err != nil {
		if ww.Status() != 0 {
			h.log.Warn("export scanned contact", zap.Error(err))
			return
		}
		if errors.Is(err, apperrors.ErrUnsupportedFormat) {
			w.Header().Del(SavedHeader)
			writeJSON(w, http.StatusUnprocessableEntity, models.APIResponse{
				Success: false,
				Data:    res,
				Error:   "This QR code is not a contact card",
				Kind:    string(apperrors.KindUnsupportedFormat),
			})
			return
		}
		writeError(w, h.log, err, "Failed to export contact")
		return
	}
	if res.Export == string(share.OutcomeShared) {
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(res))
	}
}
