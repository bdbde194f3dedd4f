package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

const requestTimeout = 10 * time.Second

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the 400 response itself and reports false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(validationErrors(err)))
		return false
	}
	return true
}

func validationErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["body"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		field := fe.Field()
		if fe.Param() != "" {
			out[field] = fe.Tag() + "=" + fe.Param()
		} else {
			out[field] = fe.Tag()
		}
	}
	return out
}

// statusForKind maps an error kind to the HTTP status the API reports.
func statusForKind(k apperrors.Kind) int {
	switch k {
	case apperrors.KindInvalidFormat, apperrors.KindUnsupportedFormat:
		return http.StatusUnprocessableEntity
	case apperrors.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperrors.KindEmptyPayload, apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindDuplicateContact, apperrors.KindDeviceInUse:
		return http.StatusConflict
	case apperrors.KindNotFound, apperrors.KindNoCameraFound:
		return http.StatusNotFound
	case apperrors.KindCameraAccessDenied:
		return http.StatusForbidden
	case apperrors.KindPersistence, apperrors.KindDeviceFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError reports err with its kind. Unclassified errors are logged and
// hidden behind fallback.
func writeError(w http.ResponseWriter, log *zap.Logger, err error, fallback string) {
	kind := apperrors.KindOf(err)
	status := statusForKind(kind)
	if kind == apperrors.KindUnknown {
		log.Error(fallback, zap.Error(err))
		writeJSON(w, status, models.NewErrorResponse(fallback))
		return
	}
	msg := err.Error()
	var ae *apperrors.Error
	if errors.As(err, &ae) {
		msg = ae.Message
	}
	if status >= 500 {
		log.Error(fallback, zap.Error(err))
	}
	writeJSON(w, status, models.NewKindErrorResponse(string(kind), msg))
}
