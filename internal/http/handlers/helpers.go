package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"dinein-order-services/internal/middleware"
	"dinein-order-services/internal/settlement"
	"dinein-order-services/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func zapError(err error) zap.Field {
	return zap.Error(err)
}

func readPathString(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

func readPathInt64(r *http.Request, key string) (int64, error) {
	value := readPathString(r, key)
	if value == "" {
		return 0, errMissingParam
	}
	var out int64
	_, err := fmt.Sscan(value, &out)
	if err == nil && out <= 0 {
		err = errInvalidParam
	}
	return out, err
}

var (
	errMissingParam = errors.New("missing param")
	errInvalidParam = errors.New("invalid param")
)

// readPathID writes a 400 and returns false when the path id is unusable.
func readPathID(w http.ResponseWriter, r *http.Request, key string, label string) (int64, bool) {
	id, err := readPathInt64(r, key)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", label+" is required")
		return 0, false
	}
	return id, true
}

// decodeBody decodes and validates a JSON body. An empty body is accepted
// for requests whose fields are all optional.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	body := r.Body
	if body == nil {
		body = http.NoBody
	}
	if err := json.NewDecoder(body).Decode(dst); err != nil && !(allowEmpty && errors.Is(err, io.EOF)) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		response.ErrorWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", validationDetails(err))
		return false
	}
	return true
}

func (h *Handler) actorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims, ok := middleware.GetStaff(r.Context())
	if !ok || claims.ActorID() == 0 {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Staff context not found")
		return 0, false
	}
	return claims.ActorID(), true
}

func statusForKind(kind settlement.ErrorKind) int {
	switch kind {
	case settlement.KindValidation:
		return http.StatusBadRequest
	case settlement.KindNotFound:
		return http.StatusNotFound
	case settlement.KindInvalidTransition, settlement.KindDuplicate:
		return http.StatusConflict
	case settlement.KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps a settlement error to its HTTP status. Anything that
// is not a settlement error is logged and reported as a 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	se, ok := settlement.AsError(err)
	if !ok {
		h.Logger.Error(op+" failed", zapError(err), zap.String("requestId", middleware.RequestIDFromContext(r.Context())))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	status := statusForKind(se.Kind)
	if se.Kind == settlement.KindPersistence {
		h.Logger.Warn(op+" aborted", zapError(se), zap.String("requestId", middleware.RequestIDFromContext(r.Context())))
		w.Header().Set("Retry-After", "1")
	}

	code := string(se.Code)
	if se.Kind == settlement.KindInvalidTransition {
		code = string(se.Kind)
	}
	details := map[string]any{"reason": string(se.Code)}
	for k, v := range se.Details {
		details[k] = v
	}
	response.ErrorWithDetails(w, status, code, se.Message, details)
}
