package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/openpredict/tradegate/internal/signing"
)

// SignHandler serves the attribution signing endpoint. It wraps a
// local signer so that processes without the HMAC secret can delegate
// header computation to one that has it.
type SignHandler struct {
	signer signing.AttributionSigner
	logger *zap.Logger
}

// NewSignHandler creates a sign handler. signer may be nil when no
// secret material is configured.
func NewSignHandler(signer signing.AttributionSigner, logger *zap.Logger) *SignHandler {
	return &SignHandler{
		signer: signer,
		logger: logger,
	}
}

type signResponse struct {
	Headers   map[string]string `json:"headers"`
	Timestamp string            `json:"timestamp"`
}

type signErrorResponse struct {
	Error string `json:"error"`
}

// HandleSign computes attribution headers for the posted request
// tuple. The request body is never logged: it may embed a full order.
func (h *SignHandler) HandleSign(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.signer == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(signErrorResponse{Error: "no secret material loaded"})
		return
	}

	var req signing.AttributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(signErrorResponse{Error: "malformed request body"})
		return
	}

	if req.Method == "" || req.Path == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(signErrorResponse{Error: "method and path are required"})
		return
	}

	// Pin the timestamp here so the response can echo the exact value
	// the signature binds.
	if req.Timestamp == "" {
		req.Timestamp = strconv.FormatInt(time.Now().Unix(), 10)
	}

	headers, err := h.signer.SignRequest(r.Context(), &req)
	if err != nil {
		h.logger.Warn("sign-request-failed", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(signErrorResponse{Error: err.Error()})
		return
	}

	signRequestsTotal.Inc()

	_ = json.NewEncoder(w).Encode(signResponse{
		Headers:   headers,
		Timestamp: req.Timestamp,
	})
}
