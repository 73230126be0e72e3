// Package server exposes the conversation core over HTTP: the message entry
// point, the inbound WhatsApp webhook and tenant cache invalidation.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atendeai/core/internal/config"
	errx "github.com/atendeai/core/internal/core/error"
	"github.com/atendeai/core/internal/orchestrator"
	logx "github.com/atendeai/core/pkg/logger"
)

// Handler wires the orchestrator and resolver into HTTP routes.
type Handler struct {
	orch     *orchestrator.Orchestrator
	resolver *config.Resolver
}

func NewHandler(orch *orchestrator.Orchestrator, resolver *config.Resolver) *Handler {
	return &Handler{orch: orch, resolver: resolver}
}

// Router builds the chi router with the standard middleware stack.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Heartbeat("/health"))

	r.Post("/v1/messages", h.postMessage)
	r.Post("/v1/tenants/{tenantID}/invalidate", h.postInvalidate)
	r.Post("/webhooks/whatsapp", h.postWebhook)
	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func (h *Handler) postMessage(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TenantID == "" || req.Phone == "" || req.Text == "" {
		Error(w, http.StatusBadRequest, "tenant_id, phone and text are required")
		return
	}

	res, err := h.orch.ProcessMessage(r.Context(), req)
	if err != nil {
		h.writeProcessError(w, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

// webhookPayload is the simplified inbound message shape the transport
// gateway posts. The gateway owns delivery; this route only computes the
// reply and signals.
type webhookPayload struct {
	TenantID string `json:"tenant_id"`
	From     string `json:"from"`
	Text     string `json:"text"`
}

func (h *Handler) postWebhook(w http.ResponseWriter, r *http.Request) {
	var p webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if p.TenantID == "" || p.From == "" || p.Text == "" {
		Error(w, http.StatusBadRequest, "tenant_id, from and text are required")
		return
	}

	res, err := h.orch.ProcessMessage(r.Context(), orchestrator.Request{
		TenantID: p.TenantID,
		Phone:    p.From,
		Text:     p.Text,
	})
	if err != nil {
		h.writeProcessError(w, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

func (h *Handler) postInvalidate(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	h.resolver.Invalidate(tenantID)
	JSON(w, http.StatusOK, map[string]string{"status": "invalidated", "tenant_id": tenantID})
}

// requestLogger emits one structured event per request through the shared
// zerolog facade, so request logs match the rest of the service.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logx.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (h *Handler) writeProcessError(w http.ResponseWriter, err error) {
	var appErr *errx.Error
	if errors.As(err, &appErr) {
		Error(w, appErr.Status, appErr.Message)
		return
	}
	logx.Error().Err(err).Msg("error processing message")
	Error(w, http.StatusInternalServerError, "internal server error")
}
