package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/site-settings/internal/settings"
	"github.com/eugenenazirov/site-settings/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const redacted = "********"

// Handler exposes resolved site settings over HTTP.
type Handler struct {
	storage storage.Storage
	logger  *zap.Logger

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithHandlerLogger attaches a logger for problems that do not fail a request.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler constructs a Handler over already resolved settings.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage: store,
		logger:  zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
		Sites:     len(h.storage.Sites()),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListSites(w http.ResponseWriter, r *http.Request) {
	_ = r
	sites := h.storage.Sites()
	resp := sitesResponse{
		Sites: make([]siteSummary, 0, len(sites)),
	}
	for _, site := range sites {
		resolved, err := h.storage.Get(site)
		if err != nil {
			writeInternalError(w, err)
			return
		}
		resp.Sites = append(resp.Sites, h.summarize(resolved))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSite(w http.ResponseWriter, r *http.Request) {
	resolved, ok := h.lookup(w, r)
	if !ok {
		return
	}
	resp := siteSettingsResponse{
		Site:       resolved.Site(),
		ShortName:  resolved.ShortName(),
		Settings:   redact(resolved.Map()),
		ResolvedAt: resolved.ResolvedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetProvenance(w http.ResponseWriter, r *http.Request) {
	resolved, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, provenanceResponse{
		Site:       resolved.Site(),
		Provenance: resolved.Provenance(),
	})
}

func (h *Handler) handleGetSteps(w http.ResponseWriter, r *http.Request) {
	resolved, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stepsResponse{
		Site:  resolved.Site(),
		Steps: resolved.Steps(),
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*settings.Settings, bool) {
	site := r.PathValue("site")
	resolved, err := h.storage.Get(site)
	if err != nil {
		if errors.Is(err, storage.ErrSiteNotFound) {
			writeError(w, http.StatusNotFound, "Site not found", err.Error())
			return nil, false
		}
		writeInternalError(w, err)
		return nil, false
	}
	return resolved, true
}

// summarize omits the database of a site whose descriptor does not decode;
// the full map stays available under /api/sites/{site}.
func (h *Handler) summarize(resolved *settings.Settings) siteSummary {
	summary := siteSummary{
		Site:                resolved.Site(),
		ShortName:           resolved.ShortName(),
		ConfigSyncDirectory: resolved.ConfigSyncDirectory(),
		ResolvedAt:          resolved.ResolvedAt(),
	}
	conn, found, err := resolved.Database(settings.DefaultConnection, settings.DefaultTarget)
	if err != nil {
		h.logger.Warn("database descriptor not decodable",
			zap.String("site", resolved.Site()),
			zap.Error(err),
		)
		return summary
	}
	if found {
		summary.Database = &conn
	}
	return summary
}

// redact masks every value stored under a key named "password".
func redact(values map[string]any) map[string]any {
	for k, v := range values {
		if strings.EqualFold(k, "password") {
			if s, ok := v.(string); ok && s == "" {
				continue
			}
			values[k] = redacted
			continue
		}
		switch t := v.(type) {
		case map[string]any:
			redact(t)
		case []any:
			for _, item := range t {
				if m, ok := item.(map[string]any); ok {
					redact(m)
				}
			}
		}
	}
	return values
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type siteSummary struct {
	Site                string                       `json:"site"`
	ShortName           string                       `json:"shortName"`
	ConfigSyncDirectory string                       `json:"configSyncDirectory"`
	Database            *settings.DatabaseConnection `json:"database,omitempty"`
	ResolvedAt          time.Time                    `json:"resolvedAt"`
}

type sitesResponse struct {
	Sites []siteSummary `json:"sites"`
}

type siteSettingsResponse struct {
	Site       string         `json:"site"`
	ShortName  string         `json:"shortName"`
	Settings   map[string]any `json:"settings"`
	ResolvedAt time.Time      `json:"resolvedAt"`
}

type provenanceResponse struct {
	Site       string              `json:"site"`
	Provenance map[string][]string `json:"provenance"`
}

type stepsResponse struct {
	Site  string                `json:"site"`
	Steps []settings.StepReport `json:"steps"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Sites     int       `json:"sites"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
