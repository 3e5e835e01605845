package manager

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mcdev12/auctionhouse/go/internal/auction/httpapi"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

// Handler serves the operator API of the manager service.
type Handler struct {
	manager *Manager
}

func NewHandler(m *Manager) *Handler {
	return &Handler{manager: m}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	api.HandleFunc("/catalog", h.Catalog).Methods(http.MethodGet)
	api.HandleFunc("/config", h.GetConfig).Methods(http.MethodGet)
	api.HandleFunc("/config", h.Configure).Methods(http.MethodPost)
	api.HandleFunc("/reset", h.Reset).Methods(http.MethodPost)
	api.HandleFunc("/auctions", h.ListAuctions).Methods(http.MethodGet)
	api.HandleFunc("/auctions/{id}", h.GetAuction).Methods(http.MethodGet)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httpapi.RespondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"service":    "manager",
		"configured": h.manager.Configuration() != nil,
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	httpapi.RespondJSON(w, http.StatusOK, map[string]bool{"configured": h.manager.Configuration() != nil})
}

func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	httpapi.RespondJSON(w, http.StatusOK, map[string]any{"items": h.manager.Catalog()})
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.manager.Configuration()
	if cfg == nil {
		httpapi.RespondJSON(w, http.StatusOK, map[string]models.ConfigState{"state": models.ConfigStateUnconfigured})
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, cfg)
}

func (h *Handler) Configure(w http.ResponseWriter, r *http.Request) {
	var req ConfigRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg, err := h.manager.Configure(r.Context(), req)
	if err != nil {
		httpapi.RespondEngineError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, map[string]any{"ok": true, "configuration": cfg})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.manager.Reset(r.Context())
	httpapi.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	httpapi.RespondJSON(w, http.StatusOK, h.manager.Auctions())
}

func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	item, ok := h.manager.Auction(mux.Vars(r)["id"])
	if !ok {
		httpapi.RespondError(w, http.StatusNotFound, "auction not found")
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, item)
}
