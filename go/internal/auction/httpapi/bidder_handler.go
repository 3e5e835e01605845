package httpapi

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mcdev12/auctionhouse/go/internal/auction/outbox"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
)

// AuctionService is the engine surface exposed over HTTP.
type AuctionService interface {
	Apply(ctx context.Context, cfg *models.Configuration) error
	Reset(ctx context.Context) error
	Register(ctx context.Context, itemID, name string) ([]models.Registration, error)
	Bid(ctx context.Context, itemID, bidder string, amount float64) (models.AuctionItem, error)
	GetAll(ctx context.Context) (models.Overview, error)
	GetOne(ctx context.Context, itemID string) (models.AuctionItem, error)
	GetRegistrations(ctx context.Context, itemID string) ([]models.Registration, error)
	GetGlobalHistory(ctx context.Context) ([]models.HistoryEntry, error)
	State(ctx context.Context) (models.ConfigState, error)
}

// RelayStats is implemented by outbox.Relay.
type RelayStats interface {
	Stats() outbox.Stats
}

// BidRequest is the body of POST /api/auctions/{id}/bid
type BidRequest struct {
	Bidder string `json:"bidder"`
	Amount Amount `json:"amount"`
}

// Amount decodes from a JSON number or a numeric string. Any other value
// decodes to NaN, which the engine rejects as too low.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case nil:
	case float64:
		*a = Amount(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			f = math.NaN()
		}
		*a = Amount(f)
	default:
		*a = Amount(math.NaN())
	}
	return nil
}

// RegisterRequest is the body of POST /api/auctions/{id}/register
type RegisterRequest struct {
	Name string `json:"name"`
}

// BidderHandler serves the bidder-facing API.
type BidderHandler struct {
	service AuctionService
	relays  []RelayStats
}

func NewBidderHandler(service AuctionService, relays ...RelayStats) *BidderHandler {
	return &BidderHandler{service: service, relays: relays}
}

// RegisterRoutes adds the bidder routes to r.
func (h *BidderHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/config", h.ApplyConfig).Methods(http.MethodPost)
	api.HandleFunc("/reset", h.Reset).Methods(http.MethodPost)
	api.HandleFunc("/history", h.History).Methods(http.MethodGet)
	api.HandleFunc("/auctions", h.ListAuctions).Methods(http.MethodGet)
	api.HandleFunc("/auctions/{id}", h.GetAuction).Methods(http.MethodGet)
	api.HandleFunc("/auctions/{id}/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/auctions/{id}/registrations", h.Registrations).Methods(http.MethodGet)
	api.HandleFunc("/auctions/{id}/bid", h.PlaceBid).Methods(http.MethodPost)
}

func (h *BidderHandler) Health(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(r.Context())
	if err != nil {
		RespondEngineError(w, err)
		return
	}

	relays := make([]outbox.Stats, 0, len(h.relays))
	for _, relay := range h.relays {
		relays = append(relays, relay.Stats())
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"service":    "bidder",
		"configured": state == models.ConfigStateConfigured,
		"relays":     relays,
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}

// ApplyConfig mirrors a configuration pushed by the manager.
func (h *BidderHandler) ApplyConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.Configuration
	if err := DecodeJSON(r, &cfg); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Apply(r.Context(), &cfg); err != nil {
		RespondEngineError(w, err)
		return
	}

	log.Info().Int("items", len(cfg.Items)).Msg("configuration received")
	RespondJSON(w, http.StatusOK, map[string]any{"ok": true, "items": len(cfg.Items)})
}

func (h *BidderHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context()); err != nil {
		RespondEngineError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *BidderHandler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.GetAll(r.Context())
	if err != nil {
		RespondEngineError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, overview)
}

func (h *BidderHandler) GetAuction(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetOne(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		RespondEngineError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, item)
}

func (h *BidderHandler) Register(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]

	var req RegisterRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	regs, err := h.service.Register(r.Context(), itemID, req.Name)
	if err != nil {
		RespondEngineError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"itemId":        itemID,
		"registrations": regs,
	})
}

func (h *BidderHandler) Registrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.service.GetRegistrations(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		RespondEngineError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"registrations": regs})
}

func (h *BidderHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	var req BidRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.service.Bid(r.Context(), mux.Vars(r)["id"], req.Bidder, float64(req.Amount))
	if err != nil {
		RespondEngineError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"ok": true, "item": item})
}

func (h *BidderHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.GetGlobalHistory(r.Context())
	if err != nil {
		RespondEngineError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"items": history})
}
