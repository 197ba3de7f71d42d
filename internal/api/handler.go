package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/morrigan/wyrmhold/internal/gateway"
	"github.com/morrigan/wyrmhold/internal/runner"
	"github.com/morrigan/wyrmhold/internal/store"
	"go.uber.org/zap"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	fleet     *runner.Fleet
	spectator *gateway.Spectator
	restGW    *gateway.RESTAdapter
	logger    *zap.Logger
}

// NewHandler creates a new API handler. spectator and restGW may be nil
// when the corresponding subsystems are disabled.
func NewHandler(st *store.Store, fleet *runner.Fleet,
	spectator *gateway.Spectator, restGW *gateway.RESTAdapter,
	logger *zap.Logger) *Handler {
	return &Handler{
		store:     st,
		fleet:     fleet,
		spectator: spectator,
		restGW:    restGW,
		logger:    logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/fleet", h.fleetStatus)

		r.Get("/agents", h.listAgents)
		r.Post("/agents", h.registerAgent)
		r.Get("/agents/{wallet}", h.getAgent)
		r.Patch("/agents/{wallet}", h.patchAgent)
		r.Post("/agents/{wallet}/deploy", h.deployAgent)
		r.Post("/agents/{wallet}/halt", h.haltAgent)
		r.Get("/agents/{wallet}/state", h.agentState)
		r.Get("/agents/{wallet}/activity", h.agentActivity)

		// Direct actions bypass the focus dispatcher
		r.Post("/agents/{wallet}/actions/buy", h.actionBuy)
		r.Post("/agents/{wallet}/actions/equip", h.actionEquip)
		r.Post("/agents/{wallet}/actions/repair", h.actionRepair)
		r.Post("/agents/{wallet}/actions/learn", h.actionLearn)

		r.Post("/broadcast", h.sendBroadcast)
		if h.restGW != nil {
			r.Mount("/gateway/rest", h.restGW.Routes())
		}
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "wyrmhold"})
}

// agentView decorates the stored config with the live runner state.
type agentView struct {
	*runner.AgentConfig
	Running bool `json:"running"`
}

func (h *Handler) fleetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deployed": h.fleet.Wallets(),
	})
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.store.ListAgents(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	views := make([]agentView, 0, len(agents))
	for _, a := range agents {
		views = append(views, agentView{AgentConfig: a, Running: h.fleet.Running(a.Wallet)})
	}
	writeJSON(w, http.StatusOK, views)
}

type registerRequest struct {
	Wallet          string `json:"wallet"`
	CustodialWallet string `json:"custodial_wallet"`
}

func (h *Handler) registerAgent(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Wallet == "" || req.CustodialWallet == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "wallet and custodial_wallet are required"})
		return
	}
	if err := h.store.RegisterAgent(r.Context(), req.Wallet, req.CustodialWallet); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	cfg, err := h.store.AgentConfig(r.Context(), req.Wallet)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	cfg, err := h.store.AgentConfig(r.Context(), wallet)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, agentView{AgentConfig: cfg, Running: h.fleet.Running(wallet)})
}

type patchRequest struct {
	Enabled    *bool   `json:"enabled,omitempty"`
	Focus      *string `json:"focus,omitempty"`
	Strategy   *string `json:"strategy,omitempty"`
	TargetZone *string `json:"target_zone,omitempty"`
}

func (h *Handler) patchAgent(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx := r.Context()
	if _, err := h.store.AgentConfig(ctx, wallet); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}

	if req.Focus != nil {
		focus, err := runner.ParseFocus(*req.Focus)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := h.store.SetFocus(ctx, wallet, focus); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}
	if req.Strategy != nil {
		strategy, err := runner.ParseStrategy(*req.Strategy)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := h.store.SetStrategy(ctx, wallet, strategy); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}
	if req.TargetZone != nil {
		if err := h.store.SetTargetZone(ctx, wallet, *req.TargetZone); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}
	if req.Enabled != nil {
		if err := h.store.SetEnabled(ctx, wallet, *req.Enabled); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if !*req.Enabled {
			h.fleet.Halt(wallet)
		}
	}

	cfg, err := h.store.AgentConfig(ctx, wallet)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, agentView{AgentConfig: cfg, Running: h.fleet.Running(wallet)})
}

type deployRequest struct {
	WaitForFirstTick bool `json:"wait_for_first_tick"`
}

func (h *Handler) deployAgent(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	var req deployRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	ctx := r.Context()
	if _, err := h.store.AgentConfig(ctx, wallet); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	if err := h.store.SetEnabled(ctx, wallet, true); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	// The runner loop must outlive this request.
	if err := h.fleet.Deploy(context.Background(), wallet, req.WaitForFirstTick); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, runner.ErrAlreadyRunning) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deployed", "wallet": wallet})
}

func (h *Handler) haltAgent(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	if err := h.store.SetEnabled(r.Context(), wallet, false); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.fleet.Halt(wallet)
	writeJSON(w, http.StatusOK, map[string]string{"status": "halted", "wallet": wallet})
}

func (h *Handler) agentState(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	runnerFor, fail := h.liveRunner(wallet)
	if fail != nil {
		writeJSON(w, http.StatusConflict, fail)
		return
	}
	state, err := runnerFor.Snapshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) agentActivity(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	entries, err := h.store.RecentActivity(r.Context(), wallet, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// liveRunner resolves a deployed runner or returns an error payload.
func (h *Handler) liveRunner(wallet string) (*runner.Runner, map[string]string) {
	r := h.fleet.Get(wallet)
	if r == nil {
		return nil, map[string]string{"error": "agent is not deployed"}
	}
	return r, nil
}

type itemRequest struct {
	Item string `json:"item"`
}

func (h *Handler) actionBuy(w http.ResponseWriter, r *http.Request) {
	h.directAction(w, r, func(rn *runner.Runner, req itemRequest) error {
		return rn.BuyItem(r.Context(), req.Item)
	}, true)
}

func (h *Handler) actionEquip(w http.ResponseWriter, r *http.Request) {
	h.directAction(w, r, func(rn *runner.Runner, req itemRequest) error {
		return rn.EquipItem(r.Context(), req.Item)
	}, true)
}

func (h *Handler) actionRepair(w http.ResponseWriter, r *http.Request) {
	h.directAction(w, r, func(rn *runner.Runner, _ itemRequest) error {
		return rn.RepairGear(r.Context())
	}, false)
}

type learnRequest struct {
	Profession string `json:"profession"`
}

func (h *Handler) actionLearn(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	rn, fail := h.liveRunner(wallet)
	if fail != nil {
		writeJSON(w, http.StatusConflict, fail)
		return
	}
	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Profession == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "profession is required"})
		return
	}
	if err := rn.LearnProfession(r.Context(), req.Profession); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) directAction(w http.ResponseWriter, r *http.Request,
	do func(*runner.Runner, itemRequest) error, needItem bool) {
	wallet := chi.URLParam(r, "wallet")
	rn, fail := h.liveRunner(wallet)
	if fail != nil {
		writeJSON(w, http.StatusConflict, fail)
		return
	}
	var req itemRequest
	if needItem {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Item == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item is required"})
			return
		}
	}
	if err := do(rn, req); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) sendBroadcast(w http.ResponseWriter, r *http.Request) {
	if h.spectator == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "gateway not initialized"})
		return
	}
	var msg gateway.BroadcastMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if msg.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type is required"})
		return
	}
	if err := h.spectator.Announce(r.Context(), msg.Type, msg.Title, msg.Content, msg.Wallet); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "broadcast sent"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
