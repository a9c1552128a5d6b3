package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"gardencore/internal/core"
	"gardencore/internal/token"
	"gardencore/internal/vault"
	"gardencore/pkg/domain"
)

// api exposes the garden and plot services over JSON HTTP.
type api struct {
	garden     *core.GardenService
	plots      *core.PlotService
	pool       *vault.Vault
	ledger     *token.Ledger
	contentRef string
	logger     *slog.Logger
}

func newAPI(garden *core.GardenService, plots *core.PlotService, pool *vault.Vault, ledger *token.Ledger, contentRef string, logger *slog.Logger) *api {
	return &api{garden: garden, plots: plots, pool: pool, ledger: ledger, contentRef: contentRef, logger: logger}
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/plants", a.handlePlantSeed)
	mux.HandleFunc("GET /v1/plants", a.handleListPlants)
	mux.HandleFunc("GET /v1/plants/{id}", a.handleGetPlant)
	mux.HandleFunc("GET /v1/plants/{id}/tier", a.handleDonationLevel)
	mux.HandleFunc("POST /v1/plants/{id}/water", a.handleWaterPlant)
	mux.HandleFunc("POST /v1/plants/{id}/advance", a.handleAdvanceStage)
	mux.HandleFunc("POST /v1/plants/{id}/harvest", a.handleHarvest)
	mux.HandleFunc("POST /v1/plot", a.handleAddPlot)
	mux.HandleFunc("GET /v1/plot", a.handleGetPlot)
	mux.HandleFunc("POST /v1/plot/water", a.handleWaterPlot)
	mux.HandleFunc("POST /v1/pool/deposit", a.handleDepositReward)
	mux.HandleFunc("GET /v1/pool", a.handlePoolBalance)
	mux.HandleFunc("GET /v1/treasury", a.handleTreasuryBalance)
	mux.HandleFunc("POST /v1/treasury/withdraw", a.handleWithdraw)
	mux.HandleFunc("GET /v1/events", a.handleEvents)
	mux.HandleFunc("GET /v1/tokens/{id}", a.handleToken)
}

type plantSeedRequest struct {
	Owner    string `json:"owner"`
	Quantity uint64 `json:"quantity"`
	Payment  string `json:"payment"`
}

func (a *api) handlePlantSeed(w http.ResponseWriter, r *http.Request) {
	var req plantSeedRequest
	if !a.decode(w, r, &req) {
		return
	}
	payment, ok := a.parseAmount(w, req.Payment)
	if !ok {
		return
	}
	plant, result, err := a.garden.PlantSeed(r.Context(), req.Owner, req.Quantity, payment)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]any{"plant": plant, "events": result.Events})
}

func (a *api) handleListPlants(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{"plants": a.garden.ListPlants(r.Context())})
}

func (a *api) handleGetPlant(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	plant, err := a.garden.GetPlant(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"plant": plant})
}

func (a *api) handleDonationLevel(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	tier, err := a.garden.DonationLevel(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"tier": tier})
}

type paymentRequest struct {
	Caller  string `json:"caller"`
	Payment string `json:"payment"`
}

func (a *api) handleWaterPlant(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !a.decode(w, r, &req) {
		return
	}
	payment, ok := a.parseAmount(w, req.Payment)
	if !ok {
		return
	}
	level, result, err := a.garden.WaterPlant(r.Context(), req.Caller, id, payment)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"water_level": level, "events": result.Events})
}

func (a *api) handleAdvanceStage(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	plant, result, err := a.garden.AdvanceStage(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"plant": plant, "events": result.Events})
}

type harvestRequest struct {
	ContentRef string `json:"content_ref"`
}

func (a *api) handleHarvest(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req harvestRequest
	if !a.decode(w, r, &req) {
		return
	}
	contentRef := req.ContentRef
	if contentRef == "" {
		contentRef = a.contentRef
	}
	plant, result, err := a.garden.HarvestCollectible(r.Context(), id, contentRef)
	if err != nil {
		a.writeError(w, err)
		return
	}
	uri, _ := a.ledger.TokenURI(id)
	a.writeJSON(w, http.StatusOK, map[string]any{"plant": plant, "token_uri": uri, "events": result.Events})
}

type addPlotRequest struct {
	Owner   string `json:"owner"`
	Name    string `json:"name"`
	Payment string `json:"payment"`
}

func (a *api) handleAddPlot(w http.ResponseWriter, r *http.Request) {
	var req addPlotRequest
	if !a.decode(w, r, &req) {
		return
	}
	payment, ok := a.parseAmount(w, req.Payment)
	if !ok {
		return
	}
	plot, result, err := a.plots.AddPlant(r.Context(), req.Owner, req.Name, payment)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]any{"plot": plot, "events": result.Events})
}

func (a *api) handleGetPlot(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		a.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "owner query parameter required"})
		return
	}
	plot, err := a.plots.GetPlot(r.Context(), owner)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"plot": plot})
}

type waterPlotRequest struct {
	Owner   string `json:"owner"`
	Payment string `json:"payment"`
}

func (a *api) handleWaterPlot(w http.ResponseWriter, r *http.Request) {
	var req waterPlotRequest
	if !a.decode(w, r, &req) {
		return
	}
	payment, ok := a.parseAmount(w, req.Payment)
	if !ok {
		return
	}
	plot, result, err := a.plots.Water(r.Context(), req.Owner, payment)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"plot": plot, "events": result.Events})
}

type depositRequest struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

func (a *api) handleDepositReward(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !a.decode(w, r, &req) {
		return
	}
	amount, ok := a.parseAmount(w, req.Amount)
	if !ok {
		return
	}
	if _, err := a.plots.DepositReward(r.Context(), req.Caller, amount); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"pool": a.pool.Balance()})
}

func (a *api) handlePoolBalance(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{"pool": a.pool.Balance()})
}

func (a *api) handleTreasuryBalance(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{"treasury": a.garden.TreasuryBalance()})
}

type withdrawRequest struct {
	Caller string `json:"caller"`
}

func (a *api) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if !a.decode(w, r, &req) {
		return
	}
	amount, result, err := a.garden.Withdraw(r.Context(), req.Caller)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"withdrawn": amount, "events": result.Events})
}

func (a *api) handleEvents(w http.ResponseWriter, r *http.Request) {
	var after uint64
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			a.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid after parameter"})
			return
		}
		after = parsed
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"events": a.garden.Store().Events(after)})
}

func (a *api) handleToken(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	owner, minted := a.ledger.OwnerOf(id)
	if !minted {
		a.writeJSON(w, http.StatusNotFound, map[string]any{"error": "token not minted"})
		return
	}
	uri, _ := a.ledger.TokenURI(id)
	a.writeJSON(w, http.StatusOK, map[string]any{"owner": owner, "uri": uri})
}

func (a *api) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return false
	}
	return true
}

func (a *api) parseAmount(w http.ResponseWriter, raw string) (domain.Amount, bool) {
	amount, err := domain.ParseAmount(raw)
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return 0, false
	}
	return amount, true
}

func (a *api) pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (a *api) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("encode response", "err", err)
	}
}

func (a *api) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var deposit domain.InsufficientDepositError
	var pool domain.InsufficientPoolError
	var violation domain.RuleViolationError
	switch {
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case errors.As(err, &deposit), errors.As(err, &pool):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrPlotExists),
		errors.Is(err, domain.ErrAlreadyConsumed),
		errors.Is(err, domain.ErrAlreadyMature),
		errors.Is(err, domain.ErrTooEarly),
		errors.Is(err, domain.ErrPlantDead):
		status = http.StatusConflict
	case errors.As(err, &violation):
		status = http.StatusConflict
	}
	a.writeJSON(w, status, map[string]any{"error": err.Error()})
}
