package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Beds-2-Bytes/backend/internal/store"
)

// SimulationHandlers provides HTTP handlers for simulation endpoints.
type SimulationHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewSimulationHandlers creates a new simulation handlers instance.
func NewSimulationHandlers(st store.Store, logger *zerolog.Logger) *SimulationHandlers {
	return &SimulationHandlers{
		store: st,
		log:   logger,
	}
}

// CreateSimulationRequest represents the create simulation request body.
type CreateSimulationRequest struct {
	CaseID       int64  `json:"case_id" binding:"required"`
	PatientNotes string `json:"patient_notes"`
	Passphrase   string `json:"passphrase"`
}

// UpdateSimulationStateRequest toggles a simulation between active and done.
type UpdateSimulationStateRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SimulationResponse represents a simulation in API responses.
type SimulationResponse struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	CaseID       int64  `json:"case_id"`
	PatientNotes string `json:"patient_notes"`
	Active       bool   `json:"active"`
	CreatedAt    string `json:"created_at"`
}

func simulationResponse(sim *store.Simulation) SimulationResponse {
	return SimulationResponse{
		ID:           sim.ID,
		UserID:       sim.UserID,
		CaseID:       sim.CaseID,
		PatientNotes: sim.PatientNotes,
		Active:       sim.Active,
		CreatedAt:    sim.CreatedAt.Format(time.RFC3339),
	}
}

// ListSimulations handles listing the caller's simulations.
// GET /api/simulations
func (h *SimulationHandlers) ListSimulations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	sims, err := h.store.ListSimulations(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to list simulations")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]SimulationResponse, 0, len(sims))
	for _, sim := range sims {
		response = append(response, simulationResponse(sim))
	}
	c.JSON(http.StatusOK, response)
}

// GetSimulation handles fetching a single simulation.
// GET /api/simulations/:id
func (h *SimulationHandlers) GetSimulation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	sim, err := h.store.GetSimulationByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "simulation not found"})
			return
		}
		h.log.Error().Err(err).Int64("simulation_id", id).Msg("failed to get simulation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, simulationResponse(sim))
}

// CreateSimulation handles simulation creation from an existing case.
// POST /api/simulations
func (h *SimulationHandlers) CreateSimulation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateSimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create simulation request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	// The case must exist; a simulation without a blueprint is meaningless.
	if _, err := h.store.GetCaseByID(c.Request.Context(), req.CaseID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "case not found"})
			return
		}
		h.log.Error().Err(err).Int64("case_id", req.CaseID).Msg("failed to check case")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	sim, err := h.store.CreateSimulation(c.Request.Context(), &store.Simulation{
		UserID:       userID,
		CaseID:       req.CaseID,
		PatientNotes: req.PatientNotes,
		Passphrase:   req.Passphrase,
		Active:       true,
	})
	if err != nil {
		h.log.Error().Err(err).Int64("case_id", req.CaseID).Msg("failed to create simulation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("simulation_id", sim.ID).Int64("case_id", sim.CaseID).Msg("simulation created")
	c.JSON(http.StatusCreated, simulationResponse(sim))
}

// UpdateSimulationState marks a simulation active or finished.
// PATCH /api/simulations/:id/state
func (h *SimulationHandlers) UpdateSimulationState(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateSimulationStateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.store.SetSimulationState(c.Request.Context(), id, *req.Active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "simulation not found"})
			return
		}
		h.log.Error().Err(err).Int64("simulation_id", id).Msg("failed to update simulation state")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteSimulation handles simulation deletion.
// DELETE /api/simulations/:id
func (h *SimulationHandlers) DeleteSimulation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.store.DeleteSimulation(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "simulation not found"})
			return
		}
		h.log.Error().Err(err).Int64("simulation_id", id).Msg("failed to delete simulation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("simulation_id", id).Msg("simulation deleted")
	c.Status(http.StatusNoContent)
}
