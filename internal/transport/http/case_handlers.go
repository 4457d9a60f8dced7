package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Beds-2-Bytes/backend/internal/store"
)

// CaseHandlers provides HTTP handlers for teaching-case endpoints.
type CaseHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewCaseHandlers creates a new case handlers instance.
func NewCaseHandlers(st store.Store, logger *zerolog.Logger) *CaseHandlers {
	return &CaseHandlers{
		store: st,
		log:   logger,
	}
}

// CreateCaseRequest represents the create case request body.
type CreateCaseRequest struct {
	CaseName      string         `json:"case_name" binding:"required"`
	PatientName   string         `json:"patient_name" binding:"required"`
	PatientID     string         `json:"patient_id" binding:"required"`
	BaseValues    map[string]any `json:"base_values"`
	BaseProblem   string         `json:"base_problem" binding:"required"`
	LearningGoals string         `json:"learning_goals" binding:"required"`
	StartPoint    string         `json:"start_point" binding:"required"`
}

// UpdateCaseRequest represents a partial case update. Absent fields are left
// untouched.
type UpdateCaseRequest struct {
	CaseName      *string `json:"case_name"`
	PatientName   *string `json:"patient_name"`
	PatientID     *string `json:"patient_id"`
	BaseProblem   *string `json:"base_problem"`
	LearningGoals *string `json:"learning_goals"`
	StartPoint    *string `json:"start_point"`
}

// CaseResponse represents a case in API responses.
type CaseResponse struct {
	ID            int64          `json:"id"`
	UserID        int64          `json:"user_id"`
	CaseName      string         `json:"case_name"`
	PatientName   string         `json:"patient_name"`
	PatientID     string         `json:"patient_id"`
	BaseValues    map[string]any `json:"base_values"`
	BaseProblem   string         `json:"base_problem"`
	LearningGoals string         `json:"learning_goals"`
	StartPoint    string         `json:"start_point"`
	CreatedAt     string         `json:"created_at"`
}

func caseResponse(c *store.Case) CaseResponse {
	return CaseResponse{
		ID:            c.ID,
		UserID:        c.UserID,
		CaseName:      c.CaseName,
		PatientName:   c.PatientName,
		PatientID:     c.PatientID,
		BaseValues:    c.BaseValues,
		BaseProblem:   c.BaseProblem,
		LearningGoals: c.LearningGoals,
		StartPoint:    c.StartPoint,
		CreatedAt:     c.CreatedAt.Format(time.RFC3339),
	}
}

// ListCases handles listing all cases.
// GET /api/cases
func (h *CaseHandlers) ListCases(c *gin.Context) {
	cases, err := h.store.ListCases(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list cases")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]CaseResponse, 0, len(cases))
	for _, item := range cases {
		response = append(response, caseResponse(item))
	}
	c.JSON(http.StatusOK, response)
}

// GetCase handles fetching a single case.
// GET /api/cases/:id
func (h *CaseHandlers) GetCase(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.store.GetCaseByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "case not found"})
			return
		}
		h.log.Error().Err(err).Int64("case_id", id).Msg("failed to get case")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, caseResponse(item))
}

// CreateCase handles case creation.
// POST /api/cases
func (h *CaseHandlers) CreateCase(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create case request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	item, err := h.store.CreateCase(c.Request.Context(), &store.Case{
		UserID:        userID,
		CaseName:      req.CaseName,
		PatientName:   req.PatientName,
		PatientID:     req.PatientID,
		BaseValues:    req.BaseValues,
		BaseProblem:   req.BaseProblem,
		LearningGoals: req.LearningGoals,
		StartPoint:    req.StartPoint,
	})
	if err != nil {
		h.log.Error().Err(err).Str("case_name", req.CaseName).Msg("failed to create case")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("case_id", item.ID).Str("case_name", item.CaseName).Msg("case created")
	c.JSON(http.StatusCreated, caseResponse(item))
}

// UpdateCase handles partial case updates.
// PATCH /api/cases/:id
func (h *CaseHandlers) UpdateCase(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update case request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	item, err := h.store.UpdateCase(c.Request.Context(), id, store.CaseUpdate{
		CaseName:      req.CaseName,
		PatientName:   req.PatientName,
		PatientID:     req.PatientID,
		BaseProblem:   req.BaseProblem,
		LearningGoals: req.LearningGoals,
		StartPoint:    req.StartPoint,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "case not found"})
			return
		}
		h.log.Error().Err(err).Int64("case_id", id).Msg("failed to update case")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, caseResponse(item))
}

// DeleteCase handles case deletion.
// DELETE /api/cases/:id
func (h *CaseHandlers) DeleteCase(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.store.DeleteCase(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "case not found"})
			return
		}
		h.log.Error().Err(err).Int64("case_id", id).Msg("failed to delete case")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("case_id", id).Msg("case deleted")
	c.Status(http.StatusNoContent)
}

// pathID parses the :id path parameter, responding 400 on garbage.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}
