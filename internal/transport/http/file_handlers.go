package http

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Beds-2-Bytes/backend/internal/store"
)

// FileHandlers provides HTTP handlers for uploaded simulation artifacts.
// Files land on local disk under uploadDir with uuid names; the original
// client-supplied name lives only in the database row.
type FileHandlers struct {
	store     store.Store
	uploadDir string
	log       *zerolog.Logger
}

// NewFileHandlers creates a new file handlers instance.
func NewFileHandlers(st store.Store, uploadDir string, logger *zerolog.Logger) *FileHandlers {
	return &FileHandlers{
		store:     st,
		uploadDir: uploadDir,
		log:       logger,
	}
}

// FileResponse represents a file record in API responses.
type FileResponse struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	SimulationID int64  `json:"simulation_id"`
	FileName     string `json:"file_name"`
	CreatedAt    string `json:"created_at"`
}

func fileResponse(f *store.File) FileResponse {
	return FileResponse{
		ID:           f.ID,
		UserID:       f.UserID,
		SimulationID: f.SimulationID,
		FileName:     f.FileName,
		CreatedAt:    f.CreatedAt.Format(time.RFC3339),
	}
}

// UploadFile handles a multipart upload attached to a simulation.
// POST /api/files (form fields: simulation_id, file)
func (h *FileHandlers) UploadFile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	simulationID, err := strconv.ParseInt(c.PostForm("simulation_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid simulation_id"})
		return
	}

	if _, err := h.store.GetSimulationByID(c.Request.Context(), simulationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "simulation not found"})
			return
		}
		h.log.Error().Err(err).Int64("simulation_id", simulationID).Msg("failed to check simulation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	upload, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing file"})
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.log.Error().Err(err).Str("dir", h.uploadDir).Msg("failed to create upload dir")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	storedName := uuid.NewString() + filepath.Ext(upload.Filename)
	storedPath := filepath.Join(h.uploadDir, storedName)
	if err := c.SaveUploadedFile(upload, storedPath); err != nil {
		h.log.Error().Err(err).Str("path", storedPath).Msg("failed to save upload")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	record, err := h.store.CreateFile(c.Request.Context(), &store.File{
		UserID:       userID,
		SimulationID: simulationID,
		FileName:     filepath.Base(upload.Filename),
		FilePath:     storedPath,
	})
	if err != nil {
		// The row failed, so the blob on disk is an orphan.
		_ = os.Remove(storedPath)
		h.log.Error().Err(err).Int64("simulation_id", simulationID).Msg("failed to record file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("file_id", record.ID).Int64("simulation_id", simulationID).Str("file_name", record.FileName).Msg("file uploaded")
	c.JSON(http.StatusCreated, fileResponse(record))
}

// ListFiles lists files attached to a simulation.
// GET /api/simulations/:id/files
func (h *FileHandlers) ListFiles(c *gin.Context) {
	simulationID, ok := pathID(c)
	if !ok {
		return
	}

	files, err := h.store.ListFilesBySimulation(c.Request.Context(), simulationID)
	if err != nil {
		h.log.Error().Err(err).Int64("simulation_id", simulationID).Msg("failed to list files")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]FileResponse, 0, len(files))
	for _, f := range files {
		response = append(response, fileResponse(f))
	}
	c.JSON(http.StatusOK, response)
}

// DownloadFile streams a stored file back under its original name.
// GET /api/files/:id
func (h *FileHandlers) DownloadFile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	record, err := h.store.GetFileByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "file not found"})
			return
		}
		h.log.Error().Err(err).Int64("file_id", id).Msg("failed to get file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.FileAttachment(record.FilePath, record.FileName)
}

// DeleteFile removes a file record and its blob.
// DELETE /api/files/:id
func (h *FileHandlers) DeleteFile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	record, err := h.store.GetFileByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "file not found"})
			return
		}
		h.log.Error().Err(err).Int64("file_id", id).Msg("failed to get file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.DeleteFile(c.Request.Context(), id); err != nil {
		h.log.Error().Err(err).Int64("file_id", id).Msg("failed to delete file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := os.Remove(record.FilePath); err != nil && !os.IsNotExist(err) {
		h.log.Warn().Err(err).Str("path", record.FilePath).Msg("failed to remove file blob")
	}

	h.log.Info().Int64("file_id", id).Msg("file deleted")
	c.Status(http.StatusNoContent)
}
