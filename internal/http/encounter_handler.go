package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"dnd-grid/internal/domain"
	"dnd-grid/internal/repository"
)

// EncounterHandler mantiene dependencias para endpoints de encuentros.
type EncounterHandler struct {
	logger     *zap.Logger
	encounters repository.EncounterRepository
}

func NewEncounterHandler(logger *zap.Logger, encounters repository.EncounterRepository) *EncounterHandler {
	return &EncounterHandler{
		logger:     logger,
		encounters: encounters,
	}
}

// GetEncounter maneja GET /encounters/:code.
func (h *EncounterHandler) GetEncounter(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session code"})
		return
	}

	enc, err := h.encounters.GetEncounterByCode(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "encounter not found"})
			return
		}
		h.logger.Error("get encounter failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not get encounter"})
		return
	}

	tokens, err := h.encounters.ListTokensForEncounter(c.Request.Context(), enc.ID)
	if err != nil {
		h.logger.Error("list tokens failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not get encounter"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"encounter": enc, "tokens": tokens})
}

// UpdateStatus maneja PATCH /encounters/:code/status.
func (h *EncounterHandler) UpdateStatus(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session code"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update status request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !domain.ValidEncounterStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	if _, err := h.encounters.GetEncounterByCode(c.Request.Context(), code); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "encounter not found"})
			return
		}
		h.logger.Error("get encounter failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update status"})
		return
	}

	if err := h.encounters.UpdateEncounterStatus(c.Request.Context(), code, status); err != nil {
		h.logger.Error("update status failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_code": code, "status": status})
}
