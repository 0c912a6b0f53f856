package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"dnd-grid/internal/repository"
)

// CharacterHandler mantiene dependencias para endpoints de personajes.
type CharacterHandler struct {
	logger     *zap.Logger
	characters repository.CharacterRepository
}

func NewCharacterHandler(logger *zap.Logger, characters repository.CharacterRepository) *CharacterHandler {
	return &CharacterHandler{
		logger:     logger,
		characters: characters,
	}
}

// GetCharacter maneja GET /characters/:id.
func (h *CharacterHandler) GetCharacter(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid character id"})
		return
	}

	character, err := h.characters.GetForOwner(c.Request.Context(), id, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
			return
		}
		h.logger.Error("get character failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not get character"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"character": character})
}
