package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"dnd-grid/internal/domain"
	"dnd-grid/internal/service"
)

type mockCharacterRepo struct {
	characters map[int64]domain.Character
}

func (m *mockCharacterRepo) GetForOwner(_ context.Context, id int64, userID string) (domain.Character, error) {
	character, ok := m.characters[id]
	if !ok || character.UserID != userID {
		return domain.Character{}, pgx.ErrNoRows
	}
	return character, nil
}

func setupCharacterRouter(repo *mockCharacterRepo, jwtSvc *service.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewCharacterHandler(zap.NewNop(), repo)
	auth := r.Group("/")
	auth.Use(JWTAuthMiddleware(jwtSvc))
	auth.GET("/characters/:id", h.GetCharacter)
	return r
}

func TestCharacterHandlerGet_Success(t *testing.T) {
	repo := &mockCharacterRepo{characters: map[int64]domain.Character{
		7: {
			ID:        7,
			UserID:    "u1",
			Name:      "Izra",
			MaxHP:     24,
			CurrentHP: 18,
			SpellSlots: []domain.SpellSlot{
				{Level: 1, Total: 4, Used: 1},
			},
			CreatedAt: time.Now().UTC(),
		},
	}}
	jwtSvc := newJWTService()
	r := setupCharacterRouter(repo, jwtSvc)

	rec := performAuthedRequest(r, http.MethodGet, "/characters/7", nil, authHeaderFor(t, jwtSvc))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCharacterHandlerGet_NotFound(t *testing.T) {
	jwtSvc := newJWTService()
	r := setupCharacterRouter(&mockCharacterRepo{characters: map[int64]domain.Character{}}, jwtSvc)

	rec := performAuthedRequest(r, http.MethodGet, "/characters/7", nil, authHeaderFor(t, jwtSvc))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestCharacterHandlerGet_OtherOwnerLooksMissing(t *testing.T) {
	repo := &mockCharacterRepo{characters: map[int64]domain.Character{
		7: {ID: 7, UserID: "someone-else", Name: "Izra"},
	}}
	jwtSvc := newJWTService()
	r := setupCharacterRouter(repo, jwtSvc)

	rec := performAuthedRequest(r, http.MethodGet, "/characters/7", nil, authHeaderFor(t, jwtSvc))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestCharacterHandlerGet_InvalidID(t *testing.T) {
	jwtSvc := newJWTService()
	r := setupCharacterRouter(&mockCharacterRepo{characters: map[int64]domain.Character{}}, jwtSvc)

	rec := performAuthedRequest(r, http.MethodGet, "/characters/abc", nil, authHeaderFor(t, jwtSvc))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
