package grid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"dnd-grid/internal/domain"
	"dnd-grid/internal/repository"
)

// ErrWriteThrough señala que la mutación quedó aplicada en memoria pero la
// escritura al Store falló. La sesión en vivo no se detiene por un tropiezo
// de durabilidad; el caller recibe este error como aviso suave.
var ErrWriteThrough = errors.New("write-through failed")

const defaultTokenColor = "#444444"

// Defaults define la geometría con la que se crea un encuentro en el primer
// join de un code desconocido.
type Defaults struct {
	Width  int
	Height int
	CellPX int
}

// Coordinator reconcilia la vista caliente (Cache) con la vista fría (Store):
// valida y recorta mutaciones, decide qué se persiste y qué se difunde.
// Toda operación sobre un session code corre bajo el lock de su entrada, y la
// difusión ocurre dentro de esa exclusión, así el orden de eventos por code
// coincide con el orden en que se aplicaron a la cache.
type Coordinator struct {
	logger   *zap.Logger
	store    repository.EncounterRepository
	cache    *Cache
	rooms    *Broadcaster
	defaults Defaults
}

func NewCoordinator(logger *zap.Logger, store repository.EncounterRepository, cache *Cache, rooms *Broadcaster, defaults Defaults) *Coordinator {
	if defaults.Width <= 0 {
		defaults.Width = 100
	}
	if defaults.Height <= 0 {
		defaults.Height = 100
	}
	if defaults.CellPX <= 0 {
		defaults.CellPX = 48
	}
	return &Coordinator{
		logger:   logger,
		store:    store,
		cache:    cache,
		rooms:    rooms,
		defaults: defaults,
	}
}

// Join asegura que exista el encuentro (creándolo con los defaults si el code
// es nuevo), materializa la entrada en cache, suscribe la conexión y devuelve
// el snapshot actual. Sobre una sesión ya cacheada no toca el Store.
func (c *Coordinator) Join(ctx context.Context, code, user string, sub Subscriber) (StatePayload, error) {
	e := c.cache.Acquire(code)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := c.ensureLoaded(ctx, e, code); err != nil {
		return StatePayload{}, err
	}

	c.rooms.Subscribe(code, sub)
	c.rooms.Publish(code, EventPresence, PresencePayload{User: user, Action: "join"})
	c.logger.Info("user joined grid", zap.String("code", code), zap.String("user", user))
	return e.snapshotLocked(), nil
}

// Leave retira solo la suscripción; no muta estado de sesión y nunca falla.
func (c *Coordinator) Leave(code, user string, sub Subscriber) {
	c.rooms.Unsubscribe(code, sub)
	c.rooms.Publish(code, EventPresence, PresencePayload{User: user, Action: "leave"})
}

// Disconnect limpia todas las suscripciones de una conexión caída. No depende
// de que el cliente haya enviado leave_grid.
func (c *Coordinator) Disconnect(user string, sub Subscriber) {
	for _, code := range c.rooms.UnsubscribeAll(sub) {
		c.rooms.Publish(code, EventPresence, PresencePayload{User: user, Action: "leave"})
	}
}

// RequestState devuelve el snapshot cacheado. Si la entrada no existe aplica
// la misma carga perezosa que Join: un request_state antes del join funciona.
func (c *Coordinator) RequestState(ctx context.Context, code string) (StatePayload, error) {
	e := c.cache.Acquire(code)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := c.ensureLoaded(ctx, e, code); err != nil {
		return StatePayload{}, err
	}
	return e.snapshotLocked(), nil
}

// SpawnToken recorta las coordenadas, persiste el token (el id durable lo
// asigna el Store; la cache nunca pre-asigna ids) y lo difunde. Si el Store
// falla el spawn se aborta: sin id autoritativo no hay token.
func (c *Coordinator) SpawnToken(ctx context.Context, p SpawnTokenPayload) (domain.Token, error) {
	e := c.cache.Acquire(p.Code)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := c.ensureLoaded(ctx, e, p.Code); err != nil {
		return domain.Token{}, err
	}

	name := p.Name
	if name == "" {
		name = "Token"
	}
	color := p.Color
	if color == "" {
		color = defaultTokenColor
	}

	token := domain.Token{
		EncounterID: e.EncounterID,
		CharacterID: p.CharacterID,
		Name:        name,
		X:           clamp(p.X, e.Width),
		Y:           clamp(p.Y, e.Height),
		Color:       color,
		CreatedAt:   time.Now().UTC(),
	}

	token, err := c.store.CreateToken(ctx, token)
	if err != nil {
		c.logger.Error("create token failed", zap.String("code", p.Code), zap.Error(err))
		return domain.Token{}, err
	}

	e.Tokens[token.ID] = token
	c.rooms.Publish(p.Code, EventTokenSpawned, token)
	c.rooms.Publish(p.Code, EventState, e.snapshotLocked())
	c.logger.Info("token spawned",
		zap.String("code", p.Code),
		zap.Int64("token_id", token.ID),
		zap.Float64("x", token.X),
		zap.Float64("y", token.Y),
	)
	return token, nil
}

// MoveToken actualiza la posición en cache y hace write-through al Store.
// Un id desconocido es un no-op silencioso: entre un move y un remove
// concurrentes, gana el remove. Si la escritura al Store falla, la cache NO
// se revierte y la difusión igual sale; el caller recibe ErrWriteThrough.
func (c *Coordinator) MoveToken(ctx context.Context, code string, tokenID int64, x, y float64) (domain.Token, bool, error) {
	e := c.cache.Acquire(code)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := c.ensureLoaded(ctx, e, code); err != nil {
		return domain.Token{}, false, err
	}

	token, ok := e.Tokens[tokenID]
	if !ok {
		return domain.Token{}, false, nil
	}

	token.X = clamp(x, e.Width)
	token.Y = clamp(y, e.Height)
	e.Tokens[tokenID] = token

	var soft error
	if err := c.store.UpdateTokenPosition(ctx, tokenID, token.X, token.Y); err != nil {
		c.logger.Warn("token position write-through failed",
			zap.String("code", code),
			zap.Int64("token_id", tokenID),
			zap.Error(err),
		)
		soft = fmt.Errorf("%w: %v", ErrWriteThrough, err)
	}

	c.rooms.Publish(code, EventTokenMoved, TokenMovedPayload{TokenID: tokenID, X: token.X, Y: token.Y})
	return token, true, soft
}

// RemoveToken borra de la cache y del Store. Es idempotente: un id ausente no
// es error y no difunde nada.
func (c *Coordinator) RemoveToken(ctx context.Context, code string, tokenID int64) error {
	e := c.cache.Acquire(code)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := c.ensureLoaded(ctx, e, code); err != nil {
		return err
	}

	if _, ok := e.Tokens[tokenID]; !ok {
		return nil
	}
	delete(e.Tokens, tokenID)

	var soft error
	if err := c.store.DeleteToken(ctx, tokenID); err != nil {
		c.logger.Warn("token delete write-through failed",
			zap.String("code", code),
			zap.Int64("token_id", tokenID),
			zap.Error(err),
		)
		soft = fmt.Errorf("%w: %v", ErrWriteThrough, err)
	}

	c.rooms.Publish(code, EventTokenRemoved, TokenRemovedPayload{TokenID: tokenID})
	return soft
}

// ensureLoaded materializa la entrada desde el Store la primera vez que se
// toca un code en este proceso. El caller sostiene e.mu, así que dos handlers
// concurrentes sobre el mismo code no cargan por duplicado.
func (c *Coordinator) ensureLoaded(ctx context.Context, e *Entry, code string) error {
	if e.loaded {
		return nil
	}

	enc, err := c.store.GetEncounterByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		now := time.Now().UTC()
		enc, err = c.store.CreateEncounter(ctx, domain.Encounter{
			SessionCode: code,
			Name:        "Encounter " + code,
			Status:      domain.EncounterStatusActive,
			Width:       c.defaults.Width,
			Height:      c.defaults.Height,
			CellPX:      c.defaults.CellPX,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}
		c.logger.Info("encounter created", zap.String("code", code), zap.Int64("encounter_id", enc.ID))
	}

	tokens, err := c.store.ListTokensForEncounter(ctx, enc.ID)
	if err != nil {
		return err
	}

	e.EncounterID = enc.ID
	e.Name = enc.Name
	e.Width = enc.Width
	e.Height = enc.Height
	e.CellPX = enc.CellPX
	for _, t := range tokens {
		e.Tokens[t.ID] = t
	}
	e.loaded = true
	return nil
}

// clamp mantiene la coordenada dentro de [0, size-1]. Es la única regla de
// validación geométrica del sistema.
func clamp(v float64, size int) float64 {
	limit := float64(size - 1)
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
