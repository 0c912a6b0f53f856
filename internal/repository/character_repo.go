package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"dnd-grid/internal/domain"
)

// CharacterRepository expone la consulta de personajes que consume el sincronizador.
type CharacterRepository interface {
	GetForOwner(ctx context.Context, id int64, userID string) (domain.Character, error)
}

// PgCharacterRepository implementa CharacterRepository usando pgxpool.
type PgCharacterRepository struct {
	pool *pgxpool.Pool
}

func NewPgCharacterRepository(pool *pgxpool.Pool) *PgCharacterRepository {
	return &PgCharacterRepository{pool: pool}
}

// GetForOwner devuelve el personaje solo si pertenece a userID.
// Un personaje ajeno se reporta igual que uno inexistente (pgx.ErrNoRows).
func (r *PgCharacterRepository) GetForOwner(ctx context.Context, id int64, userID string) (domain.Character, error) {
	const query = `
		SELECT id, user_id, name, max_hp, current_hp, created_at
		FROM characters
		WHERE id = $1 AND user_id = $2
	`
	var c domain.Character
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.MaxHP,
		&c.CurrentHP,
		&c.CreatedAt,
	)
	if err != nil {
		return domain.Character{}, err
	}

	const slotsQuery = `
		SELECT level, total, used
		FROM character_spell_slots
		WHERE character_id = $1
		ORDER BY level ASC
	`
	rows, err := r.pool.Query(ctx, slotsQuery, id)
	if err != nil {
		return domain.Character{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var s domain.SpellSlot
		if err := rows.Scan(&s.Level, &s.Total, &s.Used); err != nil {
			return domain.Character{}, err
		}
		c.SpellSlots = append(c.SpellSlots, s)
	}
	if err := rows.Err(); err != nil {
		return domain.Character{}, err
	}
	return c, nil
}
