package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"dnd-grid/internal/domain"
)

// EncounterRepository define el contrato de persistencia para encuentros y tokens.
type EncounterRepository interface {
	CreateEncounter(ctx context.Context, enc domain.Encounter) (domain.Encounter, error)
	GetEncounterByCode(ctx context.Context, code string) (domain.Encounter, error)
	UpdateEncounterStatus(ctx context.Context, code, status string) error
	CreateToken(ctx context.Context, token domain.Token) (domain.Token, error)
	UpdateTokenPosition(ctx context.Context, tokenID int64, x, y float64) error
	DeleteToken(ctx context.Context, tokenID int64) error
	ListTokensForEncounter(ctx context.Context, encounterID int64) ([]domain.Token, error)
}

// PgEncounterRepository implementa EncounterRepository usando pgxpool.
type PgEncounterRepository struct {
	pool *pgxpool.Pool
}

func NewPgEncounterRepository(pool *pgxpool.Pool) *PgEncounterRepository {
	return &PgEncounterRepository{pool: pool}
}

func (r *PgEncounterRepository) CreateEncounter(ctx context.Context, enc domain.Encounter) (domain.Encounter, error) {
	const query = `
		INSERT INTO encounters (session_code, name, status, grid_width, grid_height, cell_px, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		enc.SessionCode,
		enc.Name,
		enc.Status,
		enc.Width,
		enc.Height,
		enc.CellPX,
		enc.CreatedAt,
		enc.UpdatedAt,
	).Scan(&enc.ID)
	return enc, err
}

func (r *PgEncounterRepository) GetEncounterByCode(ctx context.Context, code string) (domain.Encounter, error) {
	const query = `
		SELECT id, session_code, name, status, grid_width, grid_height, cell_px, created_at, updated_at
		FROM encounters
		WHERE session_code = $1
	`
	var enc domain.Encounter
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&enc.ID,
		&enc.SessionCode,
		&enc.Name,
		&enc.Status,
		&enc.Width,
		&enc.Height,
		&enc.CellPX,
		&enc.CreatedAt,
		&enc.UpdatedAt,
	)
	return enc, err
}

func (r *PgEncounterRepository) UpdateEncounterStatus(ctx context.Context, code, status string) error {
	const query = `
		UPDATE encounters
		SET status = $1, updated_at = NOW()
		WHERE session_code = $2
	`
	_, err := r.pool.Exec(ctx, query, status, code)
	return err
}

func (r *PgEncounterRepository) CreateToken(ctx context.Context, token domain.Token) (domain.Token, error) {
	const query = `
		INSERT INTO combat_participants (encounter_id, character_id, name, x, y, color, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		token.EncounterID,
		token.CharacterID,
		token.Name,
		token.X,
		token.Y,
		token.Color,
		token.CreatedAt,
	).Scan(&token.ID)
	return token, err
}

func (r *PgEncounterRepository) UpdateTokenPosition(ctx context.Context, tokenID int64, x, y float64) error {
	const query = `
		UPDATE combat_participants
		SET x = $1, y = $2
		WHERE id = $3
	`
	_, err := r.pool.Exec(ctx, query, x, y, tokenID)
	return err
}

func (r *PgEncounterRepository) DeleteToken(ctx context.Context, tokenID int64) error {
	const query = `
		DELETE FROM combat_participants
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, tokenID)
	return err
}

func (r *PgEncounterRepository) ListTokensForEncounter(ctx context.Context, encounterID int64) ([]domain.Token, error) {
	const query = `
		SELECT id, encounter_id, character_id, name, x, y, color, created_at
		FROM combat_participants
		WHERE encounter_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.Token
	for rows.Next() {
		var t domain.Token
		if err := rows.Scan(
			&t.ID,
			&t.EncounterID,
			&t.CharacterID,
			&t.Name,
			&t.X,
			&t.Y,
			&t.Color,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}
