package domain

import "time"

// Estados administrativos de un encuentro.
const (
	EncounterStatusActive   = "active"
	EncounterStatusPaused   = "paused"
	EncounterStatusComplete = "complete"
)

// Encounter es una sesion colaborativa de grilla identificada por session_code.
type Encounter struct {
	ID          int64     `json:"id"`
	SessionCode string    `json:"session_code"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	CellPX      int       `json:"cell_px"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Token es un marcador posicionado en la grilla de un encuentro.
// CharacterID es opcional: un token no necesita representar un personaje.
type Token struct {
	ID          int64     `json:"id"`
	EncounterID int64     `json:"-"`
	CharacterID *int64    `json:"character_id"`
	Name        string    `json:"name"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"-"`
}

// ValidEncounterStatus indica si status es un estado de ciclo de vida conocido.
func ValidEncounterStatus(status string) bool {
	switch status {
	case EncounterStatusActive, EncounterStatusPaused, EncounterStatusComplete:
		return true
	}
	return false
}
