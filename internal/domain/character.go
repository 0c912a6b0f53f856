package domain

import "time"

// SpellSlot representa los espacios de conjuro de un nivel dado.
type SpellSlot struct {
	Level int `json:"level"`
	Total int `json:"total"`
	Used  int `json:"used"`
}

// Character es la vista reducida de un personaje que consume el sincronizador.
type Character struct {
	ID         int64       `json:"id"`
	UserID     string      `json:"-"`
	Name       string      `json:"name"`
	MaxHP      int         `json:"max_hp"`
	CurrentHP  int         `json:"current_hp"`
	SpellSlots []SpellSlot `json:"spell_slots"`
	CreatedAt  time.Time   `json:"created_at"`
}
