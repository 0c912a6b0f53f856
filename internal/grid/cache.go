package grid

import (
	"sort"
	"sync"

	"dnd-grid/internal/domain"
)

// Entry es la vista materializada de un encuentro en memoria. El mutex propio
// de cada entrada serializa toda operación sobre un session code; entradas de
// codes distintos no se bloquean entre sí.
type Entry struct {
	mu     sync.Mutex
	loaded bool

	EncounterID int64
	Name        string
	Width       int
	Height      int
	CellPX      int
	Tokens      map[int64]domain.Token
}

// snapshotLocked arma el snapshot {grid, tokens} de la entrada.
// El caller debe sostener e.mu.
func (e *Entry) snapshotLocked() StatePayload {
	tokens := make([]domain.Token, 0, len(e.Tokens))
	for _, t := range e.Tokens {
		tokens = append(tokens, t)
	}
	// Los ids son seriales del Store, asi que ordenar por id reproduce el
	// orden de creación.
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].ID < tokens[j].ID })
	return StatePayload{
		Exists: true,
		Grid: GridInfo{
			W:      e.Width,
			H:      e.Height,
			CellPX: e.CellPX,
			Name:   e.Name,
		},
		Tokens: tokens,
	}
}

// Cache mantiene las entradas calientes por session code. Es una vista
// derivada del Store, nunca autoritativa para durabilidad: tras un reinicio
// del proceso se reconstruye de forma perezosa. Sin evicción: las sesiones
// viven en memoria mientras viva el proceso.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Entry)}
}

// Acquire devuelve la entrada para code, creándola vacía (sin cargar) si no
// existe. La carga perezosa ocurre después, bajo el lock de la entrada, para
// no retener el lock del mapa durante I/O del Store.
func (c *Cache) Acquire(code string) *Entry {
	c.mu.RLock()
	e, ok := c.entries[code]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[code]; ok {
		return e
	}
	e = &Entry{Tokens: make(map[int64]domain.Token)}
	c.entries[code] = e
	return e
}

// Peek devuelve la entrada si ya existe, sin crearla.
func (c *Cache) Peek(code string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[code]
	return e, ok
}

// Len devuelve la cantidad de sesiones cacheadas.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
