package grid

import (
	"sync"

	"go.uber.org/zap"
)

// Subscriber es una conexión capaz de recibir eventos ya serializados.
// Deliver devuelve false si el mensaje no pudo encolarse (conexión muerta o
// buffer saturado).
type Subscriber interface {
	Deliver(message []byte) bool
}

// Broadcaster reparte eventos a todas las conexiones suscritas a un session
// code, incluido el originador: la vista local de quien mutó converge por el
// mismo flujo de eventos que la de los demás.
type Broadcaster struct {
	logger *zap.Logger
	mu     sync.RWMutex
	rooms  map[string]map[Subscriber]bool
}

func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger,
		rooms:  make(map[string]map[Subscriber]bool),
	}
}

func (b *Broadcaster) Subscribe(code string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	room, ok := b.rooms[code]
	if !ok {
		room = make(map[Subscriber]bool)
		b.rooms[code] = room
	}
	room[sub] = true
}

// Unsubscribe retira la suscripción; sobre una inexistente es un no-op.
func (b *Broadcaster) Unsubscribe(code string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(code, sub)
}

// UnsubscribeAll retira la conexión de todas las salas y devuelve los codes
// que abandonó. Se invoca al cerrarse el transporte, sin depender de un
// leave_grid explícito.
func (b *Broadcaster) UnsubscribeAll(sub Subscriber) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var codes []string
	for code, room := range b.rooms {
		if room[sub] {
			b.removeLocked(code, sub)
			codes = append(codes, code)
		}
	}
	return codes
}

// RoomSize devuelve cuántas conexiones observan el session code.
func (b *Broadcaster) RoomSize(code string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[code])
}

// Publish serializa el evento una sola vez y lo entrega a cada suscriptor de
// la sala. Un suscriptor que no acepta la entrega se descarta: su caída no
// afecta al resto.
func (b *Broadcaster) Publish(code, event string, payload any) {
	msg, err := Encode(event, payload)
	if err != nil {
		b.logger.Error("encode event failed", zap.String("event", event), zap.Error(err))
		return
	}

	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.rooms[code]))
	for s := range b.rooms[code] {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		if !s.Deliver(msg) {
			b.logger.Debug("dropping unresponsive subscriber",
				zap.String("code", code),
				zap.String("event", event),
			)
			b.Unsubscribe(code, s)
		}
	}
}

func (b *Broadcaster) removeLocked(code string, sub Subscriber) {
	room, ok := b.rooms[code]
	if !ok {
		return
	}
	delete(room, sub)
	if len(room) == 0 {
		delete(b.rooms, code)
	}
}
