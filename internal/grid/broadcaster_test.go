package grid

import (
	"encoding/json"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type flakySub struct {
	mu       sync.Mutex
	accept   bool
	received int
}

func (s *flakySub) Deliver(_ []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accept {
		return false
	}
	s.received++
	return true
}

func (s *flakySub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

func TestPublishIncludesOriginator(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	sender := &flakySub{accept: true}
	observer := &flakySub{accept: true}
	b.Subscribe("abc", sender)
	b.Subscribe("abc", observer)

	b.Publish("abc", EventTokenMoved, TokenMovedPayload{TokenID: 1, X: 2, Y: 3})

	if sender.count() != 1 {
		t.Fatalf("sender did not receive its own event")
	}
	if observer.count() != 1 {
		t.Fatalf("observer did not receive the event")
	}
}

func TestPublishSkipsOtherRooms(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	inRoom := &flakySub{accept: true}
	elsewhere := &flakySub{accept: true}
	b.Subscribe("abc", inRoom)
	b.Subscribe("xyz", elsewhere)

	b.Publish("abc", EventPresence, PresencePayload{User: "dm", Action: "join"})

	if inRoom.count() != 1 {
		t.Fatalf("room member missed the event")
	}
	if elsewhere.count() != 0 {
		t.Fatalf("event leaked to another room")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	sub := &flakySub{accept: true}
	b.Subscribe("abc", sub)
	b.Unsubscribe("abc", sub)

	b.Publish("abc", EventPresence, PresencePayload{User: "dm", Action: "leave"})

	if sub.count() != 0 {
		t.Fatalf("unsubscribed connection still receives events")
	}
}

func TestUnsubscribeUnknownIsNoOp(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	b.Unsubscribe("nope", &flakySub{})
	if b.RoomSize("nope") != 0 {
		t.Fatalf("phantom room created")
	}
}

func TestFailedDeliveryDropsSubscriber(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	dead := &flakySub{accept: false}
	alive := &flakySub{accept: true}
	b.Subscribe("abc", dead)
	b.Subscribe("abc", alive)

	b.Publish("abc", EventTokenRemoved, TokenRemovedPayload{TokenID: 1})

	if alive.count() != 1 {
		t.Fatalf("healthy subscriber affected by a dead one")
	}
	if b.RoomSize("abc") != 1 {
		t.Fatalf("dead subscriber not dropped, room size %d", b.RoomSize("abc"))
	}
}

func TestUnsubscribeAllReturnsCodes(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	sub := &flakySub{accept: true}
	b.Subscribe("abc", sub)
	b.Subscribe("xyz", sub)

	codes := b.UnsubscribeAll(sub)
	if len(codes) != 2 {
		t.Fatalf("expected 2 codes, got %v", codes)
	}
	if b.RoomSize("abc") != 0 || b.RoomSize("xyz") != 0 {
		t.Fatalf("rooms not emptied")
	}
}

func TestPublishedEnvelopeShape(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	var captured []byte
	sub := captureSub{store: &captured}
	b.Subscribe("abc", sub)

	b.Publish("abc", EventTokenMoved, TokenMovedPayload{TokenID: 7, X: 1, Y: 2})

	var env Envelope
	if err := json.Unmarshal(captured, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Event != EventTokenMoved {
		t.Fatalf("unexpected event %q", env.Event)
	}
	var payload TokenMovedPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.TokenID != 7 || payload.X != 1 || payload.Y != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

type captureSub struct {
	store *[]byte
}

func (s captureSub) Deliver(message []byte) bool {
	*s.store = message
	return true
}
