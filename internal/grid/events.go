package grid

import (
	"encoding/json"
	"errors"
	"strings"

	"dnd-grid/internal/domain"
)

// Nombres de eventos del protocolo de grilla (cliente -> servicio).
const (
	EventJoinGrid     = "join_grid"
	EventLeaveGrid    = "leave_grid"
	EventRequestState = "request_state"
	EventSpawnToken   = "spawn_token"
	EventMoveToken    = "move_token"
	EventRemoveToken  = "remove_token"
)

// Nombres de eventos emitidos (servicio -> suscriptores).
const (
	EventPresence     = "presence"
	EventState        = "state"
	EventTokenSpawned = "token_spawned"
	EventTokenMoved   = "token_moved"
	EventTokenRemoved = "token_removed"
	EventError        = "error"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrMissingPayload = errors.New("missing payload")
	ErrMissingCode    = errors.New("missing code")
)

// Envelope es el sobre JSON que viaja por el transporte.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinGridPayload struct {
	Code string `json:"code"`
	User string `json:"user"`
}

type LeaveGridPayload struct {
	Code string `json:"code"`
	User string `json:"user"`
}

type RequestStatePayload struct {
	Code string `json:"code"`
}

type SpawnTokenPayload struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Color       string  `json:"color"`
	CharacterID *int64  `json:"character_id"`
}

type MoveTokenPayload struct {
	Code    string  `json:"code"`
	TokenID int64   `json:"token_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type RemoveTokenPayload struct {
	Code    string `json:"code"`
	TokenID int64  `json:"token_id"`
}

// GridInfo describe la geometría del encuentro dentro de un snapshot.
type GridInfo struct {
	W      int    `json:"w"`
	H      int    `json:"h"`
	CellPX int    `json:"cell_px"`
	Name   string `json:"name"`
}

// StatePayload es el snapshot completo {grid, tokens} de una sesión.
type StatePayload struct {
	Exists bool           `json:"exists"`
	Grid   GridInfo       `json:"grid"`
	Tokens []domain.Token `json:"tokens"`
}

type PresencePayload struct {
	User   string `json:"user"`
	Action string `json:"action"`
}

type TokenMovedPayload struct {
	TokenID int64   `json:"token_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type TokenRemovedPayload struct {
	TokenID int64 `json:"token_id"`
}

type ErrorPayload struct {
	Msg string `json:"msg"`
}

// DecodeEvent valida el sobre en el borde del transporte y devuelve el payload
// tipado correspondiente. Un payload malformado nunca llega al Coordinator.
func DecodeEvent(env Envelope) (any, error) {
	switch env.Event {
	case EventJoinGrid:
		var p JoinGridPayload
		if err := unmarshalData(env.Data, &p); err != nil {
			return nil, err
		}
		if strings.TrimSpace(p.Code) == "" {
			return nil, ErrMissingCode
		}
		if strings.TrimSpace(p.User) == "" {
			p.User = "anon"
		}
		return p, nil
	case EventLeaveGrid:
		var p LeaveGridPayload
		if err := unmarshalData(env.Data, &p); err != nil {
			return nil, err
		}
		if strings.TrimSpace(p.Code) == "" {
			return nil, ErrMissingCode
		}
		if strings.TrimSpace(p.User) == "" {
			p.User = "anon"
		}
		return p, nil
	case EventRequestState:
		var p RequestStatePayload
		if err := unmarshalData(env.Data, &p); err != nil {
			return nil, err
		}
		if strings.TrimSpace(p.Code) == "" {
			return nil, ErrMissingCode
		}
		return p, nil
	case EventSpawnToken:
		var p SpawnTokenPayload
		if err := unmarshalData(env.Data, &p); err != nil {
			return nil, err
		}
		if strings.TrimSpace(p.Code) == "" {
			return nil, ErrMissingCode
		}
		return p, nil
	case EventMoveToken:
		var p MoveTokenPayload
		if err := unmarshalData(env.Data, &p); err != nil {
			return nil, err
		}
		if strings.TrimSpace(p.Code) == "" {
			return nil, ErrMissingCode
		}
		return p, nil
	case EventRemoveToken:
		var p RemoveTokenPayload
		if err := unmarshalData(env.Data, &p); err != nil {
			return nil, err
		}
		if strings.TrimSpace(p.Code) == "" {
			return nil, ErrMissingCode
		}
		return p, nil
	default:
		return nil, ErrUnknownEvent
	}
}

// Encode arma el sobre listo para enviarse por el transporte.
func Encode(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return ErrMissingPayload
	}
	return json.Unmarshal(data, v)
}
