package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dnd-grid/internal/grid"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 64 * 1024
	sendBufferSize    = 256
	messagesPerSecond = 60
	messageBurst      = 120
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client adapta una conexión websocket al protocolo de grilla: decodifica
// eventos entrantes hacia el Coordinator y entrega difusiones salientes.
type Client struct {
	id      string
	logger  *zap.Logger
	coord   *grid.Coordinator
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	limiter *limiter
	user    string
}

// Handler devuelve el handler de gin que eleva la conexión a websocket y
// arranca las bombas de lectura/escritura.
func Handler(logger *zap.Logger, coord *grid.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			id:      uuid.NewString(),
			logger:  logger,
			coord:   coord,
			conn:    conn,
			send:    make(chan []byte, sendBufferSize),
			done:    make(chan struct{}),
			limiter: newLimiter(messagesPerSecond, messageBurst),
			user:    "anon",
		}

		go client.writePump()
		go client.readPump()
	}
}

// Deliver implementa grid.Subscriber. Nunca bloquea: si el buffer está lleno
// o la conexión ya cerró, reporta false y el Broadcaster descarta la conexión.
func (c *Client) Deliver(message []byte) bool {
	select {
	case <-c.done:
		return false
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		// La limpieza de suscripciones no depende de un leave_grid explicito.
		c.coord.Disconnect(c.user, c)
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			c.logger.Warn("rate limit exceeded", zap.String("conn_id", c.id))
			c.sendError("too many messages")
			continue
		}

		c.dispatch(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch valida el sobre en el borde y enruta el payload tipado. El input
// malformado se reporta solo al originador, sin tocar estado ni difundir.
func (c *Client) dispatch(raw []byte) {
	var env grid.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError("malformed message")
		return
	}

	payload, err := grid.DecodeEvent(env)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	ctx := context.Background()
	switch p := payload.(type) {
	case grid.JoinGridPayload:
		c.user = p.User
		snapshot, err := c.coord.Join(ctx, p.Code, p.User, c)
		if err != nil {
			c.logger.Error("join grid failed", zap.String("code", p.Code), zap.Error(err))
			c.sendError("could not join grid")
			return
		}
		c.sendEvent(grid.EventState, snapshot)

	case grid.LeaveGridPayload:
		c.coord.Leave(p.Code, p.User, c)

	case grid.RequestStatePayload:
		snapshot, err := c.coord.RequestState(ctx, p.Code)
		if err != nil {
			c.logger.Error("request state failed", zap.String("code", p.Code), zap.Error(err))
			c.sendError("could not load state")
			return
		}
		c.sendEvent(grid.EventState, snapshot)

	case grid.SpawnTokenPayload:
		if _, err := c.coord.SpawnToken(ctx, p); err != nil {
			c.logger.Error("spawn token failed", zap.String("code", p.Code), zap.Error(err))
			c.sendError("could not spawn token")
		}

	case grid.MoveTokenPayload:
		if _, _, err := c.coord.MoveToken(ctx, p.Code, p.TokenID, p.X, p.Y); err != nil {
			if errors.Is(err, grid.ErrWriteThrough) {
				// La mutacion sigue viva en memoria; aviso suave solo al originador.
				c.sendError("position saved in memory only")
				return
			}
			c.sendError("could not move token")
		}

	case grid.RemoveTokenPayload:
		if err := c.coord.RemoveToken(ctx, p.Code, p.TokenID); err != nil {
			if errors.Is(err, grid.ErrWriteThrough) {
				c.sendError("removal saved in memory only")
				return
			}
			c.sendError("could not remove token")
		}
	}
}

func (c *Client) sendEvent(event string, payload any) {
	message, err := grid.Encode(event, payload)
	if err != nil {
		c.logger.Error("encode event failed", zap.String("event", event), zap.Error(err))
		return
	}
	c.Deliver(message)
}

func (c *Client) sendError(msg string) {
	c.sendEvent(grid.EventError, grid.ErrorPayload{Msg: msg})
}
