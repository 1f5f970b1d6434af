package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/livraison/courier-tracking/internal/core/broadcast"
	"github.com/livraison/courier-tracking/internal/core/domain"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingInterval      = 30 * time.Second
	heartbeatInterval = 15 * time.Second
	maxInboundMessage = 512
)

var errStreamClosed = errors.New("stream closed")

// LiveHub is the part of the broadcast hub a live connection needs.
type LiveHub interface {
	Subscribe(sink broadcast.Sink) string
	Unsubscribe(id string)
	Done(id string) <-chan struct{}
}

// LiveHandler adapts WebSocket and SSE connections to hub subscriptions.
// The feed is one-way: anything a WebSocket client sends is discarded.
type LiveHandler struct {
	hub       LiveHub
	log       zerolog.Logger
	upgrader  websocket.Upgrader
	ping      time.Duration
	heartbeat time.Duration
}

func NewLiveHandler(hub LiveHub, log zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4 * 1024,
		},
		ping:      pingInterval,
		heartbeat: heartbeatInterval,
	}
}

// --- WebSocket ---

// wsSink writes each event as a JSON text frame, or a msgpack binary frame
// when the client asked for ?format=msgpack.
type wsSink struct {
	conn   *websocket.Conn
	binary bool
}

func (s *wsSink) Deliver(ctx context.Context, ev domain.PositionEvent) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	if s.binary {
		b, err := msgpack.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		return s.conn.WriteMessage(websocket.BinaryMessage, b)
	}
	return s.conn.WriteJSON(ev)
}

// WebSocket handles GET /ws/tracking/.
//
// @Summary      Live position feed (WebSocket)
// @Tags         live
// @Param        format  query  string  false  "json (default) or msgpack"
// @Success      101
// @Router       /ws/tracking/ [get]
func (h *LiveHandler) WebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	id := h.hub.Subscribe(&wsSink{conn: conn, binary: c.QueryParam("format") == "msgpack"})
	defer h.hub.Unsubscribe(id)
	done := h.hub.Done(id)

	log := h.log.With().Str("subscriber_id", id).Str("remote", c.RealIP()).Logger()
	log.Info().Msg("websocket connected")
	defer log.Info().Msg("websocket disconnected")

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		conn.SetReadLimit(maxInboundMessage)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("websocket read failed")
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()

	for {
		select {
		case <-readerDone:
			return nil
		case <-done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return nil
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		}
	}
}

// --- Server-sent events ---

// chanSink hands events to the streaming handler goroutine, which owns the
// response writer.
type chanSink struct {
	events chan domain.PositionEvent
	gone   <-chan struct{}
}

func (s *chanSink) Deliver(ctx context.Context, ev domain.PositionEvent) error {
	select {
	case s.events <- ev:
		return nil
	case <-s.gone:
		return errStreamClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stream handles GET /positions/stream/ as a text/event-stream.
//
// @Summary      Live position feed (server-sent events)
// @Tags         live
// @Produce      text/event-stream
// @Success      200
// @Router       /positions/stream/ [get]
func (h *LiveHandler) Stream(c echo.Context) error {
	ctx := c.Request().Context()
	w := c.Response()

	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	sink := &chanSink{events: make(chan domain.PositionEvent), gone: ctx.Done()}
	id := h.hub.Subscribe(sink)
	defer h.hub.Unsubscribe(id)
	done := h.hub.Done(id)

	log := h.log.With().Str("subscriber_id", id).Str("remote", c.RealIP()).Logger()
	log.Info().Msg("event stream opened")
	defer log.Info().Msg("event stream closed")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case ev := <-sink.events:
			b, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("encode event: %w", err)
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
				return nil
			}
			w.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
