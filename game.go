// Guessbox websocket transport
//
// Every browser holds one websocket to /play/ws. The connection is assigned
// a fresh ID at upgrade time, which doubles as the player key inside
// whichever room the connection creates or joins. Intents arrive as JSON
// messages with a type discriminator; notifications and full room snapshots
// are pushed back the same way. An in-browser QR button shares the room's
// join URL, backed by go-qrcode.

package main

import (
	"log"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Largest accepted submission. Every value up to this is exactly
// representable in float64, converts to int without overflow, and keeps
// round totals far from the int range even with a full room.
const maxSubmitValue = 1e15

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn     *websocket.Conn
	id       string
	roomCode string // owned by the readPump goroutine

	mu     sync.Mutex
	closed bool
	send   chan any
}

// trySend queues a message without blocking. A client whose buffer is full
// is considered dead: its channel is closed so the write pump tears the
// connection down, and the caller should stop addressing it.
func (c *client) trySend(msg any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		c.closed = true
		close(c.send)
		return false
	}
}

func (c *client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) readPump(reg *Registry) {
	defer func() {
		reg.removeConn(c)
		c.closeSend()
		_ = c.conn.Close()
	}()

	for {
		var msg IntentMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		reg.dispatch(c, msg)
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// dispatch validates an intent at the transport boundary and applies it.
// Rejections come back to the acting client as error notifications.
func (reg *Registry) dispatch(c *client, msg IntentMessage) {
	code := strings.ToUpper(strings.TrimSpace(msg.RoomCode))

	switch msg.Type {
	case "createRoom":
		name := strings.TrimSpace(msg.PlayerName)
		if name == "" {
			c.trySend(errorMessage(errNameRequired))
			return
		}
		if c.roomCode != "" {
			c.trySend(errorMessage(errAlreadyInRoom))
			return
		}
		c.roomCode = reg.createRoom(c, name, msg.ImageRef)

	case "joinRoom":
		name := strings.TrimSpace(msg.PlayerName)
		if name == "" {
			c.trySend(errorMessage(errNameRequired))
			return
		}
		if c.roomCode != "" {
			c.trySend(errorMessage(errAlreadyInRoom))
			return
		}
		if err := reg.joinRoom(code, c, name, msg.ImageRef); err != nil {
			c.trySend(errorMessage(err))
			return
		}
		c.roomCode = code

	case "updateQuestion":
		room := reg.lookup(code)
		if room == nil {
			c.trySend(errorMessage(errRoomNotFound))
			return
		}
		if err := room.setQuestion(c.id, msg.Question); err != nil {
			c.trySend(errorMessage(err))
		}

	case "submitValue":
		sub := Submission{}
		if msg.Submitted {
			if msg.Value == nil || *msg.Value < 0 || *msg.Value > maxSubmitValue || *msg.Value != math.Trunc(*msg.Value) {
				c.trySend(errorMessage(errInvalidValue))
				return
			}
			sub = submissionOf(int(*msg.Value))
		}
		room := reg.lookup(code)
		if room == nil {
			c.trySend(errorMessage(errRoomNotFound))
			return
		}
		if err := room.submitValue(c.id, sub); err != nil {
			c.trySend(errorMessage(err))
		}

	case "viewResults":
		room := reg.lookup(code)
		if room == nil {
			c.trySend(errorMessage(errRoomNotFound))
			return
		}
		if err := room.viewResults(c.id); err != nil {
			c.trySend(errorMessage(err))
		}

	case "resetRound":
		room := reg.lookup(code)
		if room == nil {
			c.trySend(errorMessage(errRoomNotFound))
			return
		}
		if err := room.resetRound(c.id); err != nil {
			c.trySend(errorMessage(err))
		}

	default:
		// ignore unknown types
	}
}

func serveWS(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		c := &client{
			conn: conn,
			id:   uuid.NewString(),
			send: make(chan any, 16),
		}

		logf(cfg, "SERVE: Connection %s from %s", c.id, realIP(r))

		go c.writePump()
		c.readPump(reg)
	}
}

// joinURL builds the shareable link for a room, pointing at the client's
// mount path and deriving the scheme from TLS and X-Forwarded-Proto.
func joinURL(cfg *Config, path string, r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + cfg.prefix + path + "?code=" + code
}

// QR handler: generates a PNG QR code for a room's join URL using go-qrcode.
func qrHandler(cfg *Config, path string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")
		if code == "" {
			http.Error(w, "missing room code", http.StatusBadRequest)
			return
		}

		url := joinURL(cfg, path, r, code)

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func getIndexHandler(cfg *Config) httprouter.Handle {
	data, err := assets.ReadFile("assets/game/index.html")
	if err != nil {
		panic("missing embedded client: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(data)
	}
}

// registerGuessGame sets up routes so that:
//   - $path                → HTML client (lobby + room views)
//   - $path/ws             → the game websocket
//   - /qr/:code            → PNG QR code linking to a room's join URL
//   - /assets/game/*       → shared client assets
func registerGuessGame(cfg *Config, path string, mux *httprouter.Router, errs chan<- error) {
	reg := newRegistry(cfg)

	mux.GET(cfg.prefix+path, getIndexHandler(cfg))

	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, reg))

	mux.GET(cfg.prefix+"/qr/:code", qrHandler(cfg, path))

	mux.GET(cfg.prefix+"/assets/game/app.css", serveAssets(cfg, errs))
	mux.GET(cfg.prefix+"/assets/game/app.js", serveAssets(cfg, errs))
}
