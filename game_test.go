package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Decoded form of every server-to-client message.
type wsMsg struct {
	Type       string        `json:"type"`
	RoomCode   string        `json:"roomCode"`
	PlayerName string        `json:"playerName"`
	Message    string        `json:"message"`
	Room       *RoomSnapshot `json:"room"`
}

func newGameServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := testConfig()
	mux := httprouter.New()
	errs := make(chan error, 8)
	registerGuessGame(cfg, "/play", mux, errs)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dialGame(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/play/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil discards messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, wanted string) wsMsg {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for {
		var msg wsMsg
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", wanted, err)
		}
		if msg.Type == wanted {
			return msg
		}
	}
}

func TestWebsocketRoundTrip(t *testing.T) {
	srv := newGameServer(t)

	host := dialGame(t, srv)
	if err := host.WriteJSON(IntentMessage{Type: "createRoom", PlayerName: "alice"}); err != nil {
		t.Fatalf("createRoom: %v", err)
	}
	created := readUntil(t, host, "roomCreated")
	code := created.RoomCode
	if code == "" {
		t.Fatalf("empty room code")
	}

	guest := dialGame(t, srv)
	if err := guest.WriteJSON(IntentMessage{Type: "joinRoom", RoomCode: code, PlayerName: "bob"}); err != nil {
		t.Fatalf("joinRoom: %v", err)
	}
	readUntil(t, guest, "roomJoined")

	joined := readUntil(t, host, "playerJoined")
	if joined.PlayerName != "bob" {
		t.Fatalf("playerJoined = %q, want bob", joined.PlayerName)
	}

	if err := host.WriteJSON(IntentMessage{Type: "updateQuestion", RoomCode: code, Question: "stars visible tonight?"}); err != nil {
		t.Fatalf("updateQuestion: %v", err)
	}
	for {
		state := readUntil(t, guest, "updateGameState")
		if state.Room.Question == "stars visible tonight?" {
			break
		}
	}

	if err := host.WriteJSON(IntentMessage{Type: "submitValue", RoomCode: code, Value: f64(10), Submitted: true}); err != nil {
		t.Fatalf("submitValue: %v", err)
	}
	if err := guest.WriteJSON(IntentMessage{Type: "submitValue", RoomCode: code, Value: f64(20), Submitted: true}); err != nil {
		t.Fatalf("submitValue: %v", err)
	}
	if err := host.WriteJSON(IntentMessage{Type: "viewResults", RoomCode: code}); err != nil {
		t.Fatalf("viewResults: %v", err)
	}

	var revealed *RoomSnapshot
	for revealed == nil {
		state := readUntil(t, guest, "updateGameState")
		if state.Room.Phase == phaseResults {
			revealed = state.Room
		}
	}
	if len(revealed.History) != 1 || revealed.History[0].Average != 15 {
		t.Fatalf("history = %+v, want one round with average 15", revealed.History)
	}

	// Guest disconnect reaches the host as playerLeft; alice keeps hosting.
	guest.Close()
	left := readUntil(t, host, "playerLeft")
	if left.PlayerName != "bob" {
		t.Fatalf("playerLeft = %q, want bob", left.PlayerName)
	}
	for {
		state := readUntil(t, host, "updateGameState")
		if len(state.Room.Players) == 1 {
			if !state.Room.Players[0].IsHost {
				t.Fatalf("remaining player lost host flag")
			}
			break
		}
	}
}

func TestWebsocketRejectsUnknownRoom(t *testing.T) {
	srv := newGameServer(t)

	conn := dialGame(t, srv)
	if err := conn.WriteJSON(IntentMessage{Type: "joinRoom", RoomCode: "NOPE", PlayerName: "bob"}); err != nil {
		t.Fatalf("joinRoom: %v", err)
	}
	e := readUntil(t, conn, "error")
	if e.Message != errRoomNotFound.Error() {
		t.Fatalf("error = %q, want %q", e.Message, errRoomNotFound)
	}
}

func TestJoinURLFollowsMountPath(t *testing.T) {
	cfg := testConfig()

	r := httptest.NewRequest(http.MethodGet, "/qr/ABCD", nil)
	r.Host = "game.example"

	if got := joinURL(cfg, "/play", r, "ABCD"); got != "http://game.example/play?code=ABCD" {
		t.Fatalf("joinURL = %q", got)
	}

	// The link tracks the mount path and prefix rather than a fixed route.
	cfg.prefix = "/games"
	if got := joinURL(cfg, "/guess", r, "ABCD"); got != "http://game.example/games/guess?code=ABCD" {
		t.Fatalf("joinURL = %q", got)
	}

	r.Header.Set("X-Forwarded-Proto", "https")
	if got := joinURL(cfg, "/guess", r, "ABCD"); got != "https://game.example/games/guess?code=ABCD" {
		t.Fatalf("joinURL = %q", got)
	}
}

func TestServeIndexAndQR(t *testing.T) {
	srv := newGameServer(t)

	resp, err := http.Get(srv.URL + "/play")
	if err != nil {
		t.Fatalf("GET /play: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /play status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("GET /play content type = %q", ct)
	}

	qr, err := http.Get(srv.URL + "/qr/ABCD")
	if err != nil {
		t.Fatalf("GET /qr/ABCD: %v", err)
	}
	defer qr.Body.Close()
	if qr.StatusCode != http.StatusOK {
		t.Fatalf("GET /qr/ABCD status = %d", qr.StatusCode)
	}
	if ct := qr.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("GET /qr/ABCD content type = %q", ct)
	}
}
