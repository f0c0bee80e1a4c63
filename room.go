// Guessbox room core
//
// One Room per short, human-typeable code. Players join over a websocket,
// the host sets a question, everyone submits a number, and the host reveals
// the round: each submission is scored by its distance from the room average,
// accumulated across rounds (lower is better), and archived in the room's
// history. The host role migrates when the host disconnects, and a room is
// deleted the moment its last member leaves.
//
// Locking: the Registry mutex guards the code-to-room table, each Room mutex
// guards everything inside that room. Both are only ever taken in that order,
// and membership changes hold the registry lock across the empty-check so a
// join can never observe a half-deleted room.

package main

import (
	"crypto/rand"
	"sync"
	"time"
)

const (
	phaseWaiting = "waiting"
	phaseResults = "results"
)

// Fixed palette; colors are reused once a room has more players than entries.
var playerColors = [...]string{
	"#e57373", "#ffb74d", "#fff176", "#81c784",
	"#4dd0e1", "#64b5f6", "#7986cb", "#ba68c8",
	"#d81b60", "#f06292", "#B0BEC5", "#757575",
}

// Submission is a tagged value: the zero value means "nothing submitted",
// so a stale Value can never be observed without its Submitted flag.
type Submission struct {
	Submitted bool
	Value     int
}

func submissionOf(value int) Submission {
	return Submission{
		Submitted: true,
		Value:     value,
	}
}

// Player holds the data we store server-side
type Player struct {
	ID              string
	Name            string
	Color           string
	ImageRef        string
	Host            bool
	Submission      Submission
	CumulativeScore float64
}

type Room struct {
	code string
	cfg  *Config

	mu       sync.Mutex
	phase    string
	question string
	players  map[string]*Player
	order    []string // player IDs in join order
	conns    map[string]*client
	history  []RoundRecord
}

// Registry holds every live room keyed by room code.
type Registry struct {
	cfg   *Config
	mu    sync.Mutex
	rooms map[string]*Room
}

func newRegistry(cfg *Config) *Registry {
	return &Registry{
		cfg:   cfg,
		rooms: make(map[string]*Room),
	}
}

const codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newCodeLocked generates a crypto-random room code and ensures it doesn't
// collide with existing rooms. Caller holds reg.mu.
func (reg *Registry) newCodeLocked() string {
	for {
		buf := make([]byte, reg.cfg.codeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, len(buf))
		for i := range out {
			out[i] = codeLetters[int(buf[i])%len(codeLetters)]
		}
		code := string(out)

		if _, exists := reg.rooms[code]; !exists {
			return code
		}
	}
}

func (reg *Registry) lookup(code string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return reg.rooms[code]
}

// createRoom allocates a fresh room with the creator as its sole player and
// host, notifies them, and returns the new room code.
func (reg *Registry) createRoom(c *client, name, imageRef string) string {
	reg.mu.Lock()

	code := reg.newCodeLocked()
	room := &Room{
		code:    code,
		cfg:     reg.cfg,
		phase:   phaseWaiting,
		players: make(map[string]*Player),
		conns:   make(map[string]*client),
	}
	reg.rooms[code] = room

	room.mu.Lock()
	reg.mu.Unlock()

	room.players[c.id] = &Player{
		ID:       c.id,
		Name:     name,
		Color:    playerColors[0],
		ImageRef: imageRef,
		Host:     true,
	}
	room.order = append(room.order, c.id)
	room.conns[c.id] = c

	c.trySend(RoomCodeMessage{Type: "roomCreated", RoomCode: code})
	room.broadcastStateLocked()
	room.mu.Unlock()

	logf(reg.cfg, "ROOMS: %q created room %s", name, code)

	return code
}

// joinRoom adds a non-host player to an existing room, assigning the
// lowest-index unused palette color.
func (reg *Registry) joinRoom(code string, c *client, name, imageRef string) error {
	reg.mu.Lock()
	room := reg.rooms[code]
	if room == nil {
		reg.mu.Unlock()
		return errRoomNotFound
	}

	room.mu.Lock()
	reg.mu.Unlock()

	if len(room.players) >= reg.cfg.maxPlayers {
		room.mu.Unlock()
		return errRoomFull
	}

	room.players[c.id] = &Player{
		ID:       c.id,
		Name:     name,
		Color:    room.nextColorLocked(),
		ImageRef: imageRef,
	}
	room.order = append(room.order, c.id)
	room.conns[c.id] = c

	c.trySend(RoomCodeMessage{Type: "roomJoined", RoomCode: code})
	room.broadcastExceptLocked(c.id, PlayerEventMessage{Type: "playerJoined", PlayerName: name})
	room.broadcastStateLocked()
	room.mu.Unlock()

	logf(reg.cfg, "ROOMS: %q joined room %s", name, code)

	return nil
}

// removeConn reaps a disconnected client: the player is removed, the host
// role migrates to the earliest-joined remaining player if needed, and the
// room is deleted outright once empty. The registry lock is held across the
// empty-check so a concurrent join on the same code either finds a live room
// or none at all.
func (reg *Registry) removeConn(c *client) {
	if c.roomCode == "" {
		return
	}

	reg.mu.Lock()
	room := reg.rooms[c.roomCode]
	if room == nil {
		reg.mu.Unlock()
		return
	}

	room.mu.Lock()

	p, ok := room.players[c.id]
	if !ok {
		room.mu.Unlock()
		reg.mu.Unlock()
		return
	}

	delete(room.players, c.id)
	delete(room.conns, c.id)
	for i, id := range room.order {
		if id == c.id {
			room.order = append(room.order[:i], room.order[i+1:]...)
			break
		}
	}

	if len(room.players) == 0 {
		delete(reg.rooms, room.code)
		room.mu.Unlock()
		reg.mu.Unlock()

		logf(reg.cfg, "ROOMS: Deleted empty room %s", room.code)
		return
	}
	reg.mu.Unlock()

	room.broadcastLocked(PlayerEventMessage{Type: "playerLeft", PlayerName: p.Name})

	if p.Host {
		next := room.players[room.order[0]]
		next.Host = true
		room.broadcastLocked(PlayerEventMessage{Type: "newHost", PlayerName: next.Name})
		logf(reg.cfg, "ROOMS: %q is now host of room %s", next.Name, room.code)
	}

	room.broadcastStateLocked()
	room.mu.Unlock()

	logf(reg.cfg, "ROOMS: %q left room %s", p.Name, room.code)
}

// setQuestion updates the question text. Host only; empty text clears it.
func (r *Room) setQuestion(actorID, question string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(actorID); err != nil {
		return err
	}

	r.question = question
	r.broadcastStateLocked()

	return nil
}

// submitValue records or withdraws a member's submission while waiting.
func (r *Room) submitValue(actorID string, sub Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[actorID]
	if !ok {
		return errNotInRoom
	}
	if r.phase != phaseWaiting {
		return errRoundClosed
	}

	p.Submission = sub
	r.broadcastStateLocked()

	return nil
}

// viewResults concludes the round: scores every submitted player, appends
// the round to history, and moves the room to the results phase. Calling it
// again before a reset is a no-op, so scoring happens exactly once per round.
func (r *Room) viewResults(actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(actorID); err != nil {
		return err
	}
	if r.phase == phaseResults {
		return nil
	}

	entries := make([]RoundEntry, 0, len(r.players))
	for _, id := range r.order {
		p := r.players[id]
		if !p.Submission.Submitted {
			continue
		}
		entries = append(entries, RoundEntry{
			PlayerID: p.ID,
			Name:     p.Name,
			Color:    p.Color,
			ImageRef: p.ImageRef,
			Value:    p.Submission.Value,
		})
	}
	if len(entries) == 0 {
		return errNoSubmissions
	}

	average, scored := scoreRound(entries)
	for _, e := range scored {
		r.players[e.PlayerID].CumulativeScore += e.DiffRatio
	}

	r.history = append(r.history, RoundRecord{
		Question:   r.question,
		Average:    average,
		RevealedAt: time.Now(),
		Players:    scored,
	})
	r.phase = phaseResults
	r.broadcastStateLocked()

	logf(r.cfg, "ROOMS: Round %d revealed in room %s (average %.2f)", len(r.history), r.code, average)

	return nil
}

// resetRound clears submissions and returns the room to the waiting phase.
// Cumulative scores and history survive; the question is cleared unless
// --keep-question is set.
func (r *Room) resetRound(actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(actorID); err != nil {
		return err
	}
	if r.phase != phaseResults {
		return errNoResults
	}

	if !r.cfg.keepQuestion {
		r.question = ""
	}
	for _, p := range r.players {
		p.Submission = Submission{}
	}
	r.phase = phaseWaiting
	r.broadcastStateLocked()

	return nil
}

func (r *Room) requireHostLocked(actorID string) error {
	p, ok := r.players[actorID]
	if !ok {
		return errNotInRoom
	}
	if !p.Host {
		return errNotHost
	}
	return nil
}

// nextColorLocked picks the lowest-index palette color not already in use,
// wrapping to reuse by player count once the palette is exhausted.
func (r *Room) nextColorLocked() string {
	used := make(map[string]bool, len(r.players))
	for _, p := range r.players {
		used[p.Color] = true
	}
	for _, color := range playerColors {
		if !used[color] {
			return color
		}
	}
	return playerColors[len(r.players)%len(playerColors)]
}

func (r *Room) snapshotLocked() RoomSnapshot {
	players := make([]PlayerSnapshot, 0, len(r.order))
	for _, id := range r.order {
		p := r.players[id]
		ps := PlayerSnapshot{
			ID:              p.ID,
			Name:            p.Name,
			Color:           p.Color,
			ImageRef:        p.ImageRef,
			IsHost:          p.Host,
			Submitted:       p.Submission.Submitted,
			CumulativeScore: p.CumulativeScore,
		}
		if p.Submission.Submitted {
			value := p.Submission.Value
			ps.Value = &value
		}
		players = append(players, ps)
	}

	history := make([]RoundRecord, len(r.history))
	copy(history, r.history)

	return RoomSnapshot{
		Code:       r.code,
		Phase:      r.phase,
		Question:   r.question,
		MaxPlayers: r.cfg.maxPlayers,
		Players:    players,
		History:    history,
	}
}

func (r *Room) broadcastLocked(msg any) {
	for id, c := range r.conns {
		if !c.trySend(msg) {
			delete(r.conns, id)
		}
	}
}

func (r *Room) broadcastExceptLocked(skipID string, msg any) {
	for id, c := range r.conns {
		if id == skipID {
			continue
		}
		if !c.trySend(msg) {
			delete(r.conns, id)
		}
	}
}

func (r *Room) broadcastStateLocked() {
	r.broadcastLocked(GameStateMessage{
		Type: "updateGameState",
		Room: r.snapshotLocked(),
	})
}
