/*
Copyright © 2026 Guessbox contributors
*/

package main

import "time"

// Messages coming from clients
type IntentMessage struct {
	Type       string   `json:"type"`                 // "createRoom", "joinRoom", "updateQuestion", "submitValue", "viewResults", "resetRound"
	RoomCode   string   `json:"roomCode,omitempty"`   // all but createRoom
	PlayerName string   `json:"playerName,omitempty"` // createRoom / joinRoom
	ImageRef   string   `json:"imageRef,omitempty"`   // createRoom / joinRoom
	Question   string   `json:"question"`             // updateQuestion (empty clears)
	Value      *float64 `json:"value,omitempty"`      // submitValue
	Submitted  bool     `json:"submitted,omitempty"`  // submitValue (false withdraws)
}

// Sent to the actor after a successful create or join.
type RoomCodeMessage struct {
	Type     string `json:"type"` // "roomCreated" or "roomJoined"
	RoomCode string `json:"roomCode"`
}

// Sent to room members on membership or host changes.
type PlayerEventMessage struct {
	Type       string `json:"type"` // "playerJoined", "playerLeft", "newHost"
	PlayerName string `json:"playerName"`
}

// Sent to a single client when an intent is rejected.
type ErrorMessage struct {
	Type    string `json:"type"`    // "error"
	Message string `json:"message"` // user-facing text
}

// GameStateMessage carries the full authoritative room snapshot. It is
// broadcast to every member after any accepted mutation.
type GameStateMessage struct {
	Type string       `json:"type"` // "updateGameState"
	Room RoomSnapshot `json:"room"`
}

type RoomSnapshot struct {
	Code       string           `json:"code"`
	Phase      string           `json:"phase"` // "waiting" or "results"
	Question   string           `json:"question"`
	MaxPlayers int              `json:"maxPlayers"`
	Players    []PlayerSnapshot `json:"players"` // join order
	History    []RoundRecord    `json:"history"` // oldest first
}

type PlayerSnapshot struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Color           string  `json:"color"`
	ImageRef        string  `json:"imageRef,omitempty"`
	IsHost          bool    `json:"isHost"`
	Value           *int    `json:"value"` // null until submitted
	Submitted       bool    `json:"submitted"`
	CumulativeScore float64 `json:"cumulativeScore"`
}

// RoundRecord is the immutable archive of one concluded round. Entries are
// deep copies taken at reveal time; nothing here aliases live player state.
type RoundRecord struct {
	Question   string       `json:"question"`
	Average    float64      `json:"average"`
	RevealedAt time.Time    `json:"revealedAt"`
	Players    []RoundEntry `json:"players"` // rank order (closest first)
}

type RoundEntry struct {
	PlayerID  string  `json:"id"`
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	ImageRef  string  `json:"imageRef,omitempty"`
	Value     int     `json:"value"`
	Diff      float64 `json:"diff"`
	DiffRatio float64 `json:"diffRatio"`
	Rank      int     `json:"rank"`
}

func errorMessage(err error) ErrorMessage {
	return ErrorMessage{
		Type:    "error",
		Message: err.Error(),
	}
}
