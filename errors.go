/*
Copyright © 2026 Guessbox contributors
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Errors surfaced to players as displayable messages.
var (
	errAlreadyInRoom = errors.New("you are already in a room")
	errInvalidValue  = errors.New("submission must be a non-negative whole number")
	errNameRequired  = errors.New("a player name is required")
	errNoResults     = errors.New("there are no results to clear")
	errNoSubmissions = errors.New("no one has submitted a value yet")
	errNotHost       = errors.New("only the host can do that")
	errNotInRoom     = errors.New("you are not in that room")
	errRoomFull      = errors.New("that room is full")
	errRoomNotFound  = errors.New("no room with that code")
	errRoundClosed   = errors.New("submissions are closed until the next round")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
