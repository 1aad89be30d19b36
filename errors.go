/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Seednode/guesswho/games"
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
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}

// errorResponse maps a games error kind to its page and status. Only
// internal errors get logged with full detail; every other kind is a
// deterministic rejection owed to the caller alone.
func errorResponse(cfg *Config, w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	securityHeaders(cfg, w)

	switch {
	case errors.Is(err, games.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, newPage("Not Found", "This game does not exist, or has expired."))
	case errors.Is(err, games.ErrUnauthorized):
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, newPage("Unauthorized", "You are not a player in this game."))
	case errors.Is(err, games.ErrOverloaded):
		w.WriteHeader(http.StatusInsufficientStorage)
		io.WriteString(w, newPage("Overloaded", "The server is holding too many character packs right now. Please try again later."))
	case errors.Is(err, games.ErrInvalidInput):
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, newPage("Invalid Request", err.Error()))
	default:
		log.Printf("%s | ERROR: %v", time.Now().Format(logDate), err)
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, newPage("Server Error", "An error has occurred. Please try again."))
	}
}
