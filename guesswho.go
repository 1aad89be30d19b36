// Guesswho
//
// Two players each get a secret character from an uploaded image pack
// and take turns guessing which character the other was assigned.
//
// Features:
// - Game created by uploading a zip of character images to /new_game
// - Identical images are shared between games, so re-uploads of the
//   same pack cost nothing extra
// - Players identified by cookie (user_id); the game link offers the
//   open seat to the first unidentified visitor
// - Starting a new game ends your previous one
// - Games expire a fixed interval after creation, active or not
// - Live updates (guesses, presence, chat, call signaling) per game
//   over a websocket
// - Chat messages accept markdown and are sanitized server-side
// - In-browser QR code to share the current game, backed by go-qrcode

package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/guesswho/games"
)

const userCookieName = "user_id"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// socketError is sent to a single connection when one of its own
// messages is rejected; it never reaches the bus.
type socketError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func playerIdentity(r *http.Request) (uint64, bool) {
	cookie, err := r.Cookie(userCookieName)
	if err != nil {
		return 0, false
	}

	id, err := strconv.ParseUint(cookie.Value, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

func setIdentityCookie(w http.ResponseWriter, identity uint64) {
	http.SetCookie(w, &http.Cookie{
		Name:     userCookieName,
		Value:    strconv.FormatUint(identity, 10),
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
	})
}

func gamePath(ps httprouter.Params) (uint64, string, error) {
	raw := ps.ByName("game_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, "", games.ErrNotFound
	}
	return id, raw, nil
}

func serveNewGame(cfg *Config, registry *games.Registry, limiters *uploadLimiters) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		requestID := uuid.NewString()

		if !limiters.allow(realIP(r)) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			securityHeaders(cfg, w)
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, newPage("Slow Down", "Too many games created. Please wait a moment."))
			return
		}

		// Backpressure, not a cache failure: refuse new uploads while
		// the ceiling is met.
		if registry.CacheSize() >= cfg.cacheLimit {
			logf(cfg, "GAMES: [request_id=%s] Rejected upload from %s, cache full", requestID, realIP(r))
			errorResponse(cfg, w, games.ErrOverloaded)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.uploadLimit)

		file, _, err := r.FormFile("character_pack")
		if err != nil {
			errorResponse(cfg, w, games.ErrEmptyPack)
			return
		}
		defer file.Close()

		pack, err := io.ReadAll(file)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				errorResponse(cfg, w, fmt.Errorf("%w: character pack larger than %s",
					games.ErrInvalidInput, humanReadableSize(cfg.uploadLimit)))
				return
			}
			errorResponse(cfg, w, fmt.Errorf("%w: read upload: %v", games.ErrInternal, err))
			return
		}

		set, err := registry.LoadSet(pack, cfg.numChars())
		if err != nil {
			errorResponse(cfg, w, err)
			return
		}

		p0 := games.NewPlayer(cfg.numChars())
		if uid, ok := playerIdentity(r); ok {
			p0.ID = uid
		}
		p1 := games.NewPlayer(cfg.numChars())

		gameID := registry.NewID()
		active := registry.Create(gameID, games.NewSession(set, cfg.cols, p0, p1), cfg.sessionTTL)

		logf(cfg, "GAMES: [request_id=%s] Created game %d from %s pack for %s (%d active, cache has %d items)",
			requestID,
			gameID,
			humanReadableSize(int64(len(pack))),
			realIP(r),
			active,
			registry.CacheLen(),
		)

		setIdentityCookie(w, p0.ID)
		http.Redirect(w, r, fmt.Sprintf("%s/game/%d", cfg.prefix, gameID), http.StatusSeeOther)
	}
}

func serveGame(cfg *Config, registry *games.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID, raw, err := gamePath(ps)
		if err != nil {
			errorResponse(cfg, w, err)
			return
		}

		session, ok := registry.Lookup(gameID)
		if !ok {
			errorResponse(cfg, w, games.ErrNotFound)
			return
		}

		if uid, ok := playerIdentity(r); ok && session.Claim(uid) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			securityHeaders(cfg, w)
			io.WriteString(w, boardPage(cfg, raw))
			return
		}

		// Not a player yet: offer the open seat, if there is one.
		unclaimed, ok := session.Unclaimed()
		if !ok {
			errorResponse(cfg, w, games.ErrUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		io.WriteString(w, claimPage(cfg, raw, unclaimed))
	}
}

func serveClaim(cfg *Config, registry *games.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID, raw, err := gamePath(ps)
		if err != nil {
			errorResponse(cfg, w, err)
			return
		}

		session, ok := registry.Lookup(gameID)
		if !ok {
			errorResponse(cfg, w, games.ErrNotFound)
			return
		}

		uid, err := strconv.ParseUint(r.PostFormValue(userCookieName), 10, 64)
		if err != nil || !session.Claim(uid) {
			errorResponse(cfg, w, games.ErrUnauthorized)
			return
		}

		logf(cfg, "GAMES: Player %d joined game %d", uid, gameID)

		setIdentityCookie(w, uid)
		http.Redirect(w, r, fmt.Sprintf("%s/game/%s", cfg.prefix, raw), http.StatusSeeOther)
	}
}

func serveCharacterImage(cfg *Config, registry *games.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID, _, err := gamePath(ps)
		if err != nil {
			errorResponse(cfg, w, err)
			return
		}

		session, ok := registry.Lookup(gameID)
		if !ok {
			errorResponse(cfg, w, games.ErrNotFound)
			return
		}

		var character *games.Character

		cell := ps.ByName("cell")
		if cell == "mine" {
			uid, ok := playerIdentity(r)
			if !ok {
				errorResponse(cfg, w, games.ErrUnauthorized)
				return
			}
			character, err = session.OwnCharacter(uid)
		} else {
			var row, col int
			if rawRow, rawCol, found := strings.Cut(cell, "_"); found {
				row, err = strconv.Atoi(rawRow)
				if err == nil {
					col, err = strconv.Atoi(rawCol)
				}
			} else {
				err = games.ErrInvalidInput
			}
			if err != nil {
				errorResponse(cfg, w, fmt.Errorf("%w: malformed cell %q", games.ErrInvalidInput, cell))
				return
			}
			character, err = session.CellCharacter(row, col)
		}
		if err != nil {
			errorResponse(cfg, w, err)
			return
		}

		if character.MediaType() != "" {
			w.Header().Set("Content-Type", character.MediaType())
		}
		securityHeaders(cfg, w)

		if _, err := w.Write(character.Data()); err != nil {
			logf(cfg, "GAMES: Write image for game %d: %v", gameID, err)
		}
	}
}

func serveGuess(cfg *Config, registry *games.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID, _, err := gamePath(ps)
		if err != nil {
			errorResponse(cfg, w, err)
			return
		}

		session, ok := registry.Lookup(gameID)
		if !ok {
			errorResponse(cfg, w, games.ErrNotFound)
			return
		}

		uid, ok := playerIdentity(r)
		if !ok {
			errorResponse(cfg, w, games.ErrUnauthorized)
			return
		}

		query := r.URL.Query()
		row, rowErr := strconv.Atoi(query.Get("row"))
		col, colErr := strconv.Atoi(query.Get("col"))
		if rowErr != nil || colErr != nil {
			errorResponse(cfg, w, fmt.Errorf("%w: malformed guess coordinates", games.ErrInvalidInput))
			return
		}

		correct, err := session.Guess(uid, row, col)
		if err != nil {
			errorResponse(cfg, w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		securityHeaders(cfg, w)
		fmt.Fprintf(w, `{"correct":%t}`, correct)
	}
}

func serveGameSocket(cfg *Config, registry *games.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		requestID := uuid.NewString()

		gameID, _, err := gamePath(ps)
		if err != nil {
			errorResponse(cfg, w, err)
			return
		}

		session, ok := registry.Lookup(gameID)
		if !ok {
			errorResponse(cfg, w, games.ErrNotFound)
			return
		}

		uid, ok := playerIdentity(r)
		if !ok || !session.Claim(uid) {
			errorResponse(cfg, w, games.ErrUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: [request_id=%s] Upgrade failed for game %d: %v", requestID, gameID, err)
			return
		}

		sub := session.Subscribe(uid)

		// Greet the new arrival with the opponent's presence, if any,
		// then announce them.
		if other, connected := session.SetConnected(uid, true); connected {
			sub.Deliver(games.Event{Type: games.EventConnected, Identity: other})
		}

		go func() {
			defer conn.Close()

			for ev := range sub.Events() {
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			}
		}()

		// A close frame and an abrupt transport drop both land here as
		// a read error, and both tear down identically.
		defer func() {
			session.SetConnected(uid, false)
			sub.Close()
			conn.Close()
			logf(cfg, "GAMES: [request_id=%s] Player %d left game %d", requestID, uid, gameID)
		}()

		for {
			var ev games.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}

			if err := games.VerifyIdentity(ev, uid); err != nil {
				_ = conn.WriteJSON(socketError{
					Type:    "error",
					Message: err.Error(),
				})
				continue
			}

			switch ev.Type {
			case games.EventMessage:
				content, err := games.RenderMessage(ev.Content)
				if err != nil {
					logf(cfg, "GAMES: [request_id=%s] %v", requestID, err)
					continue
				}
				session.Publish(games.Event{
					Type:     games.EventMessage,
					Identity: uid,
					Content:  content,
				})
			case games.EventCall:
				// Opaque signaling payload, passed through unmodified.
				session.Publish(games.Event{
					Type:     games.EventCall,
					Identity: uid,
					Signal:   ev.Signal,
				})
			default:
				// ignore unknown types
			}
		}
	}
}

// serveQR generates a PNG QR code for the current game URL.
func serveQR(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /game/:game_id/qr; strip the suffix to get the game URL.
		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			errorResponse(cfg, w, fmt.Errorf("%w: qr generation: %v", games.ErrInternal, err))
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

// registerGuessWhoGame wires the game routes onto the mux. The registry
// is created here and passed to each handler explicitly; there is no
// ambient global.
func registerGuessWhoGame(cfg *Config, mux *httprouter.Router) {
	registry := games.NewRegistry()
	limiters := newUploadLimiters(cfg)

	mux.POST(cfg.prefix+"/new_game", serveNewGame(cfg, registry, limiters))

	mux.GET(cfg.prefix+"/game/:game_id", serveGame(cfg, registry))

	mux.POST(cfg.prefix+"/game/:game_id/claim", serveClaim(cfg, registry))

	mux.GET(cfg.prefix+"/game/:game_id/img/:cell", serveCharacterImage(cfg, registry))

	mux.POST(cfg.prefix+"/game/:game_id/guess", serveGuess(cfg, registry))

	mux.GET(cfg.prefix+"/game/:game_id/ws", serveGameSocket(cfg, registry))

	mux.GET(cfg.prefix+"/game/:game_id/qr", serveQR(cfg))
}
