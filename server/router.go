package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"digit-duel/server/session"
	"digit-duel/server/store"
)

// Router wires the game API. db may be nil; history endpoints then report
// that storage is not configured.
func Router(mgr *session.Manager, db *store.DB) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware([]string{"*"}))

	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	})

	// Current session; polling this is what moves an expired prediction
	// window into the competition phase.
	r.Get("/api/game/current", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, mgr.Current())
	})

	r.Post("/api/game/difficulty", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Difficulty string `json:"difficulty"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		snap, err := mgr.SetDifficulty(mgr.Current().ID, body.Difficulty)
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, snap)
	})

	r.Post("/api/game/start", func(w http.ResponseWriter, _ *http.Request) {
		snap, err := mgr.Start(mgr.Current().ID)
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, snap)
	})

	// Submitting a prediction closes the window early and resolves the
	// round before responding.
	r.Post("/api/game/prediction", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			GameID            string `json:"game_id"`
			PredictedWinnerID string `json:"predicted_winner_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.GameID == "" || body.PredictedWinnerID == "" {
			writeError(w, http.StatusBadRequest, "game_id and predicted_winner_id are required")
			return
		}
		snap, err := mgr.SubmitPrediction(body.GameID, body.PredictedWinnerID)
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, snap)
	})

	r.Get("/api/game/prediction/{gameID}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "gameID")
		p, ok := mgr.Prediction(id)
		if !ok {
			writeError(w, http.StatusNotFound, "no prediction for this game")
			return
		}
		writeJSON(w, p)
	})

	r.Post("/api/game/reset", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, mgr.Reset())
	})

	r.Get("/api/history", func(w http.ResponseWriter, req *http.Request) {
		if db == nil {
			writeError(w, http.StatusServiceUnavailable, "history storage not configured")
			return
		}
		limit := 20
		if s := req.URL.Query().Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				limit = n
			}
		}
		rows, err := db.RecentGames(req.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]any{"rows": rows})
	})

	r.Get("/api/stats", func(w http.ResponseWriter, req *http.Request) {
		if db == nil {
			writeError(w, http.StatusServiceUnavailable, "history storage not configured")
			return
		}
		stats, err := db.GetPredictionStats(req.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, stats)
	})

	return r
}

// corsMiddleware handles CORS headers for the listed origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrInvalidPhase):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
