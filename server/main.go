package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"digit-duel/server/agent"
	"digit-duel/server/duel"
	"digit-duel/server/llm"
	"digit-duel/server/session"
	"digit-duel/server/store"
)

//
// ===== bootstrap =====
//

// Tries: env var file, ./secrets/openai_api_key.txt, ./server/openai_api_key.txt,
// ./openai_api_key.txt, and /run/secrets/openai_api_key.
func loadAPIKeyFromSecret() {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return
	}
	var candidates []string
	if p := os.Getenv("OPENAI_API_KEY_FILE"); strings.TrimSpace(p) != "" {
		candidates = append(candidates, p)
	}
	candidates = append(candidates,
		"./secrets/openai_api_key.txt",
		"server/openai_api_key.txt",
		"./server/openai_api_key.txt",
		"./openai_api_key.txt",
		"/run/secrets/openai_api_key",
	)
	for _, path := range candidates {
		if b, err := os.ReadFile(path); err == nil {
			key := strings.TrimSpace(string(b))
			if key != "" {
				os.Setenv("OPENAI_API_KEY", key)
				return
			}
		}
	}
}

func mustEnv(keys ...string) {
	for _, k := range keys {
		if os.Getenv(k) == "" {
			log.Fatalf("Missing required env var %s. Put it in .env (dev) or set it on the host (prod).", k)
		}
	}
}
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
func secondsEnv(key string, def time.Duration) time.Duration {
	n := atoiDef(os.Getenv(key), 0)
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()

	loadAPIKeyFromSecret()

	var migrate bool
	for _, a := range os.Args[1:] {
		if a == "--migrate" {
			migrate = true
		}
	}

	// Optional Postgres history. The game itself runs fine without it.
	var db *store.DB
	if dsn := getenv("DATABASE_URL", ""); dsn != "" {
		p, err := store.Open(dsn)
		if err != nil {
			log.Printf("DB disabled (open failed): %v", err)
		} else {
			db = p
			defer db.Close(context.Background())
			if migrate || asBool(os.Getenv("AUTO_MIGRATE")) {
				if err := store.Migrate(context.Background(), db); err != nil {
					if migrate {
						log.Fatal(err)
					}
					log.Printf("migrate failed (continuing without DB): %v", err)
					db = nil
				} else {
					log.Println("migrated")
				}
			}
		}
	}
	if migrate {
		if db == nil {
			log.Fatal("--migrate requires DATABASE_URL")
		}
		return
	}

	if os.Getenv("OPENROUTER_API_KEY") == "" {
		mustEnv("OPENAI_API_KEY")
	}

	client := &llm.Client{Model: getenv("LLM_MODEL", "")}

	sharedTimeout := secondsEnv("AGENT_TIMEOUT_SECONDS", 25*time.Second)
	racer := &duel.Racer{
		Gen:            client,
		Fast:           agent.Fast(),
		Careful:        agent.Careful(),
		TimeoutFast:    secondsEnv("AGENT_TIMEOUT_A", sharedTimeout),
		TimeoutCareful: secondsEnv("AGENT_TIMEOUT_B", sharedTimeout),
	}

	window := secondsEnv("PREDICTION_WINDOW_SECONDS", session.DefaultPredictionWindow)
	mgr := session.NewManager(racer, agent.Fast(), agent.Careful(), window)

	if db != nil {
		mgr.OnComplete(func(s session.Snapshot, p *session.Prediction) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			winner := ""
			if s.WinnerID != nil {
				winner = *s.WinnerID
			}
			scoreA, scoreB := 0, 0
			if s.ScoreA != nil {
				scoreA = *s.ScoreA
			}
			if s.ScoreB != nil {
				scoreB = *s.ScoreB
			}
			if err := db.InsertGameResult(ctx, s.ID, s.Difficulty, s.Boards.Correct, s.Boards.Wrong, scoreA, scoreB, winner); err != nil {
				log.Printf("persist game %s: %v", s.ID, err)
				return
			}
			if p != nil {
				if err := db.InsertPrediction(ctx, s.ID, p.PredictedWinnerID, p.PredictedWinnerID == winner); err != nil {
					log.Printf("persist prediction %s: %v", s.ID, err)
				}
			}
		})
	}

	port := getenv("PORT", "8080")
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      Router(mgr, db),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	log.Printf("listening on http://localhost:%s (Ctrl+C to stop)", port)
	log.Fatal(srv.ListenAndServe())
}
