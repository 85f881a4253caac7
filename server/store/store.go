package store

import (
	"context"
	"embed"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

// GameRow is one finished round as stored in game_results.
type GameRow struct {
	ID         string    `json:"id"`
	Difficulty string    `json:"difficulty"`
	ScoreA     int       `json:"score_a"`
	ScoreB     int       `json:"score_b"`
	WinnerID   *string   `json:"winner_id"`
	CreatedAt  time.Time `json:"created_at"`
	Predicted  *string   `json:"predicted_winner_id,omitempty"`
	WasCorrect *bool     `json:"prediction_correct,omitempty"`
}

// InsertGameResult records one finished round. Duplicate ids overwrite,
// which makes replays after a crash-and-retry harmless.
func (db *DB) InsertGameResult(
	ctx context.Context,
	id, difficulty string,
	boardA, boardB string,
	scoreA, scoreB int,
	winnerID string,
) error {
	_, err := db.Exec(ctx, `
        INSERT INTO game_results(id, difficulty, board_a, board_b, score_a, score_b, winner_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (id) DO UPDATE
          SET score_a = EXCLUDED.score_a,
              score_b = EXCLUDED.score_b,
              winner_id = EXCLUDED.winner_id
    `, id, difficulty, boardA, boardB, scoreA, scoreB, winnerID)
	return err
}

// InsertPrediction stores the user's pick for a round, scored against the
// actual winner.
func (db *DB) InsertPrediction(ctx context.Context, gameID, predictedWinnerID string, wasCorrect bool) error {
	_, err := db.Exec(ctx, `
        INSERT INTO user_predictions(game_id, predicted_winner_id, was_correct)
        VALUES ($1,$2,$3)
        ON CONFLICT (game_id) DO UPDATE
          SET predicted_winner_id = EXCLUDED.predicted_winner_id,
              was_correct = EXCLUDED.was_correct
    `, gameID, predictedWinnerID, wasCorrect)
	return err
}

// RecentGames returns the latest finished rounds, newest first, with the
// user's prediction joined in when one was made.
func (db *DB) RecentGames(ctx context.Context, limit int) ([]GameRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(ctx, `
        SELECT g.id, g.difficulty, g.score_a, g.score_b, g.winner_id, g.created_at,
               p.predicted_winner_id, p.was_correct
          FROM game_results g
          LEFT JOIN user_predictions p ON p.game_id = g.id
         ORDER BY g.created_at DESC
         LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]GameRow, 0, limit)
	for rows.Next() {
		var r GameRow
		if err := rows.Scan(&r.ID, &r.Difficulty, &r.ScoreA, &r.ScoreB, &r.WinnerID, &r.CreatedAt, &r.Predicted, &r.WasCorrect); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PredictionStats summarizes how often the user picked the actual winner.
type PredictionStats struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

func (db *DB) GetPredictionStats(ctx context.Context) (PredictionStats, error) {
	var s PredictionStats
	err := db.QueryRow(ctx, `
        SELECT COUNT(*)::int,
               COALESCE(SUM(CASE WHEN was_correct THEN 1 ELSE 0 END), 0)::int
          FROM user_predictions
    `).Scan(&s.Total, &s.Correct)
	if err != nil {
		return PredictionStats{}, err
	}
	return s, nil
}
