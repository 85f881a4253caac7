// Package session owns game lifecycle state: phase transitions, board
// data, the prediction deadline, and final scoring. The registry maps ids
// to sessions and only needs its own lock for insert/lookup; every session
// carries its own mutex, so one session's mutations are serialized while
// unrelated sessions progress in parallel.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"digit-duel/server/agent"
	"digit-duel/server/game"
)

type Phase string

const (
	PhasePending     Phase = "pending"
	PhasePrediction  Phase = "prediction"
	PhaseCompetition Phase = "competition"
	PhaseCompleted   Phase = "completed"
)

// WinnerDraw marks a tie in a session's winner field.
const WinnerDraw = "draw"

// DefaultPredictionWindow is how long the user gets to predict a winner
// after the boards are dealt.
const DefaultPredictionWindow = 15 * time.Second

var (
	ErrNotFound     = errors.New("game not found")
	ErrInvalidPhase = errors.New("operation not allowed in current phase")
)

// Racer produces both answerers' terminal texts for one input. Satisfied
// by *duel.Racer; tests substitute fakes.
type Racer interface {
	Race(ctx context.Context, input string) (fastText, carefulText string)
}

// Answerer is the public identity of one profile.
type Answerer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Snapshot is an immutable copy of one session's state, safe to serialize
// while the session keeps moving.
type Snapshot struct {
	ID                string     `json:"id"`
	Phase             Phase      `json:"phase"`
	AnswererA         Answerer   `json:"answerer_a"`
	AnswererB         Answerer   `json:"answerer_b"`
	Difficulty        string     `json:"difficulty"`
	Numbers           []int      `json:"numbers"`
	PredictionEndTime *time.Time `json:"prediction_end_time"`
	ScoreA            *int       `json:"score_a"`
	ScoreB            *int       `json:"score_b"`
	AnswerA           string     `json:"answer_a,omitempty"`
	AnswerB           string     `json:"answer_b,omitempty"`
	WinnerID          *string    `json:"winner_id"`
	Message           string     `json:"message"`

	// Boards is populated on completed snapshots handed to the
	// completion hook; the API payload never exposes the second board
	// mid-round.
	Boards game.Boards `json:"-"`
}

// Prediction is the user's advisory pick, stored beside the session and
// never consulted by scoring.
type Prediction struct {
	GameID            string `json:"game_id"`
	PredictedWinnerID string `json:"predicted_winner_id"`
}

type gameState struct {
	mu            sync.Mutex
	id            string
	phase         Phase
	difficulty    string
	boards        game.Boards
	deadline      *time.Time
	answerFast    string
	answerCareful string
	scoreFast     *int
	scoreCareful  *int
	winnerID      *string
	message       string
	racing        bool
}

// Manager is the session registry plus the transition logic.
type Manager struct {
	racer   Racer
	fast    agent.Profile
	careful agent.Profile
	window  time.Duration

	mu          sync.RWMutex
	games       map[string]*gameState
	predictions map[string]Prediction
	currentID   string

	// onComplete, if set, receives every finished session exactly once,
	// with the user's prediction when there was one.
	onComplete func(Snapshot, *Prediction)
}

// NewManager wires the registry. window <= 0 falls back to the default
// 15-second prediction window.
func NewManager(racer Racer, fast, careful agent.Profile, window time.Duration) *Manager {
	if window <= 0 {
		window = DefaultPredictionWindow
	}
	return &Manager{
		racer:       racer,
		fast:        fast,
		careful:     careful,
		window:      window,
		games:       make(map[string]*gameState),
		predictions: make(map[string]Prediction),
	}
}

// OnComplete registers the completion hook. Call before serving traffic.
func (m *Manager) OnComplete(fn func(Snapshot, *Prediction)) { m.onComplete = fn }

// Create registers a fresh pending session and makes it current.
func (m *Manager) Create(difficulty string) Snapshot {
	if difficulty == "" {
		difficulty = "medium"
	}
	g := &gameState{
		id:         uuid.NewString(),
		phase:      PhasePending,
		difficulty: difficulty,
		message:    "Pick a difficulty and press start to begin.",
	}
	m.mu.Lock()
	m.games[g.id] = g
	m.currentID = g.id
	m.mu.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	return m.snapshotLocked(g, false)
}

// Current returns the current session, creating one if none exists, and
// runs the same deadline check as Get.
func (m *Manager) Current() Snapshot {
	m.mu.RLock()
	id := m.currentID
	_, ok := m.games[id]
	m.mu.RUnlock()
	if !ok {
		return m.Create("medium")
	}
	snap, err := m.Get(id)
	if err != nil {
		return m.Create("medium")
	}
	return snap
}

// Get returns a snapshot of the session and performs the deadline check:
// an expired prediction window moves the session to competition and fires
// the race in the background, at most once per round.
func (m *Manager) Get(id string) (Snapshot, error) {
	g := m.lookup(id)
	if g == nil {
		return Snapshot{}, ErrNotFound
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase == PhasePrediction && g.deadline != nil && !time.Now().Before(*g.deadline) {
		g.phase = PhaseCompetition
		g.deadline = nil
		g.message = "Prediction window closed! The answerers are working..."
		if !g.racing {
			g.racing = true
			go m.resolve(g)
		}
	}
	return m.snapshotLocked(g, false), nil
}

// SetDifficulty changes the board size for the next round. Legal only
// while no round is running.
func (m *Manager) SetDifficulty(id, difficulty string) (Snapshot, error) {
	g := m.lookup(id)
	if g == nil {
		return Snapshot{}, ErrNotFound
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhasePending && g.phase != PhaseCompleted {
		return Snapshot{}, fmt.Errorf("cannot change difficulty while a round is running: %w", ErrInvalidPhase)
	}
	g.difficulty = difficulty
	g.message = fmt.Sprintf("Difficulty set to %q. Press start when ready.", difficulty)
	return m.snapshotLocked(g, false), nil
}

// Start deals a fresh board pair and opens the prediction window. The
// session keeps its id; previous results are cleared.
func (m *Manager) Start(id string) (Snapshot, error) {
	g := m.lookup(id)
	if g == nil {
		return Snapshot{}, ErrNotFound
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhasePending && g.phase != PhaseCompleted {
		return Snapshot{}, fmt.Errorf("a round is already running: %w", ErrInvalidPhase)
	}

	boards, err := game.Generate(0, game.LengthFor(g.difficulty))
	if err != nil {
		return Snapshot{}, err
	}
	deadline := time.Now().Add(m.window)

	g.phase = PhasePrediction
	g.boards = boards
	g.deadline = &deadline
	g.answerFast, g.answerCareful = "", ""
	g.scoreFast, g.scoreCareful = nil, nil
	g.winnerID = nil
	g.racing = false
	g.message = "Predict which answerer will win and submit!"

	m.mu.Lock()
	delete(m.predictions, g.id)
	m.mu.Unlock()

	return m.snapshotLocked(g, false), nil
}

// SubmitPrediction records the user's pick and resolves the round inline:
// the call returns only after both answerers are terminal and the session
// is completed.
func (m *Manager) SubmitPrediction(id, predictedWinnerID string) (Snapshot, error) {
	g := m.lookup(id)
	if g == nil {
		return Snapshot{}, ErrNotFound
	}

	g.mu.Lock()
	if g.phase != PhasePrediction {
		g.mu.Unlock()
		return Snapshot{}, fmt.Errorf("predictions are closed: %w", ErrInvalidPhase)
	}
	g.phase = PhaseCompetition
	g.deadline = nil
	g.racing = true
	g.message = "Prediction submitted! Waiting for the answerers..."
	g.mu.Unlock()

	m.mu.Lock()
	m.predictions[id] = Prediction{GameID: id, PredictedWinnerID: predictedWinnerID}
	m.mu.Unlock()

	m.resolve(g)

	g.mu.Lock()
	defer g.mu.Unlock()
	return m.snapshotLocked(g, false), nil
}

// Prediction returns the stored user pick for a session, if any.
func (m *Manager) Prediction(id string) (Prediction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.predictions[id]
	return p, ok
}

// Reset abandons the current session and starts over with a new id.
func (m *Manager) Reset() Snapshot {
	return m.Create("medium")
}

func (m *Manager) lookup(id string) *gameState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.games[id]
}

// resolve is the single resolution routine both entry points converge on:
// the deadline path calls it on a fresh goroutine, the submit path calls
// it inline. It races the answerers, parses and scores both outputs, picks
// the winner, and always leaves the session completed. A panic anywhere
// in here must not strand the session in competition.
func (m *Manager) resolve(g *gameState) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("resolution panic for game %s: %v", g.id, r)
			g.mu.Lock()
			g.phase = PhaseCompleted
			g.deadline = nil
			g.racing = false
			g.message = "Something went wrong while judging the answers."
			g.mu.Unlock()
		}
	}()

	g.mu.Lock()
	boards := g.boards
	g.mu.Unlock()

	input := agent.BuildInput(boards.Correct, boards.Wrong)
	fastText, carefulText := m.racer.Race(context.Background(), input)

	scoreFast := game.Score(game.ExtractClaims(fastText), boards.Correct, boards.Wrong)
	scoreCareful := game.Score(game.ExtractClaims(carefulText), boards.Correct, boards.Wrong)

	var winnerID, message string
	switch {
	case scoreFast > scoreCareful:
		winnerID = m.fast.ID
		message = fmt.Sprintf("%s wins!", m.fast.Name)
	case scoreCareful > scoreFast:
		winnerID = m.careful.ID
		message = fmt.Sprintf("%s wins!", m.careful.Name)
	default:
		winnerID = WinnerDraw
		message = "It's a draw!"
	}

	g.mu.Lock()
	if g.phase != PhaseCompetition {
		// Reset raced ahead of us; drop the stale result.
		g.racing = false
		g.mu.Unlock()
		return
	}
	g.answerFast = fastText
	g.answerCareful = carefulText
	g.scoreFast = &scoreFast
	g.scoreCareful = &scoreCareful
	g.winnerID = &winnerID
	g.message = message
	g.phase = PhaseCompleted
	g.deadline = nil
	g.racing = false
	snap := m.snapshotLocked(g, true)
	g.mu.Unlock()

	if m.onComplete != nil {
		var pred *Prediction
		if p, ok := m.Prediction(g.id); ok {
			pred = &p
		}
		m.onComplete(snap, pred)
	}
}

// snapshotLocked copies session state; g.mu must be held.
func (m *Manager) snapshotLocked(g *gameState, withBoards bool) Snapshot {
	snap := Snapshot{
		ID:         g.id,
		Phase:      g.phase,
		AnswererA:  Answerer{ID: m.fast.ID, Name: m.fast.Name},
		AnswererB:  Answerer{ID: m.careful.ID, Name: m.careful.Name},
		Difficulty: g.difficulty,
		Message:    g.message,
	}
	if g.boards.Correct != "" {
		snap.Numbers = g.boards.Digits()
	} else {
		snap.Numbers = []int{}
	}
	if g.deadline != nil {
		d := *g.deadline
		snap.PredictionEndTime = &d
	}
	if g.scoreFast != nil {
		v := *g.scoreFast
		snap.ScoreA = &v
	}
	if g.scoreCareful != nil {
		v := *g.scoreCareful
		snap.ScoreB = &v
	}
	if g.winnerID != nil {
		w := *g.winnerID
		snap.WinnerID = &w
	}
	if g.phase == PhaseCompleted {
		snap.AnswerA = g.answerFast
		snap.AnswerB = g.answerCareful
	}
	if withBoards {
		snap.Boards = g.boards
	}
	return snap
}
