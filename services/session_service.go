package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"wordrain/models"

	"github.com/redis/go-redis/v9"
)

const (
	gameDurationSeconds = 300

	basePoints      = 100
	pointsPerLetter = 20
	pointsPerCombo  = 10

	successMessageDelay = 1500 * time.Millisecond
	failMessageDelay    = 2 * time.Second
	passMessageDelay    = time.Second

	// Budget for the save + rank lookup at game over. Expiry counts as a
	// store failure and degrades the same way.
	gameOverTimeout = 3 * time.Second

	sessionStateTTL = 2 * time.Hour
)

// Session states.
const (
	StateNickname = "nickname"
	StatePlaying  = "playing"
	StateGameOver = "gameOver"
	StateRanking  = "ranking"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidState    = errors.New("action not allowed in current state")
)

// ScoreSaver persists one finished game result.
type ScoreSaver interface {
	Save(ctx context.Context, nickname string, score, correctAnswers, maxCombo int) (*models.Score, error)
}

// RankLookup resolves a nickname's global rank.
type RankLookup interface {
	PlayerRank(ctx context.Context, nickname string) (int, error)
}

// WordProvider supplies target words, never repeating the excluded one when
// an alternative exists.
type WordProvider interface {
	Next(ctx context.Context, excluding string) (*models.Word, error)
}

// Session is one player's play-through. All fields are guarded by mu; the
// game-over sequence reads the counters under the lock at the moment the
// latch fires, so a racing timer tick can never make the save see stale or
// half-updated values.
type Session struct {
	ID             string
	State          string
	Nickname       string
	Score          int
	Combo          int
	MaxCombo       int
	CorrectAnswers int
	TimeLeft       int
	Word           *models.Word
	Message        string
	FinalRank      int

	ended       bool   // one-shot game-over latch, re-armed on replay
	rankingFrom string // state to return to when the ranking view closes
	msgSeq      int
	stopTimer   chan struct{}
	mu          sync.Mutex
}

// SessionView is the presentation-facing projection of a session. The
// target word itself never leaves the server; only its theme and length do.
type SessionView struct {
	ID             string `json:"id"`
	State          string `json:"state"`
	Nickname       string `json:"nickname,omitempty"`
	Score          int    `json:"score"`
	Combo          int    `json:"combo"`
	MaxCombo       int    `json:"max_combo"`
	CorrectAnswers int    `json:"correct_answers"`
	TimeLeft       int    `json:"time_left"`
	Theme          string `json:"theme,omitempty"`
	WordLength     int    `json:"word_length,omitempty"`
	Message        string `json:"message,omitempty"`
	Rank           int    `json:"rank,omitempty"`
}

// GuessResult reports one submit evaluation.
type GuessResult struct {
	Correct bool        `json:"correct"`
	Points  int         `json:"points"`
	Session SessionView `json:"session"`
}

type SessionService struct {
	scores ScoreSaver
	ranks  RankLookup
	words  WordProvider
	redis  *redis.Client

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionService(scores ScoreSaver, ranks RankLookup, words WordProvider, redis *redis.Client) *SessionService {
	return &SessionService{
		scores:   scores,
		ranks:    ranks,
		words:    words,
		redis:    redis,
		sessions: make(map[string]*Session),
	}
}

// Create makes a fresh session waiting for a nickname.
func (s *SessionService) Create() SessionView {
	session := &Session{
		ID:    generateSessionID(),
		State: StateNickname,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	session.mu.Lock()
	view := session.viewLocked()
	session.mu.Unlock()

	s.mirrorSession(session)
	return view
}

func (s *SessionService) Snapshot(id string) (SessionView, error) {
	session, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	return session.viewLocked(), nil
}

// Start moves a session from nickname entry into play. The nickname has
// already been validated at the edge (2-10 characters, letters and digits).
func (s *SessionService) Start(ctx context.Context, id, nickname string, hub *Hub) (SessionView, error) {
	session, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.State != StateNickname {
		return SessionView{}, ErrInvalidState
	}

	session.Nickname = nickname
	if err := s.beginRoundLocked(ctx, session, hub); err != nil {
		return SessionView{}, err
	}
	return session.viewLocked(), nil
}

// Guess evaluates one typed submission against the target word.
func (s *SessionService) Guess(ctx context.Context, id, input string, hub *Hub) (*GuessResult, error) {
	session, err := s.get(id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.State != StatePlaying || session.Word == nil {
		return nil, ErrInvalidState
	}

	input = strings.TrimSpace(input)
	if input != session.Word.Text {
		session.Combo = 0
		s.setTransientMessageLocked(session, hub, "Wrong! Try again", failMessageDelay)
		s.mirrorSessionLocked(session)
		return &GuessResult{Correct: false, Session: session.viewLocked()}, nil
	}

	// Combo counts answers before this one; the streak grows after the
	// points are banked.
	points := basePoints + utf8.RuneCountInString(session.Word.Text)*pointsPerLetter + session.Combo*pointsPerCombo
	session.Score += points
	session.Combo++
	session.CorrectAnswers++
	if session.Combo > session.MaxCombo {
		session.MaxCombo = session.Combo
	}

	s.advanceWordLocked(ctx, session)
	s.setTransientMessageLocked(session, hub, "Correct!", successMessageDelay)

	if hub != nil {
		hub.BroadcastToSession(session.ID, "score_update", map[string]interface{}{
			"score":         session.Score,
			"combo":         session.Combo,
			"points_earned": points,
		})
	}

	s.mirrorSessionLocked(session)
	return &GuessResult{Correct: true, Points: points, Session: session.viewLocked()}, nil
}

// Pass skips the current word. The combo breaks; score and correct-answer
// count are untouched.
func (s *SessionService) Pass(ctx context.Context, id string, hub *Hub) (SessionView, error) {
	session, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.State != StatePlaying || session.Word == nil {
		return SessionView{}, ErrInvalidState
	}

	session.Combo = 0
	s.advanceWordLocked(ctx, session)
	s.setTransientMessageLocked(session, hub, "Passed! Next word", passMessageDelay)
	s.mirrorSessionLocked(session)
	return session.viewLocked(), nil
}

// End is the manual game-over path. It goes through the same one-shot latch
// as the timer, so racing triggers still produce exactly one save.
func (s *SessionService) End(id string, hub *Hub) (SessionView, error) {
	session, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	if session.State != StatePlaying && session.State != StateGameOver {
		session.mu.Unlock()
		return SessionView{}, ErrInvalidState
	}
	session.mu.Unlock()

	s.finishGame(session, hub, false)

	session.mu.Lock()
	defer session.mu.Unlock()
	return session.viewLocked(), nil
}

// Replay starts a new round from the game-over screen, keeping the nickname
// and re-arming the game-over latch.
func (s *SessionService) Replay(ctx context.Context, id string, hub *Hub) (SessionView, error) {
	session, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.State != StateGameOver {
		return SessionView{}, ErrInvalidState
	}

	if err := s.beginRoundLocked(ctx, session, hub); err != nil {
		return SessionView{}, err
	}
	return session.viewLocked(), nil
}

// Reset returns a finished session to nickname entry, discarding the
// play-through.
func (s *SessionService) Reset(id string) (SessionView, error) {
	session, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.State != StateGameOver {
		return SessionView{}, ErrInvalidState
	}

	session.State = StateNickname
	session.Nickname = ""
	session.Score = 0
	session.Combo = 0
	session.MaxCombo = 0
	session.CorrectAnswers = 0
	session.TimeLeft = 0
	session.Word = nil
	session.Message = ""
	session.FinalRank = 0
	session.ended = false

	s.mirrorSessionLocked(session)
	return session.viewLocked(), nil
}

// OpenRanking shows the leaderboard view. It is reachable from nickname
// entry and from the game-over screen, and remembers where it was opened
// from.
func (s *SessionService) OpenRanking(id string) (SessionView, error) {
	session, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.State != StateNickname && session.State != StateGameOver {
		return SessionView{}, ErrInvalidState
	}

	session.rankingFrom = session.State
	session.State = StateRanking
	s.mirrorSessionLocked(session)
	return session.viewLocked(), nil
}

// CloseRanking returns to whichever state the ranking view was opened from.
func (s *SessionService) CloseRanking(id string) (SessionView, error) {
	session, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.State != StateRanking {
		return SessionView{}, ErrInvalidState
	}

	if session.rankingFrom != "" {
		session.State = session.rankingFrom
	} else {
		session.State = StateNickname
	}
	session.rankingFrom = ""
	s.mirrorSessionLocked(session)
	return session.viewLocked(), nil
}

// Delete discards a session entirely.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	session, err := s.get(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	if session.stopTimer != nil {
		close(session.stopTimer)
		session.stopTimer = nil
	}
	session.mu.Unlock()

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	if s.redis != nil {
		if err := s.redis.Del(ctx, sessionStateKey(id)).Err(); err != nil {
			log.Printf("Failed to delete session mirror %s: %v", id, err)
		}
	}
	return nil
}

func (s *SessionService) get(id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// beginRoundLocked resets every counter, arms the latch, picks the first
// word and starts the countdown. Caller holds session.mu.
func (s *SessionService) beginRoundLocked(ctx context.Context, session *Session, hub *Hub) error {
	word, err := s.words.Next(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to pick initial word: %w", err)
	}

	session.Score = 0
	session.Combo = 0
	session.MaxCombo = 0
	session.CorrectAnswers = 0
	session.TimeLeft = gameDurationSeconds
	session.Word = word
	session.Message = ""
	session.FinalRank = 0
	session.ended = false
	session.State = StatePlaying

	if session.stopTimer != nil {
		close(session.stopTimer)
	}
	session.stopTimer = make(chan struct{})
	go s.runSessionTimer(session, session.stopTimer, hub)

	s.mirrorSessionLocked(session)
	return nil
}

// advanceWordLocked swaps in a new target word, excluding the current one.
// If the provider fails the current word stays; the round keeps going.
func (s *SessionService) advanceWordLocked(ctx context.Context, session *Session) {
	word, err := s.words.Next(ctx, session.Word.Text)
	if err != nil {
		log.Printf("Failed to fetch next word for session %s: %v", session.ID, err)
		return
	}
	session.Word = word
}

// runSessionTimer drives the 1-second countdown for one round.
func (s *SessionService) runSessionTimer(session *Session, stop chan struct{}, hub *Hub) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.tick(session, hub) {
				return
			}
		}
	}
}

// tick decrements the countdown once. Returns false when the round is over
// and the timer should stop.
func (s *SessionService) tick(session *Session, hub *Hub) bool {
	session.mu.Lock()
	if session.State != StatePlaying || session.ended {
		session.mu.Unlock()
		return false
	}

	session.TimeLeft--
	timeLeft := session.TimeLeft
	session.mu.Unlock()

	if hub != nil {
		hub.BroadcastToSession(session.ID, "timer_update", map[string]interface{}{
			"time_left": timeLeft,
		})
	}

	if timeLeft <= 0 {
		s.finishGame(session, hub, true)
		return false
	}
	return true
}

// finishGame fires the terminal transition. The latch guarantees one save
// per play-through no matter how many triggers race; the counters are read
// under the lock in the same critical section that flips it. timedOut marks
// the countdown path, as opposed to a manual forfeit.
func (s *SessionService) finishGame(session *Session, hub *Hub, timedOut bool) {
	session.mu.Lock()
	if session.ended || session.State != StatePlaying {
		session.mu.Unlock()
		return
	}
	session.ended = true
	session.State = StateGameOver
	if session.TimeLeft < 0 {
		session.TimeLeft = 0
	}
	if timedOut {
		session.Message = "Time is up! Game over"
	} else {
		session.Message = "Game over"
	}
	if session.stopTimer != nil {
		close(session.stopTimer)
		session.stopTimer = nil
	}

	nickname := session.Nickname
	score := session.Score
	correctAnswers := session.CorrectAnswers
	maxCombo := session.MaxCombo
	session.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), gameOverTimeout)
	defer cancel()

	// Neither failure aborts the transition: a lost score or missing rank
	// must not break the game-over screen.
	if _, err := s.scores.Save(ctx, nickname, score, correctAnswers, maxCombo); err != nil {
		log.Printf("Failed to save score for session %s: %v", session.ID, err)
	} else if s.ranks != nil {
		rank, err := s.ranks.PlayerRank(ctx, nickname)
		if err != nil {
			log.Printf("Failed to look up rank for session %s: %v", session.ID, err)
		} else {
			session.mu.Lock()
			session.FinalRank = rank
			session.mu.Unlock()
		}
	}

	s.mirrorSession(session)

	if hub != nil {
		session.mu.Lock()
		view := session.viewLocked()
		session.mu.Unlock()
		hub.BroadcastToSession(session.ID, "game_over", view)
	}
}

// setTransientMessageLocked shows a message and clears it after the delay,
// unless a newer message replaced it first. Caller holds session.mu.
func (s *SessionService) setTransientMessageLocked(session *Session, hub *Hub, text string, delay time.Duration) {
	session.Message = text
	session.msgSeq++
	seq := session.msgSeq

	if hub != nil {
		hub.BroadcastToSession(session.ID, "message", map[string]interface{}{
			"text": text,
		})
	}

	time.AfterFunc(delay, func() {
		session.mu.Lock()
		stale := session.msgSeq != seq || session.State != StatePlaying
		if !stale {
			session.Message = ""
		}
		session.mu.Unlock()

		if !stale && hub != nil {
			hub.BroadcastToSession(session.ID, "message_clear", nil)
		}
	})
}

// viewLocked builds the outward projection. Caller holds session.mu.
func (session *Session) viewLocked() SessionView {
	view := SessionView{
		ID:             session.ID,
		State:          session.State,
		Nickname:       session.Nickname,
		Score:          session.Score,
		Combo:          session.Combo,
		MaxCombo:       session.MaxCombo,
		CorrectAnswers: session.CorrectAnswers,
		TimeLeft:       session.TimeLeft,
		Message:        session.Message,
		Rank:           session.FinalRank,
	}
	if session.Word != nil {
		view.Theme = session.Word.Theme
		view.WordLength = utf8.RuneCountInString(session.Word.Text)
	}
	return view
}

func (s *SessionService) mirrorSession(session *Session) {
	session.mu.Lock()
	s.mirrorSessionLocked(session)
	session.mu.Unlock()
}

// mirrorSessionLocked stores a snapshot in redis so a reconnecting client
// can resync without the in-memory session being authoritative any less.
// Caller holds session.mu.
func (s *SessionService) mirrorSessionLocked(session *Session) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(session.viewLocked())
	if err != nil {
		log.Printf("Failed to marshal session state for %s: %v", session.ID, err)
		return
	}
	if err := s.redis.Set(context.Background(), sessionStateKey(session.ID), data, sessionStateTTL).Err(); err != nil {
		log.Printf("Failed to mirror session state for %s: %v", session.ID, err)
	}
}

func sessionStateKey(id string) string {
	return "session:" + id
}

func generateSessionID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
