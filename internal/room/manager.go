package room

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"yaniv/internal/ai"
	"yaniv/internal/broadcast"
	"yaniv/internal/engine"
	"yaniv/internal/logging"
	"yaniv/internal/model"
	"yaniv/internal/rng"
	"yaniv/internal/store"
)

var log = logging.ForComponent("room")

// Sentinel errors the server package maps to HTTP statuses.
var (
	ErrNotFound      = errors.New("room not found")
	ErrForbidden     = errors.New("not allowed")
	ErrInvalidState  = errors.New("room is not in the right state")
	ErrValidation    = errors.New("invalid request")
	ErrUnknownMember = errors.New("unknown player")
)

const maxHumanMembers = 4
const codeAlphabet = "abcdefghijklmnopqrstuvwxyz"
const codeLength = 5

// Manager owns the room registry: a short-lived lock guards only the map
// itself, and each Room additionally has its own lock held across the
// mutate+snapshot+persist+broadcast unit.
type Manager struct {
	mu    sync.Mutex
	rooms map[string]*Room

	store *store.Store
	hub   *broadcast.Hub
}

func NewManager(st *store.Store, hub *broadcast.Hub) *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
		store: st,
		hub:   hub,
	}
}

func (m *Manager) getRoom(code string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[strings.ToLower(code)]
	return r, ok
}

func (m *Manager) putRoom(r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.Code] = r
}

func (m *Manager) generateCode() string {
	for {
		b := make([]byte, codeLength)
		for i := range b {
			b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if _, exists := m.getRoom(code); !exists {
			return code
		}
	}
}

// CreateRoom creates a new waiting room with the given human creator and
// aiCount AI members.
func (m *Manager) CreateRoom(name, pid string, aiCount int) (code, resolvedPid string, err error) {
	if name == "" || len(name) > 20 {
		return "", "", fmt.Errorf("%w: name must be 1-20 characters", ErrValidation)
	}
	if aiCount < 0 || aiCount > 3 {
		return "", "", fmt.Errorf("%w: aiCount must be 0-3", ErrValidation)
	}
	if pid == "" {
		pid = uuid.New().String()
	}

	code = m.generateCode()
	r := newRoom(code, pid, name, false)
	for i := 0; i < aiCount; i++ {
		aiPid := uuid.New().String()
		r.Members = append(r.Members, model.Member{Pid: aiPid, Name: aiBotName(i), IsAI: true})
	}
	r.mu.Lock()
	m.persistLocked(r)
	r.mu.Unlock()
	m.putRoom(r)
	return code, pid, nil
}

func aiBotName(i int) string {
	names := []string{"Bot Alpha", "Bot Bravo", "Bot Charlie"}
	if i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("Bot %d", i+1)
}

// JoinRoom adds a member to a waiting room.
func (m *Manager) JoinRoom(code, pid, name string) (resolvedPid string, err error) {
	r, ok := m.getRoom(code)
	if !ok {
		return "", ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if pid != "" {
		if existing := r.memberByPid(pid); existing != nil {
			return pid, nil
		}
	}
	if r.Status != model.StatusWaiting {
		return "", fmt.Errorf("%w: room already started", ErrInvalidState)
	}
	humanCount := 0
	for _, mem := range r.Members {
		if !mem.IsAI {
			humanCount++
		}
	}
	if humanCount >= maxHumanMembers {
		return "", fmt.Errorf("%w: room is full", ErrInvalidState)
	}
	if name == "" || len(name) > 20 {
		return "", fmt.Errorf("%w: name must be 1-20 characters", ErrValidation)
	}
	if pid == "" {
		pid = uuid.New().String()
	}
	r.Members = append(r.Members, model.Member{Pid: pid, Name: name, IsAI: false})
	m.persistLocked(r)
	m.broadcastLocked(r)
	return pid, nil
}

// LeaveRoom removes a member while the room is still waiting.
func (m *Manager) LeaveRoom(code, pid string) error {
	r, ok := m.getRoom(code)
	if !ok {
		return ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != model.StatusWaiting {
		return fmt.Errorf("%w: can only leave before the game starts", ErrInvalidState)
	}
	idx := -1
	for i, mem := range r.Members {
		if mem.Pid == pid {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrUnknownMember
	}
	r.Members = append(r.Members[:idx], r.Members[idx+1:]...)
	m.persistLocked(r)
	m.broadcastLocked(r)
	return nil
}

// SetOptions updates room options; only the creator may do this, and only
// while waiting.
func (m *Manager) SetOptions(code, pid string, slamdownsAllowed bool) (model.RoomOptions, error) {
	r, ok := m.getRoom(code)
	if !ok {
		return model.RoomOptions{}, ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isCreator(pid) {
		return model.RoomOptions{}, fmt.Errorf("%w: only the creator may change options", ErrForbidden)
	}
	if r.Status != model.StatusWaiting {
		return model.RoomOptions{}, fmt.Errorf("%w: cannot change options after start", ErrInvalidState)
	}
	r.Options.SlamdownsAllowed = slamdownsAllowed && !anyAIMember(r.Members)
	m.persistLocked(r)
	m.broadcastLocked(r)
	return r.Options, nil
}

func anyAIMember(members []model.Member) bool {
	for _, mem := range members {
		if mem.IsAI {
			return true
		}
	}
	return false
}

// StartGame deals the first round; only the creator may start, and only
// with at least 2 members.
func (m *Manager) StartGame(code, pid string, slamdownsAllowed *bool) error {
	r, ok := m.getRoom(code)
	if !ok {
		return ErrNotFound
	}
	r.mu.Lock()

	if !r.isCreator(pid) {
		r.mu.Unlock()
		return fmt.Errorf("%w: only the creator may start", ErrForbidden)
	}
	if r.Status != model.StatusWaiting {
		r.mu.Unlock()
		return fmt.Errorf("%w: game already started", ErrInvalidState)
	}
	if len(r.Members) < 2 {
		r.mu.Unlock()
		return fmt.Errorf("%w: need at least 2 members", ErrValidation)
	}
	if slamdownsAllowed != nil {
		r.Options.SlamdownsAllowed = *slamdownsAllowed && !anyAIMember(r.Members)
	}

	players := make([]*model.Player, len(r.Members))
	for i, mem := range r.Members {
		p := &model.Player{Name: mem.Name, Pid: mem.Pid, IsAI: mem.IsAI, Creator: mem.Pid == r.creatorPid}
		if mem.IsAI {
			p.AIState = ai.NewObserver()
		}
		players[i] = p
	}
	r.Game = engine.New(players, rng.New(time.Now().UnixNano()))
	r.Game.StartGame()
	r.Status = model.StatusPlaying

	m.persistLocked(r)
	m.broadcastLocked(r)
	r.mu.Unlock()

	m.kickAIWorker(r)
	return nil
}

// ActionRequest is the parsed body of POST /api/action.
type ActionRequest struct {
	Discard         []int
	Draw            *string // "deck", a numeric string index, or nil
	DeclareYaniv    bool
	DeclareSlamdown bool
}

// Action executes one player action.
func (m *Manager) Action(code, pid string, req ActionRequest) error {
	r, ok := m.getRoom(code)
	if !ok {
		return ErrNotFound
	}
	r.mu.Lock()

	if r.Game == nil || r.Status != model.StatusPlaying {
		r.mu.Unlock()
		return fmt.Errorf("%w: game is not in progress", ErrInvalidState)
	}
	player := r.PlayerByPid(pid)
	if player == nil {
		r.mu.Unlock()
		return ErrUnknownMember
	}

	var winner *model.Player
	var err error

	switch {
	case req.DeclareSlamdown:
		if !r.Options.SlamdownsAllowed {
			err = fmt.Errorf("%w: slamdowns are not enabled", ErrValidation)
		} else {
			slammedCard := r.Game.SlamdownCard
			if err = r.Game.PerformSlamdown(player); err == nil && slammedCard != nil {
				r.LastTurn = &model.TurnRecord{
					ActingPlayer:   player.Name,
					DiscardedCards: model.CardsToDTO([]model.Card{*slammedCard}),
					DrawSource:     model.DrawFromSlamdown,
				}
			}
		}
	case req.DeclareYaniv:
		var result *model.RoundResult
		result, winner, err = r.Game.DeclareYaniv(player)
		if err == nil {
			r.LastRound = result
			r.LastTurn = nil
			r.RoundBannerTurnsLeft = len(r.Game.Players)
			if winner != nil {
				r.Status = model.StatusFinished
				r.Winner = winner.Name
			}
		}
	default:
		err = m.applyPlayAction(r, player, req)
	}

	if err != nil {
		r.mu.Unlock()
		return err
	}

	m.persistLocked(r)
	m.broadcastLocked(r)
	r.mu.Unlock()

	if winner == nil {
		m.kickAIWorker(r)
	}
	return nil
}

func (m *Manager) applyPlayAction(r *Room, player *model.Player, req ActionRequest) error {
	if len(req.Discard) == 0 {
		return fmt.Errorf("%w: discard is required", ErrValidation)
	}
	if req.Draw == nil {
		return fmt.Errorf("%w: draw is required", ErrValidation)
	}
	draw, err := parseDraw(*req.Draw)
	if err != nil {
		return err
	}
	rec, err := r.Game.PlayTurn(player, req.Discard, draw)
	if err != nil {
		return err
	}
	r.LastTurn = &rec
	r.advanceRoundBanner()
	return nil
}

func parseDraw(raw string) (engine.Draw, error) {
	if raw == "deck" {
		return engine.Draw{FromDeck: true}, nil
	}
	idx, err := parseNonNegativeInt(raw)
	if err != nil {
		return engine.Draw{}, fmt.Errorf("%w: draw must be \"deck\" or a pile index", ErrValidation)
	}
	return engine.Draw{FromDeck: false, Index: idx}, nil
}

func parseNonNegativeInt(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, errors.New("empty")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.New("not a number")
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// PlayAgain creates (or returns, if already created) the rematch room for
// a finished room; idempotent.
func (m *Manager) PlayAgain(code, pid string) (string, error) {
	r, ok := m.getRoom(code)
	if !ok {
		return "", ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != model.StatusFinished {
		return "", fmt.Errorf("%w: room is not finished", ErrInvalidState)
	}
	if r.NextRoom != "" {
		return r.NextRoom, nil
	}
	if r.memberByPid(pid) == nil {
		return "", ErrUnknownMember
	}

	newCode := m.generateCode()
	nr := newRoom(newCode, r.creatorPid, "", false)
	nr.Members = append([]model.Member(nil), r.Members...)
	nr.mu.Lock()
	m.persistLocked(nr)
	nr.mu.Unlock()
	m.putRoom(nr)

	r.NextRoom = newCode
	m.persistLocked(r)
	m.broadcastLocked(r)
	return newCode, nil
}

// GetSnapshot returns the current snapshot of a room for a given pid, used
// by GET /api/room/:code and by the SSE handler's initial push.
func (m *Manager) GetSnapshot(code, pid string) (Snapshot, error) {
	r, ok := m.getRoom(code)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return BuildSnapshot(r, pid), nil
}

// Hub exposes the broadcast hub for the SSE handler.
func (m *Manager) Hub() *broadcast.Hub { return m.hub }

// broadcastLocked pushes a fresh per-recipient snapshot to every subscriber
// of r's room. Callers must already hold r.mu; Publish calls its callback
// synchronously so no further locking is needed inside it.
func (m *Manager) broadcastLocked(r *Room) {
	m.hub.Publish(r.Code, func(pid string) interface{} {
		return BuildSnapshot(r, pid)
	})
}

// persistLocked saves r's current state. Callers must already hold r.mu.
func (m *Manager) persistLocked(r *Room) {
	if m.store == nil {
		return
	}
	m.store.SaveRoom(m.recordOf(r))
}
