// Package room implements the room state machine and its AI worker: per-room authoritative state, mutation entry points, and the
// cooperative AI-turn drain loop.
package room

import (
	"sync"
	"time"

	"yaniv/internal/engine"
	"yaniv/internal/model"
)

// Room is the authoritative per-room state. All mutation goes
// through Manager. Its request entry points hold the room's lock across
// the full mutate+snapshot+persist+broadcast sequence; the AI worker takes
// the lock once to play a turn and again to persist and broadcast it.
type Room struct {
	mu sync.Mutex

	Code      string
	Status    model.RoomStatus
	Members   []model.Member
	Game      *engine.Game
	Winner    string
	LastTurn  *model.TurnRecord
	LastRound *model.RoundResult

	RoundBannerTurnsLeft int
	Options              model.RoomOptions
	NextRoom             string

	aiWorkerActive bool
	creatorPid     string
	CreatedAt      time.Time
}

func newRoom(code, creatorPid, creatorName string, creatorIsAI bool) *Room {
	return &Room{
		Code:       code,
		Status:     model.StatusWaiting,
		creatorPid: creatorPid,
		Members: []model.Member{
			{Pid: creatorPid, Name: creatorName, IsAI: creatorIsAI},
		},
		CreatedAt: time.Now(),
	}
}

// PlayerByPid finds a member's live engine player, once the game has
// started. Returns nil if the game hasn't started or the pid has no game
// player (shouldn't happen once joined).
func (r *Room) PlayerByPid(pid string) *model.Player {
	if r.Game == nil {
		return nil
	}
	for _, p := range r.Game.Players {
		if p.Pid == pid {
			return p
		}
	}
	return nil
}

func (r *Room) memberByPid(pid string) *model.Member {
	for i := range r.Members {
		if r.Members[i].Pid == pid {
			return &r.Members[i]
		}
	}
	return nil
}

func (r *Room) isCreator(pid string) bool { return r.creatorPid == pid }

// advanceRoundBanner decrements roundBannerTurnsLeft once per turn,
// clearing lastRound when it hits zero.
func (r *Room) advanceRoundBanner() {
	if r.LastRound == nil {
		return
	}
	if r.RoundBannerTurnsLeft <= 0 {
		r.LastRound = nil
		return
	}
	r.RoundBannerTurnsLeft--
	if r.RoundBannerTurnsLeft == 0 {
		r.LastRound = nil
	}
}
