package room

import (
	"encoding/json"
	"time"

	"yaniv/internal/ai"
	"yaniv/internal/engine"
	"yaniv/internal/model"
	"yaniv/internal/rng"
	"yaniv/internal/store"
)

// recordOf converts a room into its persisted representation.
// Callers must hold r.mu.
func (m *Manager) recordOf(r *Room) store.RoomRecord {
	rec := store.RoomRecord{
		Code:                 r.Code,
		Status:               string(r.Status),
		Winner:               r.Winner,
		CreatedAt:            r.CreatedAt,
		RoundBannerTurnsLeft: r.RoundBannerTurnsLeft,
		UpdatedAt:            time.Now(),
	}
	for _, mem := range r.Members {
		rec.Members = append(rec.Members, store.MemberRecord{Pid: mem.Pid, Name: mem.Name, IsAI: mem.IsAI})
	}
	if r.Game != nil {
		if raw, err := r.Game.MarshalState(); err == nil {
			rec.GameJSON = raw
		}
	}
	if r.LastRound != nil {
		if raw, err := json.Marshal(r.LastRound); err == nil {
			rec.LastRound = raw
		}
	}
	if r.LastTurn != nil {
		if raw, err := json.Marshal(r.LastTurn); err == nil {
			rec.LastTurn = raw
		}
	}
	if raw, err := json.Marshal(r.Options); err == nil {
		rec.Options = raw
	}
	return rec
}

// Bootstrap reloads persisted rooms at process start, rebuilds
// each room's live engine.Game, and resumes any AI worker whose turn it is.
func (m *Manager) Bootstrap() {
	if m.store == nil {
		return
	}
	records, err := m.store.LoadRooms()
	if err != nil {
		log.Printf("bootstrap: load rooms: %v", err)
		return
	}
	for _, rec := range records {
		r := roomFromRecord(rec)
		if r == nil {
			continue
		}
		m.putRoom(r)
		if r.Status == model.StatusPlaying && r.Game != nil {
			if cur := r.Game.CurrentPlayer(); cur != nil && cur.IsAI {
				m.kickAIWorker(r)
			}
		}
	}
}

func roomFromRecord(rec store.RoomRecord) *Room {
	r := &Room{
		Code:                 rec.Code,
		Status:               model.RoomStatus(rec.Status),
		Winner:               rec.Winner,
		CreatedAt:            rec.CreatedAt,
		RoundBannerTurnsLeft: rec.RoundBannerTurnsLeft,
	}
	for _, mem := range rec.Members {
		r.Members = append(r.Members, model.Member{Pid: mem.Pid, Name: mem.Name, IsAI: mem.IsAI})
		if r.creatorPid == "" {
			r.creatorPid = mem.Pid
		}
	}
	if len(rec.Options) > 0 {
		_ = json.Unmarshal(rec.Options, &r.Options)
	}
	if len(rec.LastRound) > 0 {
		var lr model.RoundResult
		if err := json.Unmarshal(rec.LastRound, &lr); err == nil {
			r.LastRound = &lr
		}
	}
	if len(rec.LastTurn) > 0 {
		var lt model.TurnRecord
		if err := json.Unmarshal(rec.LastTurn, &lt); err == nil {
			r.LastTurn = &lt
		}
	}
	if len(rec.GameJSON) > 0 {
		g, err := engine.UnmarshalState(rec.GameJSON, rng.New(time.Now().UnixNano()), func(name string) engine.Observer {
			return ai.NewObserver()
		})
		if err != nil {
			log.Printf("bootstrap: room %s: reconstruct game: %v", rec.Code, err)
			return nil
		}
		r.Game = g
	}
	return r
}
