package room

import (
	"yaniv/internal/ai"
	"yaniv/internal/model"
)

// kickAIWorker starts the room's AI drain loop if it isn't already running
// and the current player is AI. Only one worker goroutine runs per room at
// a time (guarded by aiWorkerActive): every mutation, human or AI, goes
// through the room's lock.
func (m *Manager) kickAIWorker(r *Room) {
	r.mu.Lock()
	if r.aiWorkerActive || r.Game == nil || r.Status != model.StatusPlaying {
		r.mu.Unlock()
		return
	}
	cur := r.Game.CurrentPlayer()
	if cur == nil || !cur.IsAI {
		r.mu.Unlock()
		return
	}
	r.aiWorkerActive = true
	r.mu.Unlock()

	go m.runAIWorker(r)
}

// runAIWorker plays consecutive AI turns until control passes to a human,
// the game finishes, or the room disappears. It recovers from any panic
// raised by the engine so a single corrupt state can't take the whole
// process down.
func (m *Manager) runAIWorker(r *Room) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("room %s: AI worker recovered from panic: %v", r.Code, rec)
		}
		r.mu.Lock()
		r.aiWorkerActive = false
		r.mu.Unlock()
	}()

	for {
		done, _ := m.stepAITurn(r)

		r.mu.Lock()
		m.persistLocked(r)
		m.broadcastLocked(r)
		r.mu.Unlock()

		if done {
			return
		}
	}
}

// stepAITurn plays a single AI action. done is true when the loop should
// stop (control passed to a human, no game, or an error occurred); winner
// reports whether the action just ended the game.
func (m *Manager) stepAITurn(r *Room) (done bool, winner bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Game == nil || r.Status != model.StatusPlaying {
		return true, false
	}
	player := r.Game.CurrentPlayer()
	if player == nil || !player.IsAI {
		return true, false
	}
	observer, ok := player.AIState.(*ai.Observer)
	if !ok {
		log.Printf("room %s: AI player %s has no observer state", r.Code, player.Name)
		return true, false
	}

	if r.Game.SlamdownPlayer == player.Name {
		// AI never slamdowns; the pending
		// slamdown window simply lapses on the AI's next action below.
		r.Game.ClearSlamdown()
	}

	hand := player.Hand
	if observer.ShouldDeclareYaniv(hand) {
		result, w, err := r.Game.DeclareYaniv(player)
		if err != nil {
			log.Printf("room %s: AI %s failed to declare yaniv: %v", r.Code, player.Name, err)
			return true, false
		}
		r.LastRound = result
		r.LastTurn = nil
		r.RoundBannerTurnsLeft = len(r.Game.Players)
		if w != nil {
			r.Status = model.StatusFinished
			r.Winner = w.Name
			return true, true
		}
		return false, false
	}

	drawOptions := r.Game.DrawOptions()
	discardIDs, draw := observer.DecideAction(hand, drawOptions)
	rec, err := r.Game.PlayTurn(player, discardIDs, draw)
	if err != nil {
		log.Printf("room %s: AI %s failed to play turn: %v", r.Code, player.Name, err)
		return true, false
	}
	r.LastTurn = &rec
	r.advanceRoundBanner()

	next := r.Game.CurrentPlayer()
	if next == nil || !next.IsAI {
		return true, false
	}
	return false, false
}
