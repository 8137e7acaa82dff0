package room

import "yaniv/internal/model"

// PlayerView is one player's entry in a snapshot's game.players array.
// Self-only fields are populated only when the snapshot is built for that
// player's own pid.
type PlayerView struct {
	Name      string          `json:"name"`
	Score     int             `json:"score"`
	HandCount int             `json:"handCount"`
	IsAI      bool            `json:"isAi"`
	IsCurrent bool            `json:"isCurrent"`
	Pid       string          `json:"pid,omitempty"`
	Hand      []model.CardDTO `json:"hand,omitempty"`
	IsSelf    bool            `json:"isSelf,omitempty"`
	CanYaniv  bool            `json:"canYaniv,omitempty"`
}

// GameView is the snapshot's game object.
type GameView struct {
	Players           []PlayerView    `json:"players"`
	DiscardTop        []model.CardDTO `json:"discardTop"`
	DrawOptions       []model.CardDTO `json:"drawOptions,omitempty"`
	CurrentPlayerName string          `json:"currentPlayerName"`
	IsMyTurn          bool            `json:"isMyTurn"`
	DeckSize          int             `json:"deckSize"`
	CanSlamdown       bool            `json:"canSlamdown"`
	SlamdownCard      *model.CardDTO  `json:"slamdownCard,omitempty"`
	SlamdownsAllowed  bool            `json:"slamdownsAllowed"`
}

// Snapshot is the full per-recipient room view.
type Snapshot struct {
	Code      string             `json:"code"`
	Status    model.RoomStatus   `json:"status"`
	Members   []model.Member     `json:"members"`
	Game      *GameView          `json:"game,omitempty"`
	Winner    string             `json:"winner,omitempty"`
	LastTurn  *model.TurnRecord  `json:"lastTurn,omitempty"`
	LastRound *model.RoundResult `json:"lastRound,omitempty"`
	NextRoom  string             `json:"nextRoom,omitempty"`
	Options   model.RoomOptions  `json:"options"`
}

// BuildSnapshot builds the view of r for the requesting pid.
// Callers must hold r.mu.
func BuildSnapshot(r *Room, forPid string) Snapshot {
	snap := Snapshot{
		Code:      r.Code,
		Status:    r.Status,
		Members:   r.Members,
		Winner:    r.Winner,
		LastTurn:  r.LastTurn,
		LastRound: r.LastRound,
		NextRoom:  r.NextRoom,
		Options:   r.Options,
	}
	if r.Game == nil {
		return snap
	}

	if r.Status == model.StatusFinished {
		// Finished rooms only expose scores; the player list may have
		// shrunk, so start_turn()'s current-player bookkeeping is skipped
		// (grounded on the original server's room_state finished branch).
		snap.Game = &GameView{
			Players:          finishedPlayerViews(r.Game.Players),
			SlamdownsAllowed: r.Options.SlamdownsAllowed,
		}
		return snap
	}

	current, drawOptions := r.Game.StartTurn()
	view := &GameView{
		DiscardTop:        model.CardsToDTO(r.Game.LastDiscard),
		DeckSize:          len(r.Game.Deck),
		SlamdownsAllowed:  r.Options.SlamdownsAllowed,
	}
	if current != nil {
		view.CurrentPlayerName = current.Name
	}

	for _, p := range r.Game.Players {
		pv := PlayerView{
			Name:      p.Name,
			Score:     p.Score,
			HandCount: len(p.Hand),
			IsAI:      p.IsAI,
			IsCurrent: p == current,
		}
		if p.Pid == forPid {
			pv.Pid = p.Pid
			pv.Hand = model.CardsToDTO(p.Hand)
			pv.IsSelf = true
			pv.CanYaniv = r.Game.CanDeclareYaniv(p)

			view.IsMyTurn = p == current
			if view.IsMyTurn {
				view.DrawOptions = model.CardsToDTO(drawOptions)
			}
			if r.Game.SlamdownPlayer == p.Name && r.Game.SlamdownCard != nil {
				view.CanSlamdown = true
				dto := r.Game.SlamdownCard.ToDTO()
				view.SlamdownCard = &dto
			}
		}
		view.Players = append(view.Players, pv)
	}

	snap.Game = view
	return snap
}

func finishedPlayerViews(players []*model.Player) []PlayerView {
	out := make([]PlayerView, len(players))
	for i, p := range players {
		out[i] = PlayerView{Name: p.Name, Score: p.Score, IsAI: p.IsAI}
	}
	return out
}
