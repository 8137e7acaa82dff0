package engine

import "yaniv/internal/model"

// DeclareYaniv runs scoring for the declaring player, prunes
// eliminated players, and either redeals the next round or transitions the
// game to finished. Returns the round result and the winner if the game
// ended.
func (g *Game) DeclareYaniv(declarer *model.Player) (*model.RoundResult, *model.Player, error) {
	if g.CurrentPlayer() != declarer {
		return nil, nil, illegal("not your turn")
	}
	if !g.CanDeclareYaniv(declarer) {
		return nil, nil, illegal("hand value exceeds 5")
	}
	g.ClearSlamdown()

	declarerHandValue := declarer.HandValue()
	declarerHandDTO := model.CardsToDTO(declarer.Hand)

	g.PreviousScores = make(map[string]int, len(g.Players))
	for _, p := range g.Players {
		g.PreviousScores[p.Name] = p.Score
	}

	minOther := -1
	var minPlayer *model.Player
	otherValues := make(map[string]int, len(g.Players)-1)
	for _, p := range g.Players {
		if p == declarer {
			continue
		}
		v := p.HandValue()
		otherValues[p.Name] = v
		if minOther == -1 || v < minOther {
			minOther = v
			minPlayer = p
		}
	}

	result := &model.RoundResult{
		Declarer:          declarer.Name,
		DeclarerHandValue: declarerHandValue,
	}

	clean := minOther == -1 || declarerHandValue < minOther
	if clean {
		for _, p := range g.Players {
			if p == declarer {
				continue
			}
			p.Score += otherValues[p.Name]
		}
	} else {
		declarer.Score += 30
		result.Assaf = model.Assaf{Assafed: true}
		if minPlayer != nil {
			result.Assaf.By = minPlayer.Name
		}
	}

	for _, p := range g.Players {
		if (p.Score == 50 || p.Score == 100) && g.PreviousScores[p.Name] < p.Score {
			p.Score -= 50
			result.Resets = append(result.Resets, p.Name)
		}
	}

	survivors := make([]*model.Player, 0, len(g.Players))
	eliminatedSet := make(map[string]bool)
	for _, p := range g.Players {
		if p.Score > 100 {
			eliminatedSet[p.Name] = true
			result.Eliminated = append(result.Eliminated, p.Name)
		} else {
			survivors = append(survivors, p)
		}
	}

	for _, p := range g.Players {
		hand := p.Hand
		if p == declarer {
			hand = cardsFromDTO(declarerHandDTO)
		}
		result.ScoreChanges = append(result.ScoreChanges, model.ScoreChange{
			Name:       p.Name,
			Added:      p.Score - g.PreviousScores[p.Name] + boolToInt(contains(result.Resets, p.Name))*50,
			NewScore:   p.Score,
			Reset:      contains(result.Resets, p.Name),
			Eliminated: eliminatedSet[p.Name],
			FinalHand:  model.CardsToDTO(hand),
		})
	}

	oldIndex := indexOf(g.Players, declarer)
	g.Players = survivors

	if len(g.Players) <= 1 {
		var winner *model.Player
		if len(g.Players) == 1 {
			winner = g.Players[0]
		}
		return result, winner, nil
	}

	if oldIndex >= len(g.Players) {
		oldIndex = oldIndex % len(g.Players)
	}
	g.CurrentPlayerIndex = oldIndex % len(g.Players)
	g.dealRound()

	return result, nil, nil
}

func cardsFromDTO(dtos []model.CardDTO) []model.Card {
	out := make([]model.Card, len(dtos))
	for i, d := range dtos {
		out[i] = model.NewCard(d.ID)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func indexOf(players []*model.Player, target *model.Player) int {
	for i, p := range players {
		if p == target {
			return i
		}
	}
	return 0
}
