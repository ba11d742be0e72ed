// internal/game/view.go
//
// Client-facing projection of a Session. Face-down cards never expose their
// pair key, so the view is safe to send to the player.

package game

// CardView is a card as shown to the player; face-down cards hide their PairKey.
type CardView struct {
	ID        int  `json:"id"`
	PairKey   *int `json:"pairKey,omitempty"`
	IsFlipped bool `json:"isFlipped"`
	IsMatched bool `json:"isMatched"`
}

// View is the player-facing snapshot of a session.
type View struct {
	SessionID    string     `json:"sessionId"`
	Difficulty   int        `json:"difficulty"`
	MoveBudget   int        `json:"moveBudget"`
	MovesUsed    int        `json:"movesUsed"`
	MatchesFound int        `json:"matchesFound"`
	PairCount    int        `json:"pairCount"`
	Score        float64    `json:"score"`
	State        State      `json:"state"`
	Cards        []CardView `json:"cards"`
}

// View builds the snapshot.
func (s *Session) View() View {
	cards := make([]CardView, len(s.Cards))
	for i, c := range s.Cards {
		cv := CardView{ID: c.ID, IsFlipped: c.IsFlipped, IsMatched: c.IsMatched}
		if c.IsFlipped || c.IsMatched {
			k := c.PairKey
			cv.PairKey = &k
		}
		cards[i] = cv
	}
	return View{
		SessionID:    s.ID,
		Difficulty:   int(s.Difficulty),
		MoveBudget:   s.Budget(),
		MovesUsed:    s.MovesUsed,
		MatchesFound: s.MatchesFound,
		PairCount:    s.PairCount,
		Score:        s.Score,
		State:        s.State,
		Cards:        cards,
	}
}
