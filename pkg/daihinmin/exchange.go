package daihinmin

import (
	"fmt"
	"sort"
)

// Exchange is one directed card transfer between seats at the start of a
// game.
type Exchange struct {
	From  int
	To    int
	Cards []Card
}

// exchangeMoves lists the class pairs and how many cards move between them.
// The privileged side gives its weakest cards but keeps Jokers and 2s; the
// poor side gives its weakest cards outright.
var exchangeMoves = []struct {
	from, to Class
	n        int
	keepTop  bool
}{
	{ClassDaifugo, ClassDaihinmin, 2, true},
	{ClassDaihinmin, ClassDaifugo, 2, false},
	{ClassFugo, ClassHinmin, 1, true},
	{ClassHinmin, ClassFugo, 1, false},
}

// RunExchange performs the class-based card exchange. Every give-list is
// computed from the pre-exchange hands before any card moves, so a card
// received in one direction is never handed straight back in the other.
func (m *Match) RunExchange() []Exchange {
	if m.phase != PhaseExchanging {
		panic(fmt.Sprintf("daihinmin: exchange in phase %s", m.phase))
	}

	staged := make([]Exchange, 0, len(exchangeMoves))
	for _, mv := range exchangeMoves {
		from, ok := m.seatWithClass(mv.from)
		if !ok {
			continue
		}
		to, ok := m.seatWithClass(mv.to)
		if !ok {
			continue
		}
		cards := weakestCards(m.hands[from], mv.n, mv.keepTop)
		staged = append(staged, Exchange{From: from, To: to, Cards: cards})
	}

	for _, ex := range staged {
		for _, c := range ex.Cards {
			m.hands[ex.From].Remove(c)
			m.hands[ex.To].Add(c)
		}
	}

	m.phase = PhasePlaying
	m.checkInvariants()
	return staged
}

// weakestCards picks the n weakest cards from hand. With keepTop set,
// Jokers and 2s are skipped; if that leaves fewer than n candidates the
// shortfall is filled from the weakest of what was skipped.
func weakestCards(hand *CardSet, n int, keepTop bool) []Card {
	cards := hand.Cards()
	sort.Slice(cards, func(i, j int) bool { return cards[i].weaker(cards[j]) })

	if !keepTop {
		if len(cards) < n {
			return cards
		}
		return cards[:n]
	}

	picked := make([]Card, 0, n)
	for _, c := range cards {
		if c.IsJoker() || c.Rank() == Two {
			continue
		}
		picked = append(picked, c)
		if len(picked) == n {
			return picked
		}
	}
	for _, c := range cards {
		if len(picked) == n {
			break
		}
		if c.IsJoker() || c.Rank() == Two {
			picked = append(picked, c)
		}
	}
	return picked
}
