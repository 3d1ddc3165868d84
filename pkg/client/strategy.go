package client

import (
	"sort"

	"github.com/uecdago/uecda-server/pkg/daihinmin"
	"github.com/uecdago/uecda-server/pkg/protocol"
)

// Lowest is the naive default player: it leads its weakest card, follows a
// lone field card with its weakest strictly stronger single, and passes on
// everything else.
var Lowest Strategy = StrategyFunc(lowest)

func lowest(q protocol.Table, field []daihinmin.Card) []daihinmin.Card {
	hand := q.Cards()
	if len(hand) == 0 {
		return nil
	}

	inverted := (q[protocol.RowMeta][protocol.ColRevolution] == 1) !=
		(q[protocol.RowMeta][protocol.ColElevenBack] == 1)
	sort.Slice(hand, func(i, j int) bool {
		return strength(hand[i], inverted) < strength(hand[j], inverted)
	})

	if q[protocol.RowMeta][protocol.ColTrickStart] == 1 {
		return hand[:1]
	}
	if len(field) != 1 {
		return nil
	}

	target := field[0]
	if target.IsJoker() {
		// Only the Spade 3 answers a lone Joker.
		s3 := daihinmin.NewCard(daihinmin.Spade, daihinmin.Three)
		for _, c := range hand {
			if c == s3 {
				return []daihinmin.Card{c}
			}
		}
		return nil
	}

	locked := q[protocol.RowMeta][protocol.ColLockActive] == 1
	for _, c := range hand {
		if strength(c, inverted) <= strength(target, inverted) {
			continue
		}
		if locked && !c.IsJoker() && q[protocol.RowMeta][protocol.ColLockMask+int(c.Suit())] != 1 {
			continue
		}
		return []daihinmin.Card{c}
	}
	return nil
}

// strength orders singles weakest first under the given direction. The Joker
// tops both directions.
func strength(c daihinmin.Card, inverted bool) int {
	if c.IsJoker() {
		return 100
	}
	if inverted {
		return int(daihinmin.Two) - int(c.Rank())
	}
	return int(c.Rank())
}
