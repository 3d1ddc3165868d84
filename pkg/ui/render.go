package ui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/uecdago/uecda-server/pkg/daihinmin"
	"github.com/uecdago/uecda-server/pkg/journal"
)

// position is everything the view needs at one cursor: the hands and field
// as of the cursor's event, the acting turn, and the special the cursor sits
// on, if any.
type position struct {
	hands   map[string]string
	field   string
	state   journal.TurnState
	turn    *journal.TurnRecord
	special *journal.SpecialRecord
}

// derivePosition replays a game's events up to and including index event.
// Index -1 is the pre-play position: hands as dealt, or as exchanged when an
// exchange record exists.
func derivePosition(g *journal.Game, event int) position {
	var pos position
	if g.Exchange != nil {
		pos.hands = g.Exchange.HandsAfter
	} else if g.Start != nil {
		pos.hands = g.Start.Hands
	}

	for i := 0; i <= event && i < len(g.Events); i++ {
		switch rec := g.Events[i].(type) {
		case *journal.TurnRecord:
			pos.turn = rec
			pos.hands = rec.Hands
			pos.field = rec.Field
			pos.state = rec.State
			pos.special = nil
		case *journal.SpecialRecord:
			pos.special = rec
			if rec.Event == journal.EventFieldClear {
				pos.field = ""
				pos.state.ElevenBack = false
				pos.state.Locked = false
			}
		}
	}
	return pos
}

func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Cannot replay %s: %v", m.path, m.err)) + "\n" +
			helpStyle.Render("Press q to quit")
	}
	if m.session == nil {
		return headerStyle.Render(fmt.Sprintf("Loading %s...", m.path))
	}
	if len(m.session.Games) == 0 {
		return errorStyle.Render("Journal holds no games") + "\n" +
			helpStyle.Render("Press q to quit")
	}

	g := m.session.Games[m.game]
	pos := derivePosition(g, m.event)

	var s string
	s += titleStyle.Render("UECda Session Replay") + "\n"
	s += m.renderHeader(g) + "\n\n"

	if m.event == -1 {
		s += m.renderDeal(g)
	} else {
		s += m.renderAction(pos)
	}

	s += m.renderSeats(g, pos)
	s += m.renderField(pos)

	if m.event == len(g.Events)-1 && g.End != nil {
		s += m.renderGameEnd(g)
		if m.game == len(m.session.Games)-1 && m.session.End != nil {
			s += m.renderSessionEnd()
		}
	}

	s += helpStyle.Render("  ←/→ step, ↑/↓ switch game, g/G jump to deal/end, q quit")
	return s
}

func (m Model) renderHeader(g *journal.Game) string {
	h := fmt.Sprintf("Game %d/%d", m.game+1, len(m.session.Games))
	if m.event == -1 {
		h += "  deal"
	} else {
		h += fmt.Sprintf("  event %d/%d", m.event+1, len(g.Events))
	}
	if m.session.Start != nil {
		names := make([]string, len(m.session.Start.Players))
		for i, p := range m.session.Start.Players {
			names[i] = p.Name
		}
		h += "  " + strings.Join(names, ", ")
	}
	return headerStyle.Render(h)
}

func (m Model) renderDeal(g *journal.Game) string {
	var s string
	if g.Start != nil {
		s += eventStyle.Render(fmt.Sprintf("Seat %d leads", g.Start.FirstPlayer)) + "\n"
	}
	if g.Exchange != nil {
		for _, ex := range g.Exchange.Exchanges {
			s += headerStyle.Render(fmt.Sprintf("Exchange: seat %d gives %s to seat %d",
				ex.From, ex.Cards, ex.To)) + "\n"
		}
	}
	return s + "\n"
}

func (m Model) renderAction(pos position) string {
	var s string
	if pos.turn != nil {
		if pos.turn.Action == "pass" {
			s += eventStyle.Render(fmt.Sprintf("Turn %d: %s passes",
				pos.turn.Turn, m.seatName(pos.turn.Player))) + "\n"
		} else {
			s += eventStyle.Render(fmt.Sprintf("Turn %d: %s plays %s (%s)",
				pos.turn.Turn, m.seatName(pos.turn.Player), pos.turn.Cards, pos.turn.CardType)) + "\n"
		}
	}
	if pos.special != nil {
		s += eventStyle.Render("  " + specialText(pos.special)) + "\n"
	}
	return s + "\n"
}

// specialText describes a rule event in one line.
func specialText(rec *journal.SpecialRecord) string {
	switch rec.Event {
	case journal.EventEightStop:
		return fmt.Sprintf("Eight stop: seat %d clears the field", rec.Player)
	case journal.EventRevolution:
		return fmt.Sprintf("Revolution by seat %d", rec.Player)
	case journal.EventElevenBack:
		return fmt.Sprintf("Eleven back by seat %d", rec.Player)
	case journal.EventLock:
		return fmt.Sprintf("Suit lock by seat %d", rec.Player)
	case journal.EventPlayerFinish:
		if posn, ok := rec.Detail["position"]; ok {
			return fmt.Sprintf("Seat %d finishes in position %v", rec.Player, posn)
		}
		return fmt.Sprintf("Seat %d finishes", rec.Player)
	case journal.EventFieldClear:
		reason := "all passed"
		if r, ok := rec.Detail["reason"].(string); ok {
			reason = strings.ReplaceAll(r, "_", " ")
		}
		return fmt.Sprintf("Field cleared (%s), seat %d leads", reason, rec.Player)
	}
	return rec.Event
}

func (m Model) renderSeats(g *journal.Game, pos position) string {
	var s string
	for seat := 0; seat < daihinmin.NumSeats; seat++ {
		key := strconv.Itoa(seat)
		hand := pos.hands[key]

		label := fmt.Sprintf("%d %-14s", seat, m.seatName(seat))
		if g.Start != nil {
			if rank, ok := g.Start.Ranks[key]; ok {
				label += fmt.Sprintf(" %-10s", rank)
			}
		}

		style := seatStyle
		switch {
		case hand == "" && pos.turn != nil:
			style = finishedSeatStyle
			label += " out"
		case pos.turn != nil && pos.turn.Player == seat:
			style = activeSeatStyle
			label = "▶ " + label
		}
		if !strings.HasPrefix(label, "▶") {
			label = "  " + label
		}

		s += style.Render(label) + " " + renderCards(hand) + "\n"
	}
	return s + "\n"
}

func (m Model) renderField(pos position) string {
	body := "field: "
	if pos.field == "" {
		body += "(empty)"
	} else {
		body += renderCards(pos.field)
	}

	var flags []string
	if pos.state.Revolution {
		flags = append(flags, "REVOLUTION")
	}
	if pos.state.ElevenBack {
		flags = append(flags, "11-BACK")
	}
	if pos.state.Locked {
		flags = append(flags, "LOCK")
	}
	if len(flags) > 0 {
		body += "   " + strings.Join(flags, " ")
	}
	return fieldStyle.Render(body) + "\n"
}

func (m Model) renderGameEnd(g *journal.Game) string {
	var s string
	order := make([]string, len(g.End.FinishOrder))
	for i, seat := range g.End.FinishOrder {
		order[i] = m.seatName(seat)
	}
	s += "finish: " + strings.Join(order, " > ")
	return "\n" + resultStyle.Render(s) + "\n"
}

func (m Model) renderSessionEnd() string {
	end := m.session.End
	var s string
	s += fmt.Sprintf("Session over after %d games\n", end.TotalGames)

	seats := make([]int, 0, len(end.FinalPoints))
	for k := range end.FinalPoints {
		if seat, err := strconv.Atoi(k); err == nil {
			seats = append(seats, seat)
		}
	}
	sort.Ints(seats)
	for _, seat := range seats {
		s += fmt.Sprintf("  %s: %d points\n", m.seatName(seat), end.FinalPoints[strconv.Itoa(seat)])
	}
	return "\n" + resultStyle.Render(strings.TrimRight(s, "\n")) + "\n"
}

func (m Model) seatName(seat int) string {
	if m.session != nil && m.session.Start != nil {
		for _, p := range m.session.Start.Players {
			if p.ID == seat {
				return p.Name
			}
		}
	}
	return fmt.Sprintf("seat%d", seat)
}

// renderCards styles a comma-joined card list, red for hearts and diamonds.
// Anything unparseable is shown as-is.
func renderCards(list string) string {
	cards, err := daihinmin.ParseCards(list)
	if err != nil {
		return list
	}
	if len(cards) == 0 {
		return ""
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = renderCard(c)
	}
	return strings.Join(parts, " ")
}

func renderCard(c daihinmin.Card) string {
	if c.IsJoker() {
		return jokerCardStyle.Render("Jo")
	}
	text := suitSymbol(c.Suit()) + c.Rank().String()
	if c.Suit() == daihinmin.Heart || c.Suit() == daihinmin.Diamond {
		return redCardStyle.Render(text)
	}
	return cardStyle.Render(text)
}

func suitSymbol(s daihinmin.Suit) string {
	switch s {
	case daihinmin.Spade:
		return "♠"
	case daihinmin.Heart:
		return "♥"
	case daihinmin.Diamond:
		return "♦"
	case daihinmin.Club:
		return "♣"
	}
	return "?"
}
