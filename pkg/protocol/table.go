// Package protocol implements the UECda 20070 wire format: fixed 480-byte
// frames holding an 8x15 matrix of big-endian 32-bit integers.
//
// Matrix layout:
//   - Row 0: metadata. Col 0 carries the protocol version during the
//     handshake and the turn number afterwards; cols 1-14 carry the active
//     seat, your-turn and trick-start flags, the revolution, eleven-back and
//     eight-cut flags, the suit-lock flag and per-suit mask, the game number,
//     the total game count, and the end-of-session flag.
//   - Rows 1-4: one row per suit (Spade, Heart, Diamond, Club), one column
//     per rank (3 through 2). The Joker sits at row 1 col 14. A cell value of
//     1 means the card is present; a client marks its chosen cards with 2.
//   - Row 5: per-seat finished flags in cols 0-4, per-seat card counts in
//     cols 5-9.
//   - Row 6: per-seat class.
//   - Row 7: per-seat cumulative points.
//
// The handshake frame from the client carries its name as ASCII bytes in
// row 1, one character per column, zero-terminated.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/uecdago/uecda-server/pkg/daihinmin"
)

const (
	// Version is the protocol revision this package speaks.
	Version = 20070
	// DefaultPort is the port UECda servers conventionally listen on.
	DefaultPort = 42485

	// Rows and Cols fix the matrix dimensions; FrameBytes is the frame
	// size on the wire.
	Rows       = 8
	Cols       = 15
	FrameBytes = Rows * Cols * 4
)

// Cell indices within the metadata row.
const (
	RowMeta       = 0
	ColVersion    = 0 // turn number outside the handshake
	ColActiveSeat = 1
	ColYourTurn   = 2
	ColTrickStart = 3
	ColRevolution = 4
	ColElevenBack = 5
	ColEightCut   = 6
	ColLockActive = 7
	ColLockMask   = 8 // cols 8-11, one per suit in declaration order
	ColGameNumber = 12
	ColTotalGames = 13
	ColSessionEnd = 14
)

// Seat-status rows.
const (
	RowFinished = 5
	ColCounts   = 5 // card counts occupy cols 5-9 of the finished row
	RowClasses  = 6
	RowPoints   = 7
)

const (
	cardRowBase = 1 // suit s occupies row s+1
	nameRow     = 1
	jokerRow    = 1
	jokerCol    = 14
	maxNameLen  = 14
)

// ErrVersionMismatch reports a client speaking a protocol other than 20070.
var ErrVersionMismatch = errors.New("protocol version mismatch")

// Table is one protocol frame.
type Table [Rows][Cols]int32

// Bytes serializes the table in network byte order, row-major.
func (t *Table) Bytes() []byte {
	buf := make([]byte, FrameBytes)
	for i := 0; i < Rows; i++ {
		for j := 0; j < Cols; j++ {
			off := (i*Cols + j) * 4
			binary.BigEndian.PutUint32(buf[off:], uint32(t[i][j]))
		}
	}
	return buf
}

// ParseTable decodes one frame.
func ParseTable(data []byte) (Table, error) {
	var t Table
	if len(data) != FrameBytes {
		return t, fmt.Errorf("expected %d byte frame, got %d", FrameBytes, len(data))
	}
	for i := 0; i < Rows; i++ {
		for j := 0; j < Cols; j++ {
			off := (i*Cols + j) * 4
			t[i][j] = int32(binary.BigEndian.Uint32(data[off:]))
		}
	}
	return t, nil
}

func cardCell(c daihinmin.Card) (int, int) {
	if c.IsJoker() {
		return jokerRow, jokerCol
	}
	return cardRowBase + int(c.Suit()), int(c.Rank())
}

// SetCards marks the given cards with value 1 in the card rows.
func (t *Table) SetCards(cards []daihinmin.Card) {
	for _, c := range cards {
		row, col := cardCell(c)
		t[row][col] = 1
	}
}

// Mark flags a card cell with value 2, the client-side selection mark.
func (t *Table) Mark(c daihinmin.Card) {
	row, col := cardCell(c)
	t[row][col] = 2
}

// Cards returns the cards whose cells hold value 1.
func (t *Table) Cards() []daihinmin.Card {
	return t.cardsWithValue(1)
}

// MarkedCards returns the cards the client selected with value 2. An empty
// result is a pass.
func (t *Table) MarkedCards() []daihinmin.Card {
	return t.cardsWithValue(2)
}

func (t *Table) cardsWithValue(v int32) []daihinmin.Card {
	var cards []daihinmin.Card
	for suit := daihinmin.Spade; suit <= daihinmin.Club; suit++ {
		row := cardRowBase + int(suit)
		for rank := daihinmin.Three; rank <= daihinmin.Two; rank++ {
			if t[row][int(rank)] == v {
				cards = append(cards, daihinmin.NewCard(suit, rank))
			}
		}
	}
	if t[jokerRow][jokerCol] == v {
		cards = append(cards, daihinmin.Joker())
	}
	return cards
}

// State carries the scalar fields of a query or broadcast frame.
type State struct {
	Turn       int
	ActiveSeat int
	TrickStart bool
	Revolution bool
	ElevenBack bool
	EightCut   bool
	Locked     daihinmin.SuitSet
	GameNumber int
	TotalGames int
	SessionEnd bool

	Finished [daihinmin.NumSeats]bool
	Counts   [daihinmin.NumSeats]int
	Classes  [daihinmin.NumSeats]daihinmin.Class
	Points   [daihinmin.NumSeats]int
}

func flag(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func stateTable(st State, yourTurn bool, cards []daihinmin.Card) Table {
	var t Table
	t[RowMeta][ColVersion] = int32(st.Turn)
	t[RowMeta][ColActiveSeat] = int32(st.ActiveSeat)
	t[RowMeta][ColYourTurn] = flag(yourTurn)
	t[RowMeta][ColTrickStart] = flag(st.TrickStart)
	t[RowMeta][ColRevolution] = flag(st.Revolution)
	t[RowMeta][ColElevenBack] = flag(st.ElevenBack)
	t[RowMeta][ColEightCut] = flag(st.EightCut)
	t[RowMeta][ColLockActive] = flag(st.Locked != 0)
	for suit := daihinmin.Spade; suit <= daihinmin.Club; suit++ {
		t[RowMeta][ColLockMask+int(suit)] = flag(st.Locked.Has(suit))
	}
	t[RowMeta][ColGameNumber] = int32(st.GameNumber)
	t[RowMeta][ColTotalGames] = int32(st.TotalGames)
	t[RowMeta][ColSessionEnd] = flag(st.SessionEnd)

	for s := 0; s < daihinmin.NumSeats; s++ {
		t[RowFinished][s] = flag(st.Finished[s])
		t[RowFinished][ColCounts+s] = int32(st.Counts[s])
		t[RowClasses][s] = int32(st.Classes[s])
		t[RowPoints][s] = int32(st.Points[s])
	}

	t.SetCards(cards)
	return t
}

// NewQuery builds the your-turn frame for the active seat: the metadata plus
// the seat's own hand in the card rows.
func NewQuery(st State, hand []daihinmin.Card) Table {
	return stateTable(st, true, hand)
}

// NewBroadcast builds the post-turn frame sent to every seat: the metadata
// plus the cards currently on the field.
func NewBroadcast(st State, field []daihinmin.Card) Table {
	return stateTable(st, false, field)
}

// NewHandInfo builds the hand snapshot sent to each seat after the deal and
// after the exchange: the seat's own hand with the your-turn flag clear.
func NewHandInfo(st State, hand []daihinmin.Card) Table {
	return stateTable(st, false, hand)
}

// NewAnnounce builds the handshake frame greeting a newly connected client
// with the protocol version and its seat assignment.
func NewAnnounce(seat int) Table {
	var t Table
	t[RowMeta][ColVersion] = Version
	t[RowMeta][ColActiveSeat] = int32(seat)
	return t
}

// NewHello builds the frame a client answers the announce with: the echoed
// version and its name as ASCII bytes.
func NewHello(version int32, name string) Table {
	var t Table
	t[RowMeta][ColVersion] = version
	for i := 0; i < len(name) && i < maxNameLen; i++ {
		b := name[i]
		if b > 127 {
			b = '?'
		}
		t[nameRow][i] = int32(b)
	}
	return t
}

// ParseHello extracts the echoed version and the client name from a
// handshake reply. The name ends at the first zero or non-ASCII cell.
func ParseHello(t Table) (version int32, name string) {
	version = t[RowMeta][ColVersion]
	raw := make([]byte, 0, maxNameLen)
	for col := 0; col < maxNameLen; col++ {
		v := t[nameRow][col]
		if v <= 0 || v > 127 {
			break
		}
		raw = append(raw, byte(v))
	}
	return version, string(raw)
}
