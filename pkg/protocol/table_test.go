package protocol

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/uecdago/uecda-server/pkg/daihinmin"
)

func TestTableBytesRoundTrip(t *testing.T) {
	var in Table
	in[RowMeta][ColVersion] = Version
	in[RowMeta][ColActiveSeat] = 3
	in[2][7] = 1
	in[jokerRow][jokerCol] = 2
	in[RowPoints][4] = 250

	data := in.Bytes()
	if len(data) != FrameBytes {
		t.Fatalf("Expected %d bytes, got %d", FrameBytes, len(data))
	}
	// 20070 is 0x4E66 big-endian in the first cell.
	if !bytes.Equal(data[:4], []byte{0x00, 0x00, 0x4E, 0x66}) {
		t.Errorf("Unexpected encoding of version cell: % x", data[:4])
	}

	out, err := ParseTable(data)
	if err != nil {
		t.Fatalf("ParseTable failed: %v", err)
	}
	if out != in {
		t.Error("Expected identical table after round trip")
	}
}

func TestParseTableBadSize(t *testing.T) {
	if _, err := ParseTable(make([]byte, FrameBytes-1)); err == nil {
		t.Error("Expected an error for a short frame")
	}
	if _, err := ParseTable(make([]byte, FrameBytes+4)); err == nil {
		t.Error("Expected an error for a long frame")
	}
}

func TestCardsRoundTrip(t *testing.T) {
	cards := []daihinmin.Card{
		daihinmin.NewCard(daihinmin.Spade, daihinmin.Three),
		daihinmin.NewCard(daihinmin.Heart, daihinmin.Ten),
		daihinmin.NewCard(daihinmin.Club, daihinmin.Two),
		daihinmin.Joker(),
	}

	var t1 Table
	t1.SetCards(cards)
	got := t1.Cards()
	if daihinmin.FormatCards(got) != daihinmin.FormatCards(cards) {
		t.Errorf("Expected %s, got %s", daihinmin.FormatCards(cards), daihinmin.FormatCards(got))
	}
	if len(t1.MarkedCards()) != 0 {
		t.Error("Expected no marked cards in a server frame")
	}
}

func TestMarkedCards(t *testing.T) {
	var tab Table
	tab.SetCards([]daihinmin.Card{
		daihinmin.NewCard(daihinmin.Heart, daihinmin.Four),
		daihinmin.NewCard(daihinmin.Diamond, daihinmin.Four),
		daihinmin.NewCard(daihinmin.Spade, daihinmin.King),
		daihinmin.Joker(),
	})
	tab.Mark(daihinmin.NewCard(daihinmin.Heart, daihinmin.Four))
	tab.Mark(daihinmin.NewCard(daihinmin.Diamond, daihinmin.Four))
	tab.Mark(daihinmin.Joker())

	got := daihinmin.FormatCards(tab.MarkedCards())
	if got != "H4,D4,Jo" {
		t.Errorf("Expected H4,D4,Jo marked, got %s", got)
	}

	// Unmarked frames mean a pass.
	var empty Table
	if len(empty.MarkedCards()) != 0 {
		t.Error("Expected an empty frame to carry no play")
	}
}

func TestAnnounceAndHello(t *testing.T) {
	ann := NewAnnounce(2)
	if ann[RowMeta][ColVersion] != Version {
		t.Errorf("Expected version %d in the announce, got %d", Version, ann[RowMeta][ColVersion])
	}
	if ann[RowMeta][ColActiveSeat] != 2 {
		t.Errorf("Expected seat 2 in the announce, got %d", ann[RowMeta][ColActiveSeat])
	}

	hello := NewHello(Version, "default")
	ver, name := ParseHello(hello)
	if ver != Version {
		t.Errorf("Expected echoed version %d, got %d", Version, ver)
	}
	if name != "default" {
		t.Errorf("Expected name %q, got %q", "default", name)
	}

	// Names truncate at 14 characters.
	_, name = ParseHello(NewHello(Version, "abcdefghijklmnopqrs"))
	if name != "abcdefghijklmn" {
		t.Errorf("Expected a 14-character name, got %q (%d)", name, len(name))
	}

	// Non-ASCII bytes are replaced on encode.
	_, name = ParseHello(NewHello(Version, "caf\xc3\xa9"))
	if name != "caf??" {
		t.Errorf("Expected replacement characters, got %q", name)
	}
}

func TestQueryFrame(t *testing.T) {
	st := State{
		Turn:       12,
		ActiveSeat: 1,
		TrickStart: true,
		Revolution: true,
		Locked:     daihinmin.SuitSet(0).Add(daihinmin.Spade).Add(daihinmin.Heart),
		GameNumber: 3,
		TotalGames: 100,
		Finished:   [daihinmin.NumSeats]bool{false, false, true, false, false},
		Counts:     [daihinmin.NumSeats]int{5, 7, 0, 9, 10},
		Classes: [daihinmin.NumSeats]daihinmin.Class{
			daihinmin.ClassHeimin, daihinmin.ClassHeimin, daihinmin.ClassDaifugo,
			daihinmin.ClassHeimin, daihinmin.ClassHeimin,
		},
		Points: [daihinmin.NumSeats]int{10, 8, 15, 6, 4},
	}
	hand := []daihinmin.Card{daihinmin.NewCard(daihinmin.Spade, daihinmin.Five)}

	q := NewQuery(st, hand)
	if q[RowMeta][ColVersion] != 12 {
		t.Errorf("Expected turn 12 in col 0, got %d", q[RowMeta][ColVersion])
	}
	if q[RowMeta][ColYourTurn] != 1 {
		t.Error("Expected the your-turn flag in a query")
	}
	if q[RowMeta][ColTrickStart] != 1 || q[RowMeta][ColRevolution] != 1 {
		t.Error("Expected trick-start and revolution flags set")
	}
	if q[RowMeta][ColElevenBack] != 0 || q[RowMeta][ColEightCut] != 0 {
		t.Error("Expected eleven-back and eight-cut flags clear")
	}
	if q[RowMeta][ColLockActive] != 1 {
		t.Error("Expected the lock flag set")
	}
	wantMask := [4]int32{1, 1, 0, 0}
	for i, want := range wantMask {
		if q[RowMeta][ColLockMask+i] != want {
			t.Errorf("Lock mask col %d: Expected %d, got %d", i, want, q[RowMeta][ColLockMask+i])
		}
	}
	if q[RowMeta][ColGameNumber] != 3 || q[RowMeta][ColTotalGames] != 100 {
		t.Error("Expected game counters in cols 12-13")
	}
	if q[RowMeta][ColSessionEnd] != 0 {
		t.Error("Expected no end-of-session flag mid-game")
	}

	if q[RowFinished][2] != 1 || q[RowFinished][0] != 0 {
		t.Error("Expected seat 2 flagged finished")
	}
	if q[RowFinished][ColCounts+3] != 9 {
		t.Errorf("Expected seat 3 count 9, got %d", q[RowFinished][ColCounts+3])
	}
	if q[RowClasses][2] != int32(daihinmin.ClassDaifugo) {
		t.Errorf("Expected seat 2 class daifugo, got %d", q[RowClasses][2])
	}
	if q[RowPoints][2] != 15 {
		t.Errorf("Expected seat 2 points 15, got %d", q[RowPoints][2])
	}

	if daihinmin.FormatCards(q.Cards()) != "S5" {
		t.Errorf("Expected the hand in the card rows, got %s", daihinmin.FormatCards(q.Cards()))
	}

	b := NewBroadcast(st, nil)
	if b[RowMeta][ColYourTurn] != 0 {
		t.Error("Expected no your-turn flag in a broadcast")
	}
	if len(b.Cards()) != 0 {
		t.Error("Expected an empty field in the broadcast")
	}
}

func TestHandInfoFrame(t *testing.T) {
	st := State{GameNumber: 1, TotalGames: 100, ActiveSeat: 2}
	hand := []daihinmin.Card{
		daihinmin.NewCard(daihinmin.Spade, daihinmin.Three),
		daihinmin.NewCard(daihinmin.Heart, daihinmin.Jack),
	}

	h := NewHandInfo(st, hand)
	if h[RowMeta][ColYourTurn] != 0 {
		t.Error("Expected no your-turn flag in a hand snapshot")
	}
	if daihinmin.FormatCards(h.Cards()) != "S3,HJ" {
		t.Errorf("Expected the hand in the card rows, got %s", daihinmin.FormatCards(h.Cards()))
	}
}

func TestConnReadWrite(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sc := NewConn(server)
	cc := NewConn(client)

	go func() {
		tab := NewAnnounce(4)
		sc.WriteTable(tab, time.Time{})
	}()

	got, err := cc.ReadTable(time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if got[RowMeta][ColVersion] != Version || got[RowMeta][ColActiveSeat] != 4 {
		t.Error("Expected the announce frame across the pipe")
	}
}

func TestConnReadTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := NewConn(client)
	if _, err := cc.ReadTable(time.Now().Add(20 * time.Millisecond)); err == nil {
		t.Error("Expected a deadline error with no sender")
	}
}
