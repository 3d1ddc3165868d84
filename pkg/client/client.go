// Package client implements the client side of the UECda protocol: dialing,
// the seat handshake, and the frame loop that feeds a play strategy. The
// server stays authoritative; a strategy that proposes an illegal play is
// simply forced to pass.
package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/decred/slog"

	"github.com/uecdago/uecda-server/pkg/daihinmin"
	"github.com/uecdago/uecda-server/pkg/protocol"
)

const writeTimeout = 10 * time.Second

// Strategy decides the response to a query frame. field holds the cards of
// the pile being followed, empty on a trick start. Returning no cards passes.
type Strategy interface {
	Choose(q protocol.Table, field []daihinmin.Card) []daihinmin.Card
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(q protocol.Table, field []daihinmin.Card) []daihinmin.Card

func (f StrategyFunc) Choose(q protocol.Table, field []daihinmin.Card) []daihinmin.Card {
	return f(q, field)
}

// Config carries what Dial needs to put a player in a seat.
type Config struct {
	Addr string
	Name string
	// Log receives per-turn traffic at debug level. Nil disables.
	Log slog.Logger
	// HandshakeTimeout bounds the dial and handshake. Zero means 30s.
	HandshakeTimeout time.Duration
}

// Client is one seated connection.
type Client struct {
	conn *protocol.Conn
	seat int
	name string
	log  slog.Logger
}

// Dial connects to a server, completes the handshake, and returns the seated
// client.
func Dial(cfg Config) (*Client, error) {
	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}
	timeout := cfg.HandshakeTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	nc, err := net.DialTimeout("tcp", cfg.Addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.Addr, err)
	}
	conn := protocol.NewConn(nc)
	deadline := time.Now().Add(timeout)

	ann, err := conn.ReadTable(deadline)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("no announce from %s: %w", cfg.Addr, err)
	}
	if v := ann[protocol.RowMeta][protocol.ColVersion]; v != protocol.Version {
		conn.Close()
		return nil, fmt.Errorf("server speaks %d: %w", v, protocol.ErrVersionMismatch)
	}
	seat := int(ann[protocol.RowMeta][protocol.ColActiveSeat])

	if err := conn.WriteTable(protocol.NewHello(protocol.Version, cfg.Name), deadline); err != nil {
		conn.Close()
		return nil, fmt.Errorf("hello failed: %w", err)
	}

	log.Infof("Seated as %d (%s)", seat, cfg.Name)
	return &Client{conn: conn, seat: seat, name: cfg.Name, log: log}, nil
}

// Seat returns the seat the server assigned.
func (c *Client) Seat() int { return c.seat }

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

// Play runs the frame loop until the end-of-session frame, a transport
// error, or context cancellation. Reads block without a deadline; the server
// paces the session.
func (c *Client) Play(ctx context.Context, s Strategy) error {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	var field []daihinmin.Card
	for {
		frame, err := c.conn.ReadTable(time.Time{})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read failed: %w", err)
		}

		if frame[protocol.RowMeta][protocol.ColSessionEnd] == 1 {
			c.log.Infof("Session over")
			return nil
		}

		if frame[protocol.RowMeta][protocol.ColYourTurn] != 1 {
			// Broadcasts carry the current pile; hand snapshots arrive only
			// on a trick start, where the pile is irrelevant.
			field = frame.Cards()
			continue
		}

		cards := s.Choose(frame, field)
		var resp protocol.Table
		for _, card := range cards {
			resp.Mark(card)
		}
		if len(cards) == 0 {
			c.log.Debugf("Turn %d: passing", frame[protocol.RowMeta][protocol.ColVersion])
		} else {
			c.log.Debugf("Turn %d: playing %s",
				frame[protocol.RowMeta][protocol.ColVersion], daihinmin.FormatCards(cards))
		}
		if err := c.conn.WriteTable(resp, time.Now().Add(writeTimeout)); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
	}
}
