package server

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"path/filepath"
	"time"

	"github.com/decred/slog"

	"github.com/uecdago/uecda-server/pkg/daihinmin"
	"github.com/uecdago/uecda-server/pkg/journal"
	"github.com/uecdago/uecda-server/pkg/logging"
	"github.com/uecdago/uecda-server/pkg/protocol"
)

// handshakeTimeout bounds the announce/hello exchange per accepted seat.
const handshakeTimeout = 30 * time.Second

// endpoint is the per-seat transport: protocol.Conn in production, an
// in-memory fake in tests.
type endpoint interface {
	ReadTable(deadline time.Time) (protocol.Table, error)
	WriteTable(t protocol.Table, deadline time.Time) error
	Close() error
}

// seat is one connected player.
type seat struct {
	id   int
	name string
	conn endpoint
}

// Options carries the runtime surfaces the host binary owns: logging, the
// optional results store, the journal location, and the PRNG seed.
type Options struct {
	LogBackend *logging.LogBackend
	DB         Database // nil disables result recording
	JournalDir string   // empty disables the session journal
	Seed       int64    // 0 seeds from the clock
}

// Server accepts exactly five seats on the configured address and runs one
// session to completion.
type Server struct {
	cfg        Config
	opts       Options
	log        slog.Logger
	logBackend *logging.LogBackend

	listener net.Listener
}

// NewServer validates the configuration and prepares a server.
func NewServer(cfg Config, opts Options) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lb := opts.LogBackend
	if lb == nil {
		lb = &logging.LogBackend{}
	}
	return &Server{
		cfg:        cfg,
		opts:       opts,
		log:        lb.Logger("SRV"),
		logBackend: lb,
	}, nil
}

// Listen binds the configured address. Run calls it when the caller has not.
func (s *Server) Listen() error {
	l, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	s.listener = l
	s.log.Infof("Listening on %s (protocol %d)", l.Addr(), protocol.Version)
	return nil
}

// Addr returns the bound listen address, nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run accepts the five seats, shakes hands with each, and drives a full
// session. Every connection is closed before it returns. A canceled context
// closes the sockets, which surfaces as a transport error in the session.
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	defer s.listener.Close()

	seats, err := s.acceptSeats(ctx)
	if err != nil {
		return err
	}
	defer func() {
		for _, st := range seats {
			st.conn.Close()
		}
	}()
	stop := context.AfterFunc(ctx, func() {
		for _, st := range seats {
			st.conn.Close()
		}
	})
	defer stop()

	start := time.Now()
	names := make([]string, daihinmin.NumSeats)
	for i, st := range seats {
		names[i] = st.name
	}

	var jw *journal.Writer
	if s.opts.JournalDir != "" {
		path := filepath.Join(s.opts.JournalDir, journal.LogFileName(start, names))
		jw, err = journal.NewWriter(path, s.log)
		if err != nil {
			return err
		}
		s.log.Infof("Journaling to %s", path)
	}
	defer jw.Close()

	seed := s.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.log.Infof("Session seed %d", seed)

	sess := newSession(sessionParams{
		cfg:   s.cfg,
		seats: seats,
		rng:   rand.New(rand.NewSource(seed)),
		jw:    jw,
		db:    s.opts.DB,
		start: start,
		lb:    s.logBackend,
	})
	if err := sess.Run(ctx); err != nil {
		return err
	}
	// Drain the journal before reporting success so its first write error,
	// if any, fails the run.
	return jw.Close()
}

// acceptSeats fills the table in accept order. Any handshake failure closes
// everything accepted so far and aborts.
func (s *Server) acceptSeats(ctx context.Context) ([daihinmin.NumSeats]*seat, error) {
	var seats [daihinmin.NumSeats]*seat

	// Unblock Accept when the context dies.
	stop := context.AfterFunc(ctx, func() { s.listener.Close() })
	defer stop()

	closeAll := func(n int) {
		for i := 0; i < n; i++ {
			seats[i].conn.Close()
		}
	}

	for id := 0; id < daihinmin.NumSeats; id++ {
		nc, err := s.listener.Accept()
		if err != nil {
			closeAll(id)
			if ctx.Err() != nil {
				return seats, ctx.Err()
			}
			return seats, fmt.Errorf("accept failed: %w", err)
		}

		st, err := s.handshake(id, nc)
		if err != nil {
			nc.Close()
			closeAll(id)
			return seats, err
		}
		seats[id] = st
		s.log.Infof("Seat %d: %s (%s)", id, st.name, nc.RemoteAddr())
	}
	return seats, nil
}

// handshake greets a connection with its seat assignment and reads the
// client's echo. A version other than ours rejects the whole session.
func (s *Server) handshake(id int, nc net.Conn) (*seat, error) {
	conn := protocol.NewConn(nc)
	deadline := time.Now().Add(handshakeTimeout)

	if err := conn.WriteTable(protocol.NewAnnounce(id), deadline); err != nil {
		return nil, fmt.Errorf("seat %d announce failed: %w", id, err)
	}
	reply, err := conn.ReadTable(deadline)
	if err != nil {
		return nil, fmt.Errorf("seat %d sent no hello: %w", id, err)
	}

	version, name := protocol.ParseHello(reply)
	if version != protocol.Version {
		return nil, fmt.Errorf("seat %d (%s) speaks %d: %w",
			id, nc.RemoteAddr(), version, protocol.ErrVersionMismatch)
	}
	if name == "" {
		name = fmt.Sprintf("player%d", id)
	}
	return &seat{id: id, name: name, conn: conn}, nil
}
