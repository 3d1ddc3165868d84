package protocol

import (
	"io"
	"net"
	"time"
)

// Conn frames Tables over a single client connection. It is not safe for
// concurrent use; the coordinator serializes all traffic per seat.
type Conn struct {
	nc net.Conn
}

// NewConn wraps an accepted connection.
func NewConn(nc net.Conn) *Conn {
	return &Conn{nc: nc}
}

// ReadTable reads exactly one frame. A zero deadline blocks indefinitely.
func (c *Conn) ReadTable(deadline time.Time) (Table, error) {
	if err := c.nc.SetReadDeadline(deadline); err != nil {
		return Table{}, err
	}
	buf := make([]byte, FrameBytes)
	if _, err := io.ReadFull(c.nc, buf); err != nil {
		return Table{}, err
	}
	return ParseTable(buf)
}

// WriteTable writes one frame. A zero deadline blocks indefinitely.
func (c *Conn) WriteTable(t Table, deadline time.Time) error {
	if err := c.nc.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err := c.nc.Write(t.Bytes())
	return err
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.nc.Close() }
