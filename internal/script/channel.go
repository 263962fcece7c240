package script

import (
	"bytes"
	"io"
	"time"
)

// DefaultReadTimeout bounds the wait for the first byte of a response.
const DefaultReadTimeout = time.Second

// Channel wraps the bidirectional byte stream connected to the server
// process. Writes reach the server immediately; reads follow a
// poll-and-drain protocol that infers response boundaries from timing
// rather than framing.
type Channel struct {
	w       io.Writer
	chunks  chan []byte
	timeout time.Duration
}

// NewChannel builds a channel over the given writer/reader pair. A reader
// goroutine pumps the stream into an internal queue so Drain can poll with
// timeouts; the goroutine exits when the stream reaches end-of-input.
func NewChannel(w io.Writer, r io.Reader) *Channel {
	c := &Channel{
		w:       w,
		chunks:  make(chan []byte, 64),
		timeout: DefaultReadTimeout,
	}
	go c.pump(r)
	return c
}

// SetReadTimeout overrides the first-byte wait used by Drain.
func (c *Channel) SetReadTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

func (c *Channel) pump(r io.Reader) {
	defer close(c.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.chunks <- chunk
		}
		if err != nil {
			return
		}
	}
}

// Write sends one request line to the server. The underlying stream is an
// unbuffered pipe, so no explicit flush is needed; the server sees the
// command as soon as Write returns.
func (c *Channel) Write(line []byte) error {
	_, err := c.w.Write(line)
	return err
}

// Drain collects the currently pending response bytes. It waits up to the
// read timeout for the first chunk; once anything has arrived it keeps
// pulling without blocking until the queue is momentarily empty or the
// stream has closed. A quiet peer yields an empty result, not an error.
//
// The boundary is heuristic: a response whose first byte takes longer than
// the timeout reads as empty, and a response that pauses mid-stream can be
// split across two drains. Expectation files were recorded against exactly
// this behavior, so it is preserved rather than replaced with framing.
func (c *Channel) Drain() []byte {
	var out bytes.Buffer
	select {
	case chunk, ok := <-c.chunks:
		if !ok {
			return nil
		}
		out.Write(chunk)
	case <-time.After(c.timeout):
		return nil
	}
	for {
		select {
		case chunk, ok := <-c.chunks:
			if !ok {
				return out.Bytes()
			}
			out.Write(chunk)
		default:
			return out.Bytes()
		}
	}
}
