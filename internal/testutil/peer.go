// Package testutil provides deterministic test doubles for the harness.
package testutil

import (
	"io"
	"sync"
)

// Peer simulates the server side of the harness byte stream.
//
// Tests queue one scripted reaction per expected request line: a canned
// response or silence. Each Write consumes the next reaction, so the
// pairing between request lines and responses is deterministic regardless
// of timing. When the queue runs dry the peer stays silent.
//
// The read side is an io.Pipe fed by a single goroutine, which keeps
// responses ordered even though Write never blocks on the reader.
type Peer struct {
	mu    sync.Mutex
	lines []string
	queue [][]byte

	out chan []byte
	pr  *io.PipeReader
	pw  *io.PipeWriter
}

// NewPeer creates a silent peer.
func NewPeer() *Peer {
	pr, pw := io.Pipe()
	p := &Peer{
		out: make(chan []byte, 64),
		pr:  pr,
		pw:  pw,
	}
	go func() {
		for b := range p.out {
			if _, err := pw.Write(b); err != nil {
				return
			}
		}
		pw.Close()
	}()
	return p
}

// Reply queues a response for the next unanswered request line.
func (p *Peer) Reply(response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, []byte(response))
}

// Silence queues an empty reaction: the matching request line gets no
// response bytes at all.
func (p *Peer) Silence() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, nil)
}

// Write receives one request line from the harness and emits the queued
// reaction, if any.
func (p *Peer) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.lines = append(p.lines, string(b))
	var reply []byte
	if len(p.queue) > 0 {
		reply = p.queue[0]
		p.queue = p.queue[1:]
	}
	p.mu.Unlock()
	if len(reply) > 0 {
		p.out <- reply
	}
	return len(b), nil
}

// Reader returns the response stream the harness reads from.
func (p *Peer) Reader() io.Reader { return p.pr }

// Lines returns a copy of every request line received so far.
func (p *Peer) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	lines := make([]string, len(p.lines))
	copy(lines, p.lines)
	return lines
}

// Close ends the response stream, signalling end-of-input to the harness.
func (p *Peer) Close() {
	close(p.out)
}
