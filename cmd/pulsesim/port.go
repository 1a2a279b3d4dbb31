//go:build !rp2040 && !rp2350

package main

import (
	"context"
	"io"
	"sync"
)

// readerPort adapts a blocking reader and a writer to console.Port. A single
// goroutine reads ahead; RecvSomeContext hands out what it has read.
type readerPort struct {
	r io.Reader
	w io.Writer

	once    sync.Once
	chunks  chan chunk
	pending []byte
	err     error
}

type chunk struct {
	b   []byte
	err error
}

func newReaderPort(r io.Reader, w io.Writer) *readerPort {
	return &readerPort{r: r, w: w, chunks: make(chan chunk, 4)}
}

func (p *readerPort) readLoop() {
	for {
		buf := make([]byte, 256)
		n, err := p.r.Read(buf)
		if n > 0 {
			p.chunks <- chunk{b: buf[:n]}
		}
		if err != nil {
			p.chunks <- chunk{err: err}
			return
		}
	}
}

func (p *readerPort) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	p.once.Do(func() { go p.readLoop() })
	if len(p.pending) == 0 {
		if p.err != nil {
			return 0, p.err
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case c := <-p.chunks:
			if c.err != nil {
				p.err = c.err
				return 0, c.err
			}
			p.pending = c.b
		}
	}
	n := copy(buf, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *readerPort) Write(b []byte) (int, error) { return p.w.Write(b) }
