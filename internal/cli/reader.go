package cli

import (
	"bufio"
	"io"
	"sync"
)

// LineSource reads lines from one reader in the background so several consecutive
// runs can share it. A run that is cancelled stops waiting without consuming a line.
type LineSource struct {
	lines chan string
	once  sync.Once
	base  io.Reader
}

// NewLineSource creates a LineSource over base. Reading starts on first use.
func NewLineSource(base io.Reader) *LineSource {
	return &LineSource{lines: make(chan string), base: base}
}

func (s *LineSource) pump() {
	defer close(s.lines)
	scanner := bufio.NewScanner(s.base)
	for scanner.Scan() {
		s.lines <- scanner.Text() + "\n"
	}
}

// Reader returns an io.Reader fed by the shared lines that fails with errInterrupted
// once cancel is closed.
func (s *LineSource) Reader(cancel <-chan struct{}) io.Reader {
	s.once.Do(func() { go s.pump() })
	return &InterruptibleReader{source: s.lines, cancel: cancel}
}

// InterruptibleReader serves lines from a shared channel until cancelled.
type InterruptibleReader struct {
	source  <-chan string
	cancel  <-chan struct{}
	pending []byte
}

func (r *InterruptibleReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		select {
		case <-r.cancel:
			return 0, errInterrupted
		default:
		}
		select {
		case <-r.cancel:
			return 0, errInterrupted
		case line, ok := <-r.source:
			if !ok {
				return 0, io.EOF
			}
			r.pending = []byte(line)
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}
