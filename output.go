package shellfish

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// OutputTarget receives one complete line of process output at a time. Lines
// never carry a trailing terminator. Implementations are invoked from the
// engine's stream pumps and should return quickly.
type OutputTarget interface {
	WriteLine(line string)
}

// LineFunc adapts a function to an OutputTarget.
type LineFunc func(line string)

func (f LineFunc) WriteLine(line string) { f(line) }

// LineWriter returns an OutputTarget that writes each line plus a newline
// to w.
func LineWriter(w io.Writer) OutputTarget {
	return LineFunc(func(line string) {
		io.WriteString(w, line+"\n")
	})
}

// Collector is an OutputTarget that accumulates lines in memory. Safe for
// concurrent use across the stdout and stderr pumps.
type Collector struct {
	mu    sync.Mutex
	lines []string
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) WriteLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

// Lines returns a copy of everything collected so far.
func (c *Collector) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// String returns the collected lines joined with newlines.
func (c *Collector) String() string {
	return strings.Join(c.Lines(), "\n")
}

// pumpLines reads r to end of stream, reassembling partial reads into full
// lines and dispatching each to every target in registration order. The
// end-of-stream marker is never forwarded. A panicking target is contained
// so it cannot take down the read loop or the process.
func pumpLines(r io.Reader, targets []OutputTarget, log zerolog.Logger, stream string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		for _, target := range targets {
			dispatchLine(target, line, log, stream)
		}
	}
	if err := scanner.Err(); err != nil {
		// Read errors include our own pipe closure during cancellation.
		log.Debug().Err(err).Str("stream", stream).Msg("output pump stopped")
	}
}

func dispatchLine(target OutputTarget, line string, log zerolog.Logger, stream string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("stream", stream).Msg("output target panicked")
		}
	}()
	target.WriteLine(line)
}
