package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// maxLineBytes bounds a single JSON-RPC frame. Upstream tool results can be
// large; this is generous enough for that while still bounding memory.
const maxLineBytes = 16 * 1024 * 1024

// FrameReader reads newline-delimited JSON values off an underlying
// io.Reader (a child process's stdout, or the agent's stdin). A line that
// fails to parse as JSON is logged and discarded; it is never fatal to the
// reader.
type FrameReader struct {
	scanner *bufio.Scanner
	logger  *slog.Logger
}

// NewFrameReader wraps r. logger may be nil, in which case parse failures
// are discarded silently.
func NewFrameReader(r io.Reader, logger *slog.Logger) *FrameReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FrameReader{scanner: scanner, logger: logger}
}

// ReadFrame returns the next successfully-parsed JSON line as raw bytes.
// It skips blank lines, skips (and logs) lines that fail to parse, and returns
// io.EOF once the underlying reader is exhausted.
func (f *FrameReader) ReadFrame() (json.RawMessage, error) {
	for f.scanner.Scan() {
		line := f.scanner.Bytes()
		if len(trimSpace(line)) == 0 {
			continue
		}
		if !json.Valid(line) {
			f.logger.Warn("discarding unparsable frame", "bytes", len(line))
			continue
		}
		// Copy: scanner.Bytes() is reused on the next Scan call.
		out := make(json.RawMessage, len(line))
		copy(out, line)
		return out, nil
	}
	if err := f.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}
	return nil, io.EOF
}

func trimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// FrameWriter writes newline-delimited JSON values to an underlying
// io.Writer (a child process's stdin, or the agent's stdout). Writes are
// serialized with a mutex: many goroutines may write concurrently
// (concurrent upstream calls, or concurrent responses to the agent).
type FrameWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewFrameWriter wraps w.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame marshals v to JSON and writes it as a single newline-terminated
// line.
func (f *FrameWriter) WriteFrame(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}
	data = append(data, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.w.Write(data); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}
