package pty

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// captureRecord is one line of the capture file format: a timestamped
// raw output chunk.
type captureRecord struct {
	Timestamp string `json:"timestamp"`
	Data      string `json:"data"`
}

// captureWriter appends one JSON-lines record per output chunk to an
// unbounded-size file.
type captureWriter struct {
	mu   sync.Mutex
	path string
	f    *os.File
	enc  *json.Encoder
}

func newCaptureWriter(path string) (*captureWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &captureWriter{path: path, f: f, enc: json.NewEncoder(f)}, nil
}

// Write appends one record for this output chunk.
func (c *captureWriter) Write(chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.enc.Encode(captureRecord{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Data:      string(chunk),
	})
}

// Close closes the underlying file.
func (c *captureWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.f.Close()
}
