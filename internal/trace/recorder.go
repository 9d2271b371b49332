// Package trace records every protocol exchange of a session as compressed
// JSON lines, one object per request/response pair.
package trace

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Exchange is one request/response pair as seen on the socket, without the
// u32 socket prefix.
type Exchange struct {
	Seq      uint64        `json:"seq"`
	At       time.Time     `json:"at"`
	Command  string        `json:"command"`
	ID       uint8         `json:"id"`
	Request  string        `json:"request"`
	Response string        `json:"response,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Err      string        `json:"error,omitempty"`
}

// NewExchange fills the hex encoded payload fields.
func NewExchange(id uint8, command string, request, response []byte, d time.Duration, err error) Exchange {
	ex := Exchange{
		At:       time.Now().UTC(),
		Command:  command,
		ID:       id,
		Request:  hex.EncodeToString(request),
		Response: hex.EncodeToString(response),
		Duration: d,
	}
	if err != nil {
		ex.Err = err.Error()
	}
	return ex
}

// Recorder appends exchanges to a single .jsonl.zst file.
type Recorder struct {
	mu   sync.Mutex
	seq  uint64
	f    *os.File
	enc  *zstd.Encoder
	w    *bufio.Writer
	path string
}

// Open creates (or truncates) path and its parent directory.
func Open(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Recorder{
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
		path: path,
	}, nil
}

func (r *Recorder) Path() string { return r.path }

// Record stamps ex with the next sequence number and appends it.
func (r *Recorder) Record(ex Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return os.ErrClosed
	}
	r.seq++
	ex.Seq = r.seq
	b, err := json.Marshal(ex)
	if err != nil {
		return err
	}
	if _, err := r.w.Write(b); err != nil {
		return err
	}
	return r.w.WriteByte('\n')
}

// Flush pushes buffered lines through the encoder.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	if err := r.w.Flush(); err != nil {
		return err
	}
	return r.enc.Flush()
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	_ = r.w.Flush()
	err := r.enc.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	r.w = nil
	r.enc = nil
	r.f = nil
	return err
}

// ReadAll decodes every exchange stored in a trace file.
func ReadAll(path string) ([]Exchange, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Exchange
	jd := json.NewDecoder(dec)
	for {
		var ex Exchange
		if err := jd.Decode(&ex); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, ex)
	}
}
