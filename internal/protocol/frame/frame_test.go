package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/codec"
)

func TestCommandFramingBoundaries(t *testing.T) {
	cases := []struct {
		size     int
		extended bool
	}{
		{0, false},
		{252, false},
		{253, true},
		{254, true},
		{1024, true},
	}
	for _, tc := range cases {
		payload := bytes.Repeat([]byte{0xab}, tc.size)
		framed := EncodeCommand(0xa4, payload)

		b := codec.FromBytes(framed)
		h := ReadHeader(b)
		if h.Extended != tc.extended {
			t.Fatalf("size=%d extended got=%v want=%v", tc.size, h.Extended, tc.extended)
		}
		if h.ID != 0xa4 {
			t.Fatalf("size=%d id got=0x%02x", tc.size, h.ID)
		}
		if h.Length != len(framed) {
			t.Fatalf("size=%d declared=%d framed=%d", tc.size, h.Length, len(framed))
		}
		got := b.ReadBytes(b.Remaining())
		if !bytes.Equal(got, payload) {
			t.Fatalf("size=%d payload mismatch", tc.size)
		}
		ExpectEnd(b, h)
	}
}

func TestShortFormLengthByte(t *testing.T) {
	framed := EncodeCommand(0x02, []byte{1, 2, 3})
	want := []byte{5, 0x02, 1, 2, 3}
	if !bytes.Equal(framed, want) {
		t.Fatalf("unexpected short frame: % x", framed)
	}
}

func TestExtendedFormLayout(t *testing.T) {
	framed := EncodeCommand(0x7f, make([]byte, 300))
	if framed[0] != 0 {
		t.Fatalf("expected sentinel, got 0x%02x", framed[0])
	}
	if framed[1] != 0 || framed[2] != 0 || framed[3] != 0x01 || framed[4] != 0x32 {
		t.Fatalf("unexpected extended length: % x", framed[1:5])
	}
	if framed[5] != 0x7f {
		t.Fatalf("unexpected id: 0x%02x", framed[5])
	}
}

func TestReadHeaderRejectsOverlongDeclaration(t *testing.T) {
	defer func() {
		r := recover()
		de, ok := r.(*protocol.DesyncError)
		if !ok || !errors.Is(de, protocol.ErrLengthMismatch) {
			t.Fatalf("expected length desync panic, got %v", r)
		}
	}()
	ReadHeader(codec.FromBytes([]byte{9, 0x01, 0x00}))
}

func TestSocketMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := EncodeCommand(0x00, nil)
	if err := WriteMessage(&buf, msg, DefaultLimits()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.Bytes()[:4]; !bytes.Equal(got, []byte{0, 0, 0, 6}) {
		t.Fatalf("unexpected socket header: % x", got)
	}
	out, err := ReadMessage(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(out, msg) {
		t.Fatalf("message mismatch: % x", out)
	}
}

func TestReadMessageTruncatedBody(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader([]byte{0, 0, 0, 10, 1, 2}), DefaultLimits())
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestReadMessageCleanEOF(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader(nil), DefaultLimits())
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadMessageRejectsHugeDeclaration(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}), Limits{MaxMessageBytes: 1024})
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
}
