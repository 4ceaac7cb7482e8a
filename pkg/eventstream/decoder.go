package eventstream

import (
	"bytes"
	"io"

	apperrors "github.com/killallgit/course-api/pkg/errors"
)

const (
	maxFrameSize  = 16 * 1024 * 1024
	readChunkSize = 64 * 1024
)

// Decoder reassembles frames that arrive split across arbitrary read
// boundaries and hands each complete frame to Parse. A frame larger than
// the size limit is skipped up to its delimiter and reported as a single
// synthetic ErrorEvent; decoding resumes with the next frame.
type Decoder struct {
	r        io.Reader
	chunk    []byte
	buf      []byte
	scanned  int
	pending  []Event
	readErr  error
	skipping bool
	maxFrame int
}

// NewDecoder creates a decoder reading frames from r
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:        r,
		chunk:    make([]byte, readChunkSize),
		maxFrame: maxFrameSize,
	}
}

// Next returns the next event. It returns io.EOF once the stream is drained
// and any other read error as is.
func (d *Decoder) Next() (Event, error) {
	for len(d.pending) == 0 {
		if err := d.advance(); err != nil {
			return nil, err
		}
	}

	ev := d.pending[0]
	d.pending = d.pending[1:]
	return ev, nil
}

// All drains the decoder. The returned error is nil on a clean EOF.
func (d *Decoder) All() ([]Event, error) {
	var events []Event
	for {
		ev, err := d.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

// advance consumes buffered input until it yields zero or more pending
// events, reading from the source only when no delimiter is buffered.
func (d *Decoder) advance() error {
	for {
		if i := d.delimiterIndex(); i >= 0 {
			frame := d.buf[:i]
			if d.skipping || len(frame) > d.maxFrame {
				d.skipping = false
				d.pending = []Event{frameTooLarge()}
			} else {
				d.pending = Parse(frame)
			}
			d.consume(i + len(FrameDelimiter))
			return nil
		}

		if !d.skipping && len(d.buf) > d.maxFrame {
			d.skipping = true
		}
		if d.skipping {
			// keep enough of the tail to match a delimiter split across reads
			d.consume(max(0, len(d.buf)-(len(FrameDelimiter)-1)))
		}

		if d.readErr != nil {
			return d.drain()
		}
		d.read()
	}
}

// drain flushes whatever is buffered once the source has stopped. A
// trailing partial frame at EOF is still parsed so it gets flagged.
func (d *Decoder) drain() error {
	if d.readErr != io.EOF {
		return d.readErr
	}
	switch {
	case d.skipping:
		d.skipping = false
		d.buf = d.buf[:0]
		d.pending = []Event{frameTooLarge()}
		return nil
	case len(d.buf) > 0:
		d.pending = Parse(d.buf)
		d.buf = d.buf[:0]
		d.scanned = 0
		return nil
	default:
		return io.EOF
	}
}

func (d *Decoder) read() {
	n, err := d.r.Read(d.chunk)
	d.buf = append(d.buf, d.chunk[:n]...)
	if err != nil {
		d.readErr = err
	}
}

func (d *Decoder) delimiterIndex() int {
	from := max(0, d.scanned-(len(FrameDelimiter)-1))
	if i := bytes.Index(d.buf[from:], []byte(FrameDelimiter)); i >= 0 {
		return from + i
	}
	d.scanned = len(d.buf)
	return -1
}

func (d *Decoder) consume(n int) {
	d.buf = append(d.buf[:0], d.buf[n:]...)
	d.scanned = 0
}

func frameTooLarge() ErrorEvent {
	return syntheticError(apperrors.ProtocolDecodeError("frame too large", nil))
}
