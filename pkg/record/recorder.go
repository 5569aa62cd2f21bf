package record

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"swstat/pkg/protocol"
	"swstat/pkg/protocol/codec"
)

// maxRecord bounds a single length-prefixed record on read.
const maxRecord = 1 << 20

var (
	ErrClosed         = errors.New("recorder closed")
	ErrRecordTooLarge = errors.New("record too large")
)

var registry = codec.NewRegistry()

// Recorder appends snapshots to a writer in one format.
type Recorder struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	format string
	codec  codec.Codec
	runID  string
	count  int
	closed bool
}

// New returns a recorder writing format (json, cbor or proto) to w.
func New(w io.Writer, format string) (*Recorder, error) {
	c, err := registry.Format(format)
	if err != nil {
		return nil, err
	}
	return &Recorder{w: w, format: c.ContentType(), codec: c, runID: uuid.NewString()}, nil
}

// Open appends to the file at path, creating it if needed.
func Open(path, format string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open record file failed")
	}
	r, err := New(f, format)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	zap.L().Info("recording snapshots",
		zap.String("path", path),
		zap.String("format", format),
		zap.String("run_id", r.runID))
	return r, nil
}

// RunID identifies this recorder's snapshots.
func (r *Recorder) RunID() string { return r.runID }

// Count returns how many snapshots were written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Record writes a data reply received at at. Other reply kinds are ignored.
func (r *Recorder) Record(rep protocol.Reply, at time.Time) error {
	if rep.Kind != protocol.KindData {
		return nil
	}
	return r.Write(FromReply(r.runID, rep, at))
}

// Write appends s.
func (r *Recorder) Write(s Snapshot) error {
	b, err := encode(r.codec, s)
	if err != nil {
		return errors.Wrap(err, "encode snapshot failed")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, err := r.w.Write(b); err != nil {
		return errors.Wrap(err, "write snapshot failed")
	}
	r.count++
	return nil
}

// Close closes the underlying file, if the recorder opened one.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// encode frames one snapshot for the codec: a JSON line, a bare CBOR item,
// or a u32 little-endian length followed by a protobuf Struct.
func encode(c codec.Codec, s Snapshot) ([]byte, error) {
	switch c.ContentType() {
	case codec.ContentJSON:
		b, err := c.Marshal(s)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case codec.ContentProto:
		st, err := toStruct(s)
		if err != nil {
			return nil, err
		}
		b, err := c.Marshal(st)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 4, 4+len(b))
		binary.LittleEndian.PutUint32(out, uint32(len(b)))
		return append(out, b...), nil
	default:
		return c.Marshal(s)
	}
}

func toStruct(s Snapshot) (*structpb.Struct, error) {
	entries := make([]any, 0, len(s.Entries))
	for _, e := range s.Entries {
		entries = append(entries, map[string]any{
			"category": float64(e.Category),
			"label":    e.Label,
			"value":    float64(e.Value),
		})
	}
	return structpb.NewStruct(map[string]any{
		"run_id":      s.RunID,
		"session_id":  float64(s.SessionID),
		"seq":         float64(s.Seq),
		"status":      float64(s.Status),
		"received_at": s.ReceivedAt.UTC().Format(time.RFC3339Nano),
		"entries":     entries,
	})
}

// fromStruct maps a Struct back through its JSON form.
func fromStruct(st *structpb.Struct) (Snapshot, error) {
	var s Snapshot
	j := codec.JSON()
	b, err := j.Marshal(st.AsMap())
	if err != nil {
		return s, err
	}
	err = j.Unmarshal(b, &s)
	return s, err
}

// ReadAll decodes every snapshot in rd written in format.
func ReadAll(rd io.Reader, format string) ([]Snapshot, error) {
	c, err := registry.Format(format)
	if err != nil {
		return nil, err
	}
	var out []Snapshot
	switch c.ContentType() {
	case codec.ContentJSON:
		sc := bufio.NewScanner(rd)
		sc.Buffer(make([]byte, 0, 64*1024), maxRecord)
		for sc.Scan() {
			if len(sc.Bytes()) == 0 {
				continue
			}
			var s Snapshot
			if err := c.Unmarshal(sc.Bytes(), &s); err != nil {
				return out, errors.Wrapf(err, "record %d", len(out))
			}
			out = append(out, s)
		}
		return out, sc.Err()
	case codec.ContentProto:
		var lenbuf [4]byte
		for {
			if _, err := io.ReadFull(rd, lenbuf[:]); err != nil {
				if err == io.EOF {
					return out, nil
				}
				return out, errors.Wrapf(err, "record %d length", len(out))
			}
			n := binary.LittleEndian.Uint32(lenbuf[:])
			if n > maxRecord {
				return out, errors.Wrapf(ErrRecordTooLarge, "record %d: %d bytes", len(out), n)
			}
			b := make([]byte, n)
			if _, err := io.ReadFull(rd, b); err != nil {
				return out, errors.Wrapf(err, "record %d body", len(out))
			}
			var st structpb.Struct
			if err := c.Unmarshal(b, &st); err != nil {
				return out, errors.Wrapf(err, "record %d", len(out))
			}
			s, err := fromStruct(&st)
			if err != nil {
				return out, errors.Wrapf(err, "record %d", len(out))
			}
			out = append(out, s)
		}
	default:
		sc, ok := c.(codec.StreamCodec)
		if !ok {
			return nil, errors.Wrapf(codec.ErrUnknownFormat, "format %q cannot be read back", format)
		}
		dec := sc.NewDecoder(rd)
		for {
			var s Snapshot
			if err := dec.Decode(&s); err != nil {
				if err == io.EOF {
					return out, nil
				}
				return out, errors.Wrapf(err, "record %d", len(out))
			}
			out = append(out, s)
		}
	}
}

// ReadFile decodes every snapshot in the file at path.
func ReadFile(path, format string) ([]Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open record file failed")
	}
	defer f.Close()
	return ReadAll(f, format)
}
