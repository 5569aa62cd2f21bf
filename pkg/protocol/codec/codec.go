// Package codec provides the serialization formats a statistics snapshot can
// be recorded in.
package codec

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Content types.
const (
	ContentJSON  = "application/json"
	ContentCBOR  = "application/cbor"
	ContentProto = "application/x-protobuf"
)

// ErrUnknownFormat is returned for a format name no codec is registered under.
var ErrUnknownFormat = errors.New("unknown codec format")

// Codec marshals values for storage.
// Implementations should be deterministic.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Decoder reads consecutive values from a stream.
type Decoder interface {
	Decode(v any) error
}

// StreamCodec is a Codec whose encoded values are self-delimiting, so a
// stream of them can be decoded without framing.
type StreamCodec interface {
	Codec
	NewDecoder(r io.Reader) Decoder
}

// Registry maps content types and short format names to codecs.
type Registry struct {
	byType map[string]Codec
}

// NewRegistry returns a registry holding JSON, CBOR and Protobuf.
func NewRegistry() *Registry {
	r := &Registry{byType: make(map[string]Codec)}
	r.Register(JSON())
	r.Register(CBOR())
	r.Register(Proto())
	return r
}

// Register adds a codec.
func (r *Registry) Register(c Codec) { r.byType[c.ContentType()] = c }

// Get returns a codec by content type, or nil.
func (r *Registry) Get(contentType string) Codec { return r.byType[contentType] }

// Format returns the codec for a short name: json, cbor or proto.
func (r *Registry) Format(name string) (Codec, error) {
	ct, ok := formatTypes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFormat, "format %q", name)
	}
	c := r.Get(ct)
	if c == nil {
		return nil, errors.Wrapf(ErrUnknownFormat, "format %q not registered", name)
	}
	return c, nil
}

var formatTypes = map[string]string{
	"json":     ContentJSON,
	"cbor":     ContentCBOR,
	"proto":    ContentProto,
	"protobuf": ContentProto,
}

// FormatNames lists the accepted short names.
func FormatNames() []string { return []string{"json", "cbor", "proto"} }
