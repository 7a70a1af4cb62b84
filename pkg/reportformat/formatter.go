package reportformat

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the encoding of a written report
type Format string

const (
	JSON    Format = "json"
	MsgPack Format = "msgpack"
)

// ParseFormat maps a config value onto a Format. An empty value means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "msgpack", "messagepack":
		return MsgPack, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Extension returns the file extension, without the dot, for the format
func (f Format) Extension() string {
	if f == MsgPack {
		return "msgpack"
	}
	return "json"
}

// Formatter handles encoding reports in JSON or MessagePack format
type Formatter struct {
	Indent bool
}

// NewFormatter creates a new report formatter
func NewFormatter() *Formatter {
	return &Formatter{Indent: true}
}

// Write encodes data onto w. JSON is the default format.
func (f *Formatter) Write(w io.Writer, format Format, data any) error {
	if format == MsgPack {
		return f.writeMsgPack(w, data)
	}
	return f.writeJSON(w, data)
}

func (f *Formatter) writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

func (f *Formatter) writeMsgPack(w io.Writer, data any) error {
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}

// Decode reads a report written by Write back into v.
func Decode(r io.Reader, format Format, v any) error {
	if format == MsgPack {
		dec := msgpack.NewDecoder(r)
		dec.SetCustomStructTag("json")
		return dec.Decode(v)
	}
	return json.NewDecoder(r).Decode(v)
}
