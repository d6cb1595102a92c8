// Package protocol implements the JSON wire format spoken over a client
// connection: one JSON object per request and per response, with no
// length prefix and no delimiter between messages.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrBadReading is returned by Decode when the peer closed the stream
// before sending any byte of the next request.
var ErrBadReading = errors.New("protocol: no request bytes before end of stream")

// MalformedError reports bytes that are not a valid request.
type MalformedError struct {
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return "protocol: malformed request: " + e.Reason + ": " + e.Err.Error()
	}
	return "protocol: malformed request: " + e.Reason
}

func (e *MalformedError) Unwrap() error { return e.Err }

// RequestType discriminates the request variants.
type RequestType string

const (
	TypeStore RequestType = "store"
	TypeLoad  RequestType = "load"
)

// Request is a decoded client request. Hash is empty for TypeLoad.
type Request struct {
	Type RequestType
	Key  string
	Hash string
}

// String returns a short summary of the request, used as the request
// field of log lines.
func (r Request) String() string {
	if r.Type == TypeStore {
		return fmt.Sprintf("store key=%q hash=%q", r.Key, r.Hash)
	}
	return fmt.Sprintf("%s key=%q", r.Type, r.Key)
}

// wireRequest uses pointers so that missing and null fields can be told
// apart from empty strings.
type wireRequest struct {
	RequestType *string `json:"request_type"`
	Key         *string `json:"key"`
	Hash        *string `json:"hash"`
}

// Decoder reads consecutive requests from a byte stream.
// A Decoder buffers ahead, so one must be kept for the lifetime of the
// stream rather than created per request.
type Decoder struct {
	dec *json.Decoder
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// Decode reads exactly one JSON object from the stream and converts it to
// a Request. It returns ErrBadReading on a clean end of stream, a
// *MalformedError when the object is not a valid request, and any other
// read error wrapped.
func (d *Decoder) Decode() (Request, error) {
	var raw json.RawMessage
	if err := d.dec.Decode(&raw); err != nil {
		var syntaxErr *json.SyntaxError
		switch {
		case err == io.EOF:
			return Request{}, ErrBadReading
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Request{}, &MalformedError{Reason: "stream ended inside a message", Err: err}
		case errors.As(err, &syntaxErr):
			return Request{}, &MalformedError{Reason: "invalid json", Err: err}
		default:
			return Request{}, fmt.Errorf("protocol: read request: %w", err)
		}
	}
	return ParseRequest(raw)
}

// ParseRequest converts a single JSON document into a Request.
// Strings must be valid UTF-8; encoding/json would otherwise replace bad
// bytes with U+FFFD and distinct keys would collide.
func ParseRequest(data []byte) (Request, error) {
	if !utf8.Valid(data) {
		return Request{}, &MalformedError{Reason: "invalid utf-8"}
	}
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return Request{}, &MalformedError{Reason: "not a request object", Err: err}
	}
	if len(data) == 0 || data[0] != '{' {
		return Request{}, &MalformedError{Reason: "not a json object"}
	}
	if w.RequestType == nil {
		return Request{}, &MalformedError{Reason: "missing request_type"}
	}
	if w.Key == nil {
		return Request{}, &MalformedError{Reason: "missing key"}
	}

	switch RequestType(*w.RequestType) {
	case TypeStore:
		if w.Hash == nil {
			return Request{}, &MalformedError{Reason: "missing hash"}
		}
		return Request{Type: TypeStore, Key: *w.Key, Hash: *w.Hash}, nil
	case TypeLoad:
		return Request{Type: TypeLoad, Key: *w.Key}, nil
	default:
		return Request{}, &MalformedError{Reason: fmt.Sprintf("unknown request_type %q", *w.RequestType)}
	}
}
