package protocol

import "encoding/json"

// Status discriminates the response variants.
type Status int

const (
	StatusStored Status = iota
	StatusLoaded
	StatusKeyNotFound
	StatusError
)

// Response is a reply to one request. Key and Hash are set only for
// StatusLoaded.
type Response struct {
	Status Status
	Key    string
	Hash   string
}

// Stored is the reply to a successful store request.
func Stored() Response { return Response{Status: StatusStored} }

// Loaded is the reply to a load request that found its key.
func Loaded(key, hash string) Response {
	return Response{Status: StatusLoaded, Key: key, Hash: hash}
}

// KeyNotFound is the reply to a load request for an absent key.
func KeyNotFound() Response { return Response{Status: StatusKeyNotFound} }

// Malformed is the reply sent before closing a connection whose input
// could not be decoded.
func Malformed() Response { return Response{Status: StatusError} }

const (
	statusSuccess  = "success"
	statusNotFound = "key not found"
	statusError    = "error"
)

// String returns the response_status value sent for s.
func (s Status) String() string {
	switch s {
	case StatusStored, StatusLoaded:
		return statusSuccess
	case StatusKeyNotFound:
		return statusNotFound
	default:
		return statusError
	}
}

type statusOnly struct {
	Status string `json:"response_status"`
}

type loadSuccess struct {
	Status string `json:"response_status"`
	Key    string `json:"requested_key"`
	Hash   string `json:"requested_hash"`
}

// EncodeResponse returns the wire form of r. Field order is fixed.
func EncodeResponse(r Response) []byte {
	var v any = statusOnly{Status: r.Status.String()}
	if r.Status == StatusLoaded {
		v = loadSuccess{Status: statusSuccess, Key: r.Key, Hash: r.Hash}
	}
	// Marshalling a struct of strings cannot fail.
	b, _ := json.Marshal(v)
	return b
}

// Greeting returns the identification message sent when a connection is
// accepted.
func Greeting(name string) []byte {
	b, _ := json.Marshal(struct {
		Name string `json:"student_name"`
	}{Name: name})
	return b
}
