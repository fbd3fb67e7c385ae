package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`
	// Response is true for messages sent by a replica
	Response bool `json:"response,omitempty"`

	// General fields
	Key     string `json:"key,omitempty"`   // Used for: all requests
	Value   string `json:"value,omitempty"` // Used for: Put, Update (request), Get (response)
	Version int64  `json:"version"`         // Used for: Put, Update (request), AcquireLock, Get (response)

	// Response only fields
	Ok  bool   `json:"ok,omitempty"`  // Used for: AcquireLock, Get, Put responses
	Err string `json:"err,omitempty"` // Used for: InvalidRequest responses (never sent by the text serializer)
}

// String returns a short description of the message for logging
func (m Message) String() string {
	if m.Response {
		return fmt.Sprintf("%s response (ok=%t, version=%d)", m.MsgType, m.Ok, m.Version)
	}
	return fmt.Sprintf("%s request (key=%q, version=%d)", m.MsgType, m.Key, m.Version)
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewAcquireLockRequest creates a new AcquireLock request
func NewAcquireLockRequest(key string) *Message {
	return &Message{
		MsgType: MsgTAcquireLock,
		Key:     key,
	}
}

// NewAcquireLockResponse creates a new AcquireLock response.
// The version is only meaningful if the lock was acquired.
func NewAcquireLockResponse(ok bool, version int64) *Message {
	msg := &Message{
		MsgType:  MsgTAcquireLock,
		Response: true,
		Ok:       ok,
	}
	if ok {
		msg.Version = version
	}
	return msg
}

// NewReleaseLockRequest creates a new ReleaseLock request
func NewReleaseLockRequest(key string) *Message {
	return &Message{
		MsgType: MsgTReleaseLock,
		Key:     key,
	}
}

// NewReleaseLockResponse creates a new ReleaseLock response
func NewReleaseLockResponse() *Message {
	return &Message{
		MsgType:  MsgTReleaseLock,
		Response: true,
		Ok:       true,
	}
}

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{
		MsgType: MsgTGet,
		Key:     key,
	}
}

// NewGetResponse creates a new successful Get response
func NewGetResponse(value string, version int64) *Message {
	return &Message{
		MsgType:  MsgTGet,
		Response: true,
		Ok:       true,
		Value:    value,
		Version:  version,
	}
}

// NewGetFailedResponse creates a new Get response for a read that could not be served
func NewGetFailedResponse() *Message {
	return &Message{
		MsgType:  MsgTGet,
		Response: true,
	}
}

// NewPutRequest creates a new Put request
func NewPutRequest(key, value string, version int64) *Message {
	return &Message{
		MsgType: MsgTPut,
		Key:     key,
		Value:   value,
		Version: version,
	}
}

// NewPutResponse creates a new Put response
func NewPutResponse(ok bool) *Message {
	return &Message{
		MsgType:  MsgTPut,
		Response: true,
		Ok:       ok,
	}
}

// NewUpdateRequest creates a new (anti-entropy) Update request
func NewUpdateRequest(key, value string, version int64) *Message {
	return &Message{
		MsgType: MsgTUpdate,
		Key:     key,
		Value:   value,
		Version: version,
	}
}

// NewUpdateResponse creates a new Update response. It is sent whether or not the update was applied.
func NewUpdateResponse() *Message {
	return &Message{
		MsgType:  MsgTUpdate,
		Response: true,
		Ok:       true,
	}
}

// NewInvalidRequestResponse creates a new response for a malformed or unknown request
func NewInvalidRequestResponse(reason string) *Message {
	return &Message{
		MsgType:  MsgTInvalidRequest,
		Response: true,
		Err:      reason,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTAcquireLock:
		return "acquireLock"
	case MsgTReleaseLock:
		return "releaseLock"
	case MsgTGet:
		return "get"
	case MsgTPut:
		return "put"
	case MsgTUpdate:
		return "update"
	case MsgTInvalidRequest:
		return "invalidRequest"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "acquireLock":
		*t = MsgTAcquireLock
	case "releaseLock":
		*t = MsgTReleaseLock
	case "get":
		*t = MsgTGet
	case "put":
		*t = MsgTPut
	case "update":
		*t = MsgTUpdate
	case "invalidRequest":
		*t = MsgTInvalidRequest
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	MsgTUnknown MessageType = iota

	// Client write protocol

	MsgTAcquireLock // Acquire the write lock of a key
	MsgTReleaseLock // Release the write lock of a key
	MsgTPut         // Write a value with a version (requires the write lock)

	// Client read protocol

	MsgTGet // Read a value and its version

	// Anti-entropy

	MsgTUpdate // Conditionally overwrite a value if the version is newer

	// Control messages

	MsgTInvalidRequest // Response to a malformed or unknown request
)
