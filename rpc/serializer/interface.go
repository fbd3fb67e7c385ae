package serializer

import (
	"errors"

	"github.com/ValentinKolb/qKV/rpc/common"
)

var (
	// ErrInvalidRequest is returned (wrapped) by Deserialize for lines that are not a valid message
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnencodable is returned (wrapped) by Serialize for messages the format cannot represent
	ErrUnencodable = errors.New("message cannot be encoded")
)

// IRPCSerializer is the interface for all Message Serializers.
// A serialized message is exactly one line, the transport appends the line terminator.
type IRPCSerializer interface {
	// Name returns the name of the serializer (e.g. "text")
	Name() string
	// Serialize serializes a Message into a single line (without line terminator)
	// It returns the serialized line and an error if any
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a single line into a Message
	// It takes the line and a pointer to a Message as parameters
	// It returns an error wrapping ErrInvalidRequest if the line is malformed
	Deserialize(b []byte, msg *common.Message) error
}

// New returns the serializer with the given name
func New(name string) (IRPCSerializer, bool) {
	switch name {
	case "text", "":
		return NewTextSerializer(), true
	case "json":
		return NewJSONSerializer(), true
	default:
		return nil, false
	}
}
