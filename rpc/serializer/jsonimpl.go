package serializer

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/qKV/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding.
// Every message is one JSON object on one line, so keys and values may contain
// any character (including spaces and newlines, which are escaped by JSON).
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Name() string {
	return "json"
}

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	if !msg.Response && msg.Key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrUnencodable)
	}
	return json.Marshal(msg)
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	var decoded common.Message
	if err := json.Unmarshal(b, &decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if decoded.MsgType == common.MsgTUnknown {
		return fmt.Errorf("%w: missing message type", ErrInvalidRequest)
	}
	if !decoded.Response && decoded.Key == "" {
		return fmt.Errorf("%w: missing key", ErrInvalidRequest)
	}
	if !decoded.Response && (decoded.MsgType == common.MsgTPut || decoded.MsgType == common.MsgTUpdate) && decoded.Version < 0 {
		return fmt.Errorf("%w: negative version %d", ErrInvalidRequest, decoded.Version)
	}
	*msg = decoded
	return nil
}
