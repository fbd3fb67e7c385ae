package serializer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/qKV/rpc/common"
)

// Request and response tokens of the text protocol
const (
	tokAcquireLock    = "ACQUIRE_LOCK"
	tokReleaseLock    = "RELEASE_LOCK"
	tokGet            = "GET"
	tokPut            = "PUT"
	tokUpdate         = "UPDATE"
	tokLockAcquired   = "LOCK_ACQUIRED"
	tokLockNotAcq     = "LOCK_NOT_ACQUIRED"
	tokLockReleased   = "LOCK_RELEASED"
	tokGetSuccess     = "GET_SUCCESS"
	tokGetFailed      = "GET_FAILED"
	tokPutSuccess     = "PUT_SUCCESS"
	tokPutFailed      = "PUT_FAILED"
	tokUpdateReceived = "UPDATE_RECEIVED"
	tokInvalidRequest = "INVALID_REQUEST"
)

// NewTextSerializer creates a new serializer for the plain text protocol.
//
// Fields are separated by a single space:
//
//	ACQUIRE_LOCK key        -> LOCK_ACQUIRED version | LOCK_NOT_ACQUIRED
//	RELEASE_LOCK key        -> LOCK_RELEASED
//	GET key                 -> GET_SUCCESS value version | GET_FAILED
//	PUT key value version   -> PUT_SUCCESS | PUT_FAILED
//	UPDATE key value version-> UPDATE_RECEIVED
//	anything else           -> INVALID_REQUEST
//
// Keys and values can therefore not contain whitespace. Serialize refuses such messages.
func NewTextSerializer() IRPCSerializer {
	return &textSerializerImpl{}
}

// textSerializerImpl implements the IRPCSerializer interface for the text protocol
type textSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (s textSerializerImpl) Name() string {
	return "text"
}

func (s textSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var (
		line string
		err  error
	)
	if msg.Response {
		line, err = encodeResponse(msg)
	} else {
		line, err = encodeRequest(msg)
	}
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}

func (s textSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	line := strings.TrimRight(string(b), "\r\n")
	parts := strings.Split(line, " ")

	// check the number of fields of the message
	expect := func(n int) error {
		if len(parts) != n {
			return fmt.Errorf("%w: %s expects %d fields, got %d", ErrInvalidRequest, parts[0], n, len(parts))
		}
		return nil
	}

	switch parts[0] {

	// Requests

	case tokAcquireLock, tokReleaseLock, tokGet:
		if err := expect(2); err != nil {
			return err
		}
		if parts[1] == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidRequest)
		}
		msgType := map[string]common.MessageType{
			tokAcquireLock: common.MsgTAcquireLock,
			tokReleaseLock: common.MsgTReleaseLock,
			tokGet:         common.MsgTGet,
		}[parts[0]]
		*msg = common.Message{MsgType: msgType, Key: parts[1]}

	case tokPut, tokUpdate:
		if err := expect(4); err != nil {
			return err
		}
		if parts[1] == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidRequest)
		}
		version, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil || version < 0 {
			return fmt.Errorf("%w: invalid version %q", ErrInvalidRequest, parts[3])
		}
		msgType := common.MsgTPut
		if parts[0] == tokUpdate {
			msgType = common.MsgTUpdate
		}
		*msg = common.Message{MsgType: msgType, Key: parts[1], Value: parts[2], Version: version}

	// Responses

	case tokLockAcquired:
		if err := expect(2); err != nil {
			return err
		}
		version, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: invalid version %q", ErrInvalidRequest, parts[1])
		}
		*msg = *common.NewAcquireLockResponse(true, version)

	case tokLockNotAcq:
		*msg = *common.NewAcquireLockResponse(false, 0)

	case tokLockReleased:
		*msg = *common.NewReleaseLockResponse()

	case tokGetSuccess:
		// the value may be empty, the version is always the last field
		rest := strings.TrimPrefix(line, tokGetSuccess+" ")
		idx := strings.LastIndex(rest, " ")
		if len(parts) < 3 || idx < 0 {
			return fmt.Errorf("%w: malformed %s response", ErrInvalidRequest, tokGetSuccess)
		}
		version, err := strconv.ParseInt(rest[idx+1:], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: invalid version %q", ErrInvalidRequest, rest[idx+1:])
		}
		*msg = *common.NewGetResponse(rest[:idx], version)

	case tokGetFailed:
		*msg = *common.NewGetFailedResponse()

	case tokPutSuccess, tokPutFailed:
		*msg = *common.NewPutResponse(parts[0] == tokPutSuccess)

	case tokUpdateReceived:
		*msg = *common.NewUpdateResponse()

	case tokInvalidRequest:
		*msg = *common.NewInvalidRequestResponse("")

	default:
		return fmt.Errorf("%w: unknown command %q", ErrInvalidRequest, parts[0])
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// checkField makes sure a field can be represented in the text protocol
func checkField(name, value string, allowEmpty bool) error {
	if value == "" && !allowEmpty {
		return fmt.Errorf("%w: empty %s", ErrUnencodable, name)
	}
	if strings.ContainsAny(value, " \t\r\n") {
		return fmt.Errorf("%w: %s %q contains whitespace", ErrUnencodable, name, value)
	}
	return nil
}

func encodeRequest(msg common.Message) (string, error) {
	if err := checkField("key", msg.Key, false); err != nil {
		return "", err
	}

	switch msg.MsgType {
	case common.MsgTAcquireLock:
		return tokAcquireLock + " " + msg.Key, nil
	case common.MsgTReleaseLock:
		return tokReleaseLock + " " + msg.Key, nil
	case common.MsgTGet:
		return tokGet + " " + msg.Key, nil
	case common.MsgTPut, common.MsgTUpdate:
		if err := checkField("value", msg.Value, true); err != nil {
			return "", err
		}
		tok := tokPut
		if msg.MsgType == common.MsgTUpdate {
			tok = tokUpdate
		}
		return fmt.Sprintf("%s %s %s %d", tok, msg.Key, msg.Value, msg.Version), nil
	default:
		return "", fmt.Errorf("%w: unsupported request type %s", ErrUnencodable, msg.MsgType)
	}
}

func encodeResponse(msg common.Message) (string, error) {
	switch msg.MsgType {
	case common.MsgTAcquireLock:
		if msg.Ok {
			return fmt.Sprintf("%s %d", tokLockAcquired, msg.Version), nil
		}
		return tokLockNotAcq, nil
	case common.MsgTReleaseLock:
		return tokLockReleased, nil
	case common.MsgTGet:
		if !msg.Ok {
			return tokGetFailed, nil
		}
		// a value read back only needs to fit on one line
		if strings.ContainsAny(msg.Value, "\r\n") {
			return "", fmt.Errorf("%w: value contains a line break", ErrUnencodable)
		}
		return fmt.Sprintf("%s %s %d", tokGetSuccess, msg.Value, msg.Version), nil
	case common.MsgTPut:
		if msg.Ok {
			return tokPutSuccess, nil
		}
		return tokPutFailed, nil
	case common.MsgTUpdate:
		return tokUpdateReceived, nil
	case common.MsgTInvalidRequest:
		return tokInvalidRequest, nil
	default:
		return "", fmt.Errorf("%w: unsupported response type %s", ErrUnencodable, msg.MsgType)
	}
}
