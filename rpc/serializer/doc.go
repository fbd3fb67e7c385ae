// Package serializer converts protocol messages to and from single lines.
// It defines a common interface and two implementations, one of which must be
// chosen consistently by replicas and clients.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//     A serialized message never contains a line terminator, the transport frames
//     messages by appending one.
//
//   - textSerializerImpl: The plain text protocol (ACQUIRE_LOCK key, LOCK_ACQUIRED 3,
//     GET_SUCCESS value 3, ...). Fields are separated by spaces, so keys and values
//     must not contain whitespace. This is the default and the format other
//     clients speak.
//
//   - jsonSerializerImpl: One JSON object per line. Slower and larger but keys and
//     values may contain arbitrary characters.
//
// Error Handling:
//
//	Deserialize wraps ErrInvalidRequest for malformed lines, the request
//	handler answers those with an invalid request response and keeps the
//	connection open. Serialize wraps ErrUnencodable for messages the format
//	cannot express.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
package serializer
