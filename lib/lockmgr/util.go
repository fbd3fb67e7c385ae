package lockmgr

import (
	"github.com/google/uuid"
)

// Token is an opaque lock owner identity.
// A replica creates one token per accepted connection, so a token stays stable
// for the lifetime of one write (lock, put, close) regardless of network addresses.
type Token string

// NoToken is the zero Token. It never owns a lock.
const NoToken Token = ""

// NewToken creates a new unique token
func NewToken() Token {
	return Token(uuid.NewString())
}

// String returns the token as a string
func (t Token) String() string {
	if t == NoToken {
		return "<none>"
	}
	return string(t)
}
