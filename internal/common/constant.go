// Package common contains shared constants and sentinel errors used across
// Skeleton components.
package common

// SessionCookieName is the cookie carrying the {"id","token"} bearer pair.
const SessionCookieName = "BrancaToken"

// SessionMetadataKey is the gRPC metadata key carrying the same bearer pair.
const SessionMetadataKey = "branca_token"

// TokenTTL is the lifetime, in seconds, of session and reset tokens.
const TokenTTL uint32 = 86400

// Lengths of generated secrets, in characters.
const (
	TokenKeyLength  = 32
	ResetCodeLength = 6
)
