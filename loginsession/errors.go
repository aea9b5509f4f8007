package loginsession

import "errors"

var (
	// ProtocolErr marks a malformed response from the login API: a token
	// response without a string token, or a completed login info body
	// missing its user or photo fields.
	ProtocolErr = errors.New("malformed login response")
)
