package models

import "github.com/sheikh-saqib/custom-token-ledger/internal/token"

// Errors raised by the node hosting the token, sharing the token's coded
// error shape.
var (
	ErrNotDeployed      = token.NewError("NotDeployed", "no token has been deployed")
	ErrAlreadyDeployed  = token.NewError("AlreadyDeployed", "a token is already deployed")
	ErrInvalidSignature = token.NewError("InvalidSignature", "signature does not match sender")
	ErrUnknownOperation = token.NewError("UnknownOperation", "unknown operation kind")
	ErrInvalidParams    = token.NewError("InvalidParams", "missing or invalid operation parameters")
)
