// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package backend

// Result is the completion code reported by a backend operation.
type Result int

const (
	ResultSuccess Result = iota
	// ResultInvalidUser means the user was not found but the operation is
	// recoverable through a continuance token (linking or user creation).
	ResultInvalidUser
	ResultInvalidCredentials
	ResultInvalidParameters
	// ResultDuplicateNotAllowed means an identity already exists under a
	// different provider for this user.
	ResultDuplicateNotAllowed
	ResultNotFound
	ResultCanceled
	ResultNoConnection
	ResultExpired
	ResultNotConfigured
	ResultSessionFull
	ResultUnknown
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "Success"
	case ResultInvalidUser:
		return "InvalidUser"
	case ResultInvalidCredentials:
		return "InvalidCredentials"
	case ResultInvalidParameters:
		return "InvalidParameters"
	case ResultDuplicateNotAllowed:
		return "DuplicateNotAllowed"
	case ResultNotFound:
		return "NotFound"
	case ResultCanceled:
		return "Canceled"
	case ResultNoConnection:
		return "NoConnection"
	case ResultExpired:
		return "Expired"
	case ResultNotConfigured:
		return "NotConfigured"
	case ResultSessionFull:
		return "SessionFull"
	default:
		return "Unknown"
	}
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r == ResultSuccess
}
