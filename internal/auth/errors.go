package auth

import "fmt"

// ErrorCode is the closed set of outcomes an orchestrator operation can
// report.  Success is the only non-failure member.
type ErrorCode int

const (
	Success ErrorCode = iota
	InvalidUser
	EmailNotConfirmed
	EmailAlreadyConfirmed
	InvalidEmailOrPassword
	InvalidCredentials
	InternalServerError
	InvalidToken
	DeletionFailed
	NoUsersFound
	UserAlreadyExists
	InvalidData
	Conflict
)

var codeNames = [...]string{
	Success:                "Success",
	InvalidUser:            "InvalidUser",
	EmailNotConfirmed:      "EmailNotConfirmed",
	EmailAlreadyConfirmed:  "EmailAlreadyConfirmed",
	InvalidEmailOrPassword: "InvalidEmailOrPassword",
	InvalidCredentials:     "InvalidCredentials",
	InternalServerError:    "InternalServerError",
	InvalidToken:           "InvalidToken",
	DeletionFailed:         "DeletionFailed",
	NoUsersFound:           "NoUsersFound",
	UserAlreadyExists:      "UserAlreadyExists",
	InvalidData:            "InvalidData",
	Conflict:               "Conflict",
}

func (c ErrorCode) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// MarshalText renders the code by name so JSON bodies carry "InvalidUser"
// rather than an integer.
func (c ErrorCode) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Result is returned by every Service operation.  Errors holds either a
// []string of business messages or a map[string][]string of field
// messages.  Token is only ever set on Success.
type Result struct {
	Code   ErrorCode `json:"code"`
	Token  string    `json:"token,omitempty"`
	Errors any       `json:"errors,omitempty"`
	Data   any       `json:"data,omitempty"`
}

// Succeeded reports whether the result carries the success code.
func (r Result) Succeeded() bool { return r.Code == Success }

func succeed(data any) Result { return Result{Code: Success, Data: data} }

func withToken(token string) Result { return Result{Code: Success, Token: token} }

func fail(code ErrorCode, msgs ...string) Result {
	r := Result{Code: code}
	if len(msgs) > 0 {
		r.Errors = msgs
	}
	return r
}

func failWith(code ErrorCode, problems any) Result { return Result{Code: code, Errors: problems} }
