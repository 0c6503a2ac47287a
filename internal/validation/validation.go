// Package validation holds the field-level rules shared by the HTTP
// payloads and the credential store: password complexity, phone numbers
// with a country code, and conversion of ozzo-validation errors into the
// field → messages map returned to clients.
package validation

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	ozzo "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"
)

// MinPasswordLength is the shortest password accepted.
const MinPasswordLength = 6

// PasswordError lists every complexity rule a password breaks.
type PasswordError []string

func (e PasswordError) Error() string { return strings.Join(e, "; ") }

// PasswordProblems returns one message per broken complexity rule, or
// nil when the password is acceptable.
func PasswordProblems(password string) []string {
	var (
		problems                     []string
		upper, lower, digit, special bool
	)
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, "Password must be at least 6 characters long.")
	}
	if !upper {
		problems = append(problems, "Password must contain an upper-case letter.")
	}
	if !lower {
		problems = append(problems, "Password must contain a lower-case letter.")
	}
	if !digit {
		problems = append(problems, "Password must contain a digit.")
	}
	if !special {
		problems = append(problems, "Password must contain a special character.")
	}
	return problems
}

// Password is an ozzo rule enforcing PasswordProblems.
var Password = ozzo.By(func(value interface{}) error {
	s, _ := value.(string)
	if p := PasswordProblems(s); len(p) > 0 {
		return PasswordError(p)
	}
	return nil
})

// Phone is an ozzo rule accepting numbers written with a leading "+" and
// country code, e.g. +15551234567.  Empty values are left to Required.
var Phone = ozzo.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !strings.HasPrefix(strings.TrimSpace(s), "+") {
		return errors.New("must include a country code, e.g. +15551234567")
	}
	num, err := phonenumbers.Parse(s, "")
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return errors.New("must be a valid phone number")
	}
	return nil
})

// NormalizePhone formats a phone number as E.164.  Unparseable input is
// returned trimmed but otherwise untouched.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	num, err := phonenumbers.Parse(s, "")
	if err != nil {
		return s
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// Fields flattens an error returned by ozzo.ValidateStruct into a map of
// field name to messages.  Password errors expand to one message per
// broken rule.  A nil error yields nil; an error that is not a field
// error lands under "_".
func Fields(err error) map[string][]string {
	if err == nil {
		return nil
	}
	var errs ozzo.Errors
	if !errors.As(err, &errs) {
		return map[string][]string{"_": {err.Error()}}
	}
	out := make(map[string][]string, len(errs))
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fe := errs[k]
		if fe == nil {
			continue
		}
		var pe PasswordError
		if errors.As(fe, &pe) {
			out[k] = append(out[k], pe...)
			continue
		}
		out[k] = append(out[k], fe.Error())
	}
	return out
}
