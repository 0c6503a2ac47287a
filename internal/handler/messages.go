package handler

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/iliyamo/ecommerce-backend/internal/auth"
)

// Messages renders the notification bodies sent by the auth endpoints.
// Links point at BaseURL.
type Messages struct {
	BaseURL string
}

func (m Messages) link(path string, q url.Values) string {
	return strings.TrimRight(m.BaseURL, "/") + path + "?" + q.Encode()
}

// Confirmation returns a builder that embeds the confirmation token in a
// link to the confirm-email endpoint.  name may be empty.
func (m Messages) Confirmation(name string) auth.MessageBuilder {
	return func(token string) auth.Message {
		href := m.link("/v1/auth/confirm-email", url.Values{"token": {token}})
		greeting := "Hello,"
		if name != "" {
			greeting = "Hello " + html.EscapeString(name) + ","
		}
		return auth.Message{
			Subject: "Confirm your email",
			Body: fmt.Sprintf(`<p>%s</p><p>Please confirm your email address by clicking <a href="%s">this link</a>.</p>`,
				greeting, html.EscapeString(href)),
		}
	}
}

// PasswordReset returns a builder for the reset mail.  The code is shown
// and also carried in a link to the web client's reset form.
func (m Messages) PasswordReset(email string) auth.MessageBuilder {
	return func(code string) auth.Message {
		href := m.link("/reset-password", url.Values{"email": {email}, "code": {code}})
		return auth.Message{
			Subject: "Reset your password",
			Body: fmt.Sprintf(`<p>Use <a href="%s">this link</a> to choose a new password, or enter this code: <code>%s</code></p><p>If you did not ask for a reset, ignore this mail.</p>`,
				html.EscapeString(href), html.EscapeString(code)),
		}
	}
}
