// Package whatsapp hands orders off through click-to-chat links.
package whatsapp

import (
	"context"
	"net/url"
	"strings"
	"unicode"

	"github.com/go-faster/errors"

	"github.com/xenking/vitrine/internal/delivery"
)

// ChannelName identifies receipts produced by Links.
const ChannelName = "whatsapp"

// DefaultBaseURL is the public click-to-chat endpoint.
const DefaultBaseURL = "https://wa.me"

// ErrInvalidPhone is returned when the destination has no digits.
var ErrInvalidPhone = errors.New("invalid whatsapp phone number")

var _ delivery.Channel = (*Links)(nil)

// Links builds click-to-chat links carrying the order text. The customer's
// device sends the message, so Deliver performs no I/O.
type Links struct {
	BaseURL string
}

// NewLinks returns a Links channel. An empty baseURL selects DefaultBaseURL.
func NewLinks(baseURL string) *Links {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Links{BaseURL: strings.TrimRight(baseURL, "/")}
}

// Deliver returns a receipt with the link for msg.
func (l *Links) Deliver(ctx context.Context, msg delivery.Message) (delivery.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return delivery.Receipt{}, err
	}
	link, err := l.Link(msg.Destination, msg.Text)
	if err != nil {
		return delivery.Receipt{}, err
	}
	return delivery.Receipt{Channel: ChannelName, URL: link}, nil
}

// Link formats the click-to-chat URL for phone and text.
func (l *Links) Link(phone, text string) (string, error) {
	digits := Digits(phone)
	if digits == "" {
		return "", errors.Wrapf(ErrInvalidPhone, "%q", phone)
	}
	// Spaces are sent as %20; some clients show a literal "+".
	return l.BaseURL + "/" + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20"), nil
}

// Digits strips everything but digits from a phone number.
func Digits(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
}
