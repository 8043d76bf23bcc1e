package store

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no store matches the requested slug.
var ErrNotFound = errors.New("store not found")

// Store is a seller's public storefront.
type Store struct {
	ID   string
	Slug string
	Name string
	// WhatsApp is the phone number that receives orders.
	WhatsApp string
}

// NormalizeSlug lower-cases and trims a slug taken from a URL.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// Repository provides read access to stores.
type Repository interface {
	GetBySlug(ctx context.Context, slug string) (*Store, error)
}
