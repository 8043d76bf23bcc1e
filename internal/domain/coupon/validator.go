package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator validates a coupon code for a store against a cart subtotal.
type Validator interface {
	Validate(ctx context.Context, storeID, code string, subtotal decimal.Decimal) (*Applied, error)
}

var _ Validator = (*RepoValidator)(nil)

// RepoValidator implements Validator by looking up coupons from a Repository
// and applying Evaluate.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate normalizes the code, looks up the store's coupon and evaluates it.
// It does not touch the usage counter.
func (v *RepoValidator) Validate(ctx context.Context, storeID, code string, subtotal decimal.Decimal) (*Applied, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrNotFound
	}

	c, err := v.repo.FindByCodeAndOwner(ctx, code, storeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	applied, err := Evaluate(c, subtotal, v.now())
	if err != nil {
		return nil, err
	}
	return &applied, nil
}
