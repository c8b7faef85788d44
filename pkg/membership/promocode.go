package membership

import (
	"regexp"
	"strings"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
)

// PromoCode is a validated, normalized promotional code of the exact form
// PREFIX-RANDOM, where PREFIX is 4-20 alphanumerics and RANDOM is exactly 6
// alphanumerics.
type PromoCode string

var promoCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{4,20}-[A-Za-z0-9]{6}$`)

// NewPromoCode validates raw against the PREFIX-RANDOM shape and normalizes
// it to uppercase. Any violation is rejected.
func NewPromoCode(raw string) (PromoCode, error) {
	if !promoCodePattern.MatchString(raw) {
		return "", apperrors.NewValidationError("promo_code", "must be PREFIX-RANDOM with a 4-20 alphanumeric prefix and exactly 6 alphanumeric suffix characters")
	}
	return PromoCode(strings.ToUpper(raw)), nil
}

// String returns the normalized code.
func (p PromoCode) String() string { return string(p) }
