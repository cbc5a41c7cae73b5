package ledger

import (
	"time"

	"warungpos/terminal/internal/domain"
)

// CheckPromoEligibility reports whether a promotion applies to a cart total
// at the given instant, with a human-readable reason when it does not.
func CheckPromoEligibility(promo domain.Promotion, cartTotal int64, now time.Time) (bool, string) {
	if !promo.Active {
		return false, "promotion is not active"
	}
	if promo.MinPurchaseAmount > 0 && cartTotal < promo.MinPurchaseAmount {
		return false, "minimum purchase amount not met"
	}
	millis := now.UnixMilli()
	if promo.ValidFrom > 0 && millis < promo.ValidFrom {
		return false, "promotion has not started yet"
	}
	if promo.ValidTo > 0 && millis > promo.ValidTo {
		return false, "promotion has expired"
	}
	return true, ""
}

// ApplyPromotion returns the discount amount a promotion grants on a cart
// total. Fixed promotions never discount more than the total itself.
func ApplyPromotion(promo domain.Promotion, cartTotal int64) int64 {
	switch promo.Type {
	case domain.PromoTypePercentage:
		return cartTotal * promo.Value / 100
	case domain.PromoTypeFixed:
		if promo.Value > cartTotal {
			return cartTotal
		}
		return promo.Value
	}
	return 0
}
