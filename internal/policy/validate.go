package policy

import (
	"fmt"
	"strings"
	"unicode"

	domain "github.com/suqline/api/internal/domain"
)

const minPhoneDigits = 10

// ValidationResult reports creation-payload violations. Reasons preserves the
// order checks ran in so callers can render the full list.
type ValidationResult struct {
	Reasons []string
}

// Valid reports whether the request passed every check.
func (r ValidationResult) Valid() bool {
	return len(r.Reasons) == 0
}

// ValidateCreateOrder checks the order creation payload and accumulates every
// violation rather than stopping at the first, so the caller can report them
// together.
func ValidateCreateOrder(req domain.CreateOrderRequest) ValidationResult {
	var result ValidationResult
	add := func(format string, args ...any) {
		result.Reasons = append(result.Reasons, fmt.Sprintf(format, args...))
	}

	validateItems(add, req.Items)

	if strings.TrimSpace(req.CustomerName) == "" {
		add("customer name is required")
	}

	phone := strings.TrimSpace(req.CustomerPhone)
	if phone == "" {
		add("customer phone is required")
	} else if countDigits(phone) < minPhoneDigits {
		add("customer phone must contain at least %d digits", minPhoneDigits)
	}

	if strings.TrimSpace(req.CustomerAddress) == "" {
		add("customer address is required")
	}

	if req.DeliveryFee != nil && *req.DeliveryFee < 0 {
		add("delivery fee must not be negative")
	}

	return result
}

// ValidateEstimate checks a totals-estimation payload, which carries items and
// an optional delivery fee but no contact details.
func ValidateEstimate(items []domain.CreateOrderItem, deliveryFee *int64) ValidationResult {
	var result ValidationResult
	add := func(format string, args ...any) {
		result.Reasons = append(result.Reasons, fmt.Sprintf(format, args...))
	}

	validateItems(add, items)
	if deliveryFee != nil && *deliveryFee < 0 {
		add("delivery fee must not be negative")
	}

	return result
}

func validateItems(add func(format string, args ...any), items []domain.CreateOrderItem) {
	if len(items) == 0 {
		add("order must contain at least one item")
	}
	for i, item := range items {
		if item.VariantID <= 0 {
			add("item %d: variant reference must be positive", i+1)
		}
		if item.Quantity < 1 {
			add("item %d: quantity must be at least 1", i+1)
		}
	}
}

func countDigits(value string) int {
	count := 0
	for _, r := range value {
		if unicode.IsDigit(r) {
			count++
		}
	}
	return count
}
