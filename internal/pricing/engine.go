// Package pricing computes order totals. Amounts are int64 minor currency
// units; the commission rate multiplication goes through decimal arithmetic
// so configurable non-integer rates never pick up binary float drift.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	domain "github.com/suqline/api/internal/domain"
)

// DefaultCommissionRate is the platform commission applied to the subtotal
// when no rate is configured.
const DefaultCommissionRate = "0.10"

var one = decimal.NewFromInt(1)

// Engine derives order totals from line items. It is pure and safe for
// concurrent use.
type Engine struct {
	commissionRate decimal.Decimal
}

// NewEngine builds an engine with the supplied commission rate, expressed as
// a decimal fraction string such as "0.10". The rate is operator
// configuration, never user input.
func NewEngine(commissionRate string) (*Engine, error) {
	if commissionRate == "" {
		commissionRate = DefaultCommissionRate
	}
	rate, err := decimal.NewFromString(commissionRate)
	if err != nil {
		return nil, fmt.Errorf("pricing engine: parse commission rate %q: %w", commissionRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(one) {
		return nil, errors.New("pricing engine: commission rate must be within [0, 1]")
	}
	return &Engine{commissionRate: rate}, nil
}

// CommissionRate returns the configured rate as a decimal fraction string.
func (e *Engine) CommissionRate() string {
	return e.commissionRate.String()
}

// CalculateTotals computes subtotal, platform commission, and the grand
// total. Commission is an internal seller-settlement figure and is excluded
// from the customer-facing total. An empty item list yields a total equal to
// the delivery fee.
func (e *Engine) CalculateTotals(items []domain.CreateOrderItem, deliveryFee int64) domain.OrderTotals {
	var subtotal int64
	for _, item := range items {
		subtotal += item.UnitPrice * int64(item.Quantity)
	}

	commission := decimal.NewFromInt(subtotal).
		Mul(e.commissionRate).
		Round(0).
		IntPart()

	return domain.OrderTotals{
		Subtotal:    subtotal,
		DeliveryFee: deliveryFee,
		Commission:  commission,
		Total:       subtotal + deliveryFee,
	}
}

// TotalsForLines recomputes totals from persisted line items, preserving the
// delivery fee already attached to the order. Storage adapters use it as the
// authoritative recomputation on insert.
func (e *Engine) TotalsForLines(items []domain.OrderLineItem, deliveryFee int64) domain.OrderTotals {
	lines := make([]domain.CreateOrderItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.CreateOrderItem{
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return e.CalculateTotals(lines, deliveryFee)
}
