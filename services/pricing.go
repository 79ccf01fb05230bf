package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

const (
	MinItemQuantity = 1
	MaxItemQuantity = 20

	// each line after the first adds this many minutes to the estimate
	extraMinutesPerLine = 5
)

// PricingPolicy holds the tax rate and the bounds of the preparation
// estimate.
type PricingPolicy struct {
	TaxRate             decimal.Decimal
	MaxEstimatedMinutes int
	MinEstimatedMinutes int
}

func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:             decimal.RequireFromString("0.18"),
		MaxEstimatedMinutes: 60,
		MinEstimatedMinutes: 15,
	}
}

type LineRequest struct {
	Dish                models.Dish
	Quantity            int
	SpecialInstructions string
}

type PricedLine struct {
	DishID              string
	Quantity            int
	UnitPrice           decimal.Decimal
	LineTotal           decimal.Decimal
	SpecialInstructions string
}

type Quote struct {
	Lines         []PricedLine
	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	TotalAmount   decimal.Decimal
	EstimatedTime int
}

// Price computes line totals, subtotal, tax, total and the preparation
// estimate. Dish prices are copied, never referenced.
func (p PricingPolicy) Price(lines []LineRequest) (*Quote, error) {
	quote := &Quote{
		Lines:    make([]PricedLine, 0, len(lines)),
		Subtotal: decimal.Zero,
	}

	prepTimes := make([]int, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < MinItemQuantity || line.Quantity > MaxItemQuantity {
			return nil, utils.NewValidationError(fmt.Sprintf("quantity for dish %s must be between %d and %d", line.Dish.ID, MinItemQuantity, MaxItemQuantity))
		}
		if !line.Dish.IsAvailable {
			return nil, utils.NewConflictError(utils.CodeDishUnavailable, fmt.Sprintf("dish %s is not available", line.Dish.ID))
		}

		lineTotal := line.Dish.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		quote.Subtotal = quote.Subtotal.Add(lineTotal)
		quote.Lines = append(quote.Lines, PricedLine{
			DishID:              line.Dish.ID,
			Quantity:            line.Quantity,
			UnitPrice:           line.Dish.Price,
			LineTotal:           lineTotal,
			SpecialInstructions: line.SpecialInstructions,
		})
		prepTimes = append(prepTimes, line.Dish.PreparationTime)
	}

	quote.TaxAmount = quote.Subtotal.Mul(p.TaxRate)
	quote.TotalAmount = quote.Subtotal.Add(quote.TaxAmount)
	quote.EstimatedTime = p.EstimateTime(prepTimes)
	return quote, nil
}

// EstimateTime is the slowest dish plus a fixed amount per extra line,
// capped at MaxEstimatedMinutes. An empty order gets MinEstimatedMinutes, as
// does a dish without a preparation time.
func (p PricingPolicy) EstimateTime(prepTimes []int) int {
	if len(prepTimes) == 0 {
		return p.MinEstimatedMinutes
	}

	slowest := 0
	for _, t := range prepTimes {
		if t <= 0 {
			t = p.MinEstimatedMinutes
		}
		if t > slowest {
			slowest = t
		}
	}

	estimate := slowest + extraMinutesPerLine*(len(prepTimes)-1)
	if p.MaxEstimatedMinutes > 0 && estimate > p.MaxEstimatedMinutes {
		estimate = p.MaxEstimatedMinutes
	}
	return estimate
}
