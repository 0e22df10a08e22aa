package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyINR Currency = "INR"
	CurrencyCAD Currency = "CAD"
	CurrencyAUD Currency = "AUD"
)

// JobCurrencies допустимые валюты бюджета вакансии.
var JobCurrencies = []Currency{CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyINR, CurrencyCAD, CurrencyAUD}

// BidCurrencies допустимые валюты ставки в предложении.
var BidCurrencies = []Currency{CurrencyUSD, CurrencyEUR, CurrencyGBP}

func (c Currency) In(allowed []Currency) bool {
	for _, a := range allowed {
		if a == c {
			return true
		}
	}
	return false
}

type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if amount.IsNegative() {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	if currency == "" {
		currency = CurrencyUSD
	}
	return Money{Amount: amount, Currency: currency}, nil
}

type Budget struct {
	Min      decimal.Decimal
	Max      decimal.Decimal
	Currency Currency
}

func NewBudget(min, max decimal.Decimal, currency Currency) (Budget, error) {
	if min.IsNegative() || max.IsNegative() {
		return Budget{}, apperror.New(apperror.ErrCodeValidation, "бюджет не может быть отрицательным")
	}
	if min.GreaterThan(max) {
		return Budget{}, apperror.New(apperror.ErrCodeValidation, "минимальный бюджет не может превышать максимальный")
	}
	if currency == "" {
		currency = CurrencyUSD
	}
	if !currency.In(JobCurrencies) {
		return Budget{}, apperror.New(apperror.ErrCodeValidation, "неподдерживаемая валюта")
	}
	return Budget{Min: min, Max: max, Currency: currency}, nil
}

// Overlaps сообщает, пересекаются ли диапазоны бюджета.
func (b Budget) Overlaps(min, max decimal.Decimal) bool {
	return b.Max.GreaterThanOrEqual(min) && b.Min.LessThanOrEqual(max)
}

func (b Budget) String() string {
	return fmt.Sprintf("%s %s - %s", b.Currency, b.Min.StringFixed(2), b.Max.StringFixed(2))
}
