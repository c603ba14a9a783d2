package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Route represents a railway route with its current fare.
type Route struct {
	ID          string
	Origin      string
	Destination string
	BasePrice   decimal.Decimal
	Active      bool
	CreatedAt   time.Time
}
