package ads

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Listing price type codes used by the ads API.
const (
	PriceTypeFixed    = 1
	PriceTypeFloating = 2
)

const (
	actionUpdateAd    = "updateAd"
	actionGetAdDetail = "getAdDetail"
)

// UpdateAdRequest carries either an absolute Price (fixed) or a
// PriceFloatingRatio (floating).
type UpdateAdRequest struct {
	AdvNo              string
	PriceType          int
	Price              *decimal.Decimal
	PriceFloatingRatio *decimal.Decimal
}

type AdDetail struct {
	AdvNo              string
	PriceType          int
	Price              decimal.Decimal
	PriceFloatingRatio decimal.Decimal
}

func (d AdDetail) IsFloating() bool {
	return d.PriceType == PriceTypeFloating
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

// RejectedError is returned when the API answers 2xx with success=false.
type RejectedError struct {
	Action  string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return e.Action + " rejected"
	}
	return e.Action + " rejected: " + e.Message
}
