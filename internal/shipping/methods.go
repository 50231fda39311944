package shipping

import "errors"

var ErrUnknownMethod = errors.New("unknown shipping method")

// Method is immutable reference data, not user-owned.
type Method struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         int64  `json:"price"` // minor units
	EstimatedDays int    `json:"estimated_days"`
}

var methods = []Method{
	{ID: "standard", Name: "Standard Shipping", Description: "5-7 business days", Price: 599, EstimatedDays: 7},
	{ID: "express", Name: "Express Shipping", Description: "2-3 business days", Price: 1499, EstimatedDays: 3},
	{ID: "overnight", Name: "Overnight Shipping", Description: "Next business day", Price: 2999, EstimatedDays: 1},
}

func Methods() []Method {
	out := make([]Method, len(methods))
	copy(out, methods)
	return out
}

func Lookup(id string) (Method, error) {
	for _, m := range methods {
		if m.ID == id {
			return m, nil
		}
	}
	return Method{}, ErrUnknownMethod
}
