package shipment

import "strings"

// Product is a catalog entry; shipment Items point at one by id.
type Product struct {
	ID       int     `json:"id"`
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// ProductInput is an admin create request.
type ProductInput struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// ProductPatch is a partial update; nil fields are left untouched.
type ProductPatch struct {
	SKU      *string `json:"sku,omitempty"`
	Name     *string `json:"name,omitempty"`
	Quantity *int    `json:"quantity,omitempty"`
}

// ValidateProduct checks a catalog create request.
func ValidateProduct(in ProductInput) error {
	if strings.TrimSpace(in.SKU) == "" {
		return &ValidationError{Field: "sku", Msg: "required"}
	}
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Msg: "required"}
	}
	if in.Price < 0 {
		return &ValidationError{Field: "price", Msg: "must be >= 0"}
	}
	if in.Quantity < 0 {
		return &ValidationError{Field: "quantity", Msg: "must be >= 0"}
	}
	return nil
}
