package shipment

import "strings"

// ValidateNew checks a create request before any network call is made.
func ValidateNew(in NewInput) error {
	if strings.TrimSpace(in.Origin) == "" {
		return &ValidationError{Field: "origin", Msg: "required"}
	}
	if strings.TrimSpace(in.Destination) == "" {
		return &ValidationError{Field: "destination", Msg: "required"}
	}
	if strings.TrimSpace(in.Recipient) == "" {
		return &ValidationError{Field: "recipient", Msg: "required"}
	}
	if in.WeightKg <= 0 {
		return &ValidationError{Field: "weight_kg", Msg: "must be > 0"}
	}
	if len(in.Items) == 0 {
		return &ValidationError{Field: "items", Msg: "at least one item"}
	}
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return &ValidationError{Field: "items", Msg: "quantity must be >= 1"}
		}
	}
	return nil
}

// ValidatePatch rejects values outside the enums before policy checks run.
func ValidatePatch(p Patch) error {
	if p.Status != nil && !ValidStatus(*p.Status) {
		return &ValidationError{Field: FieldStatus, Msg: "unknown status"}
	}
	if p.PaymentStatus != nil && !ValidPayment(*p.PaymentStatus) {
		return &ValidationError{Field: FieldPaymentStatus, Msg: "unknown payment status"}
	}
	return nil
}
