package shipment

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
	RoleDriver   Role = "driver"
)

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

type Item struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type Shipment struct {
	ID            int           `json:"id"`
	TrackingCode  string        `json:"tracking_code"`
	Origin        string        `json:"origin"`
	Destination   string        `json:"destination"`
	Recipient     string        `json:"recipient"`
	WeightKg      float64       `json:"weight_kg"`
	Items         []Item        `json:"items"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CustomerID    int           `json:"customer_id"`
	DriverID      *int          `json:"driver_id,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Clone returns a deep copy so optimistic snapshots never alias live slices.
func (s Shipment) Clone() Shipment {
	out := s
	if s.Items != nil {
		out.Items = make([]Item, len(s.Items))
		copy(out.Items, s.Items)
	}
	if s.DriverID != nil {
		d := *s.DriverID
		out.DriverID = &d
	}
	return out
}

// NewInput is what a customer submits when creating a shipment.
type NewInput struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Recipient   string  `json:"recipient"`
	WeightKg    float64 `json:"weight_kg"`
	Items       []Item  `json:"items"`
	Notes       string  `json:"notes,omitempty"`
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Status        *Status        `json:"status,omitempty"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	DriverID      *int           `json:"driver_id,omitempty"`
	Notes         *string        `json:"notes,omitempty"`
}

// Fields lists the patch fields that are actually set, using wire names.
func (p Patch) Fields() []string {
	var out []string
	if p.Status != nil {
		out = append(out, FieldStatus)
	}
	if p.PaymentStatus != nil {
		out = append(out, FieldPaymentStatus)
	}
	if p.DriverID != nil {
		out = append(out, FieldDriverID)
	}
	if p.Notes != nil {
		out = append(out, FieldNotes)
	}
	return out
}

const (
	FieldStatus        = "status"
	FieldPaymentStatus = "payment_status"
	FieldDriverID      = "driver_id"
	FieldNotes         = "notes"
)
