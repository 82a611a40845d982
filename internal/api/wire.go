package api

import (
	"strings"
	"time"

	"github.com/globaltrack/go-logistics-client/internal/shipment"
)

// The backends behind the various drafts disagree on field names
// (tracking vs tracking_number vs tracking_id, payment vs payment_status,
// bare weight vs weight_kg). Everything is decoded here into one wire
// struct and normalized once; nothing downstream branches on shape.

type itemWire struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type shipmentWire struct {
	ID                  int        `json:"id"`
	Tracking            string     `json:"tracking"`
	TrackingCode        string     `json:"tracking_code"`
	TrackingNumber      string     `json:"tracking_number"`
	TrackingID          string     `json:"tracking_id"`
	Origin              string     `json:"origin"`
	OriginLocation      string     `json:"origin_location"`
	Destination         string     `json:"destination"`
	DestinationLocation string     `json:"destination_location"`
	Recipient           string     `json:"recipient"`
	RecipientName       string     `json:"recipient_name"`
	Weight              float64    `json:"weight"`
	WeightKg            float64    `json:"weight_kg"`
	Items               []itemWire `json:"items"`
	Status              string     `json:"status"`
	Payment             string     `json:"payment"`
	PaymentStatus       string     `json:"payment_status"`
	CustomerID          int        `json:"customer_id"`
	DriverID            *int       `json:"driver_id"`
	Notes               string     `json:"notes"`
	CreatedAt           string     `json:"created_at"`
}

func (w shipmentWire) normalize() shipment.Shipment {
	s := shipment.Shipment{
		ID:            w.ID,
		TrackingCode:  firstNonEmpty(w.TrackingCode, w.Tracking, w.TrackingNumber, w.TrackingID),
		Origin:        firstNonEmpty(w.Origin, w.OriginLocation),
		Destination:   firstNonEmpty(w.Destination, w.DestinationLocation),
		Recipient:     firstNonEmpty(w.Recipient, w.RecipientName),
		WeightKg:      w.WeightKg,
		Status:        NormalizeStatus(w.Status),
		PaymentStatus: NormalizePayment(firstNonEmpty(w.PaymentStatus, w.Payment)),
		CustomerID:    w.CustomerID,
		DriverID:      w.DriverID,
		Notes:         w.Notes,
	}
	if s.WeightKg == 0 {
		s.WeightKg = w.Weight
	}
	for _, it := range w.Items {
		s.Items = append(s.Items, shipment.Item{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	if t, err := time.Parse(time.RFC3339, w.CreatedAt); err == nil {
		s.CreatedAt = t
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func canon(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, " ", "")
}

// NormalizeStatus folds the spellings seen in the wild ("In Transit",
// "in_transit", "InTransit") into the canonical enum. Unknown values
// pass through so the store can reject them explicitly.
func NormalizeStatus(raw string) shipment.Status {
	switch canon(raw) {
	case "pending":
		return shipment.StatusPending
	case "processing":
		return shipment.StatusProcessing
	case "intransit":
		return shipment.StatusInTransit
	case "delivered":
		return shipment.StatusDelivered
	case "cancelled", "canceled":
		return shipment.StatusCancelled
	}
	return shipment.Status(raw)
}

func NormalizePayment(raw string) shipment.PaymentStatus {
	switch canon(raw) {
	case "unpaid":
		return shipment.PaymentUnpaid
	case "pending", "pendingrefund":
		return shipment.PaymentPending
	case "paid":
		return shipment.PaymentPaid
	}
	return shipment.PaymentStatus(raw)
}
