package view

import (
	"github.com/globaltrack/go-logistics-client/internal/policy"
	"github.com/globaltrack/go-logistics-client/internal/shipment"
)

// Pure derivations over a store snapshot. Order-stable (snapshot order is
// store insertion order) and side-effect free; recomputed on every store
// change by whoever renders them.

type Stats struct {
	Total          int
	ByStatus       map[shipment.Status]int
	ByPayment      map[shipment.PaymentStatus]int
	PendingCount   int
	InTransitCount int
	CompletedCount int
	UnpaidCount    int
}

type Projection struct {
	Shipments []shipment.Shipment
	Stats     Stats
}

func ForAdmin(snap []shipment.Shipment) Projection {
	return project(snap, shipment.RoleAdmin, 0)
}

func ForDriver(snap []shipment.Shipment, userID int) Projection {
	return project(snap, shipment.RoleDriver, userID)
}

func ForCustomer(snap []shipment.Shipment, userID int) Projection {
	return project(snap, shipment.RoleCustomer, userID)
}

// For dispatches on role; handy when the caller holds the identity.
func For(u shipment.User, snap []shipment.Shipment) Projection {
	return project(snap, u.Role, u.ID)
}

func project(snap []shipment.Shipment, role shipment.Role, userID int) Projection {
	p := Projection{
		Stats: Stats{
			ByStatus:  map[shipment.Status]int{},
			ByPayment: map[shipment.PaymentStatus]int{},
		},
	}
	for _, s := range snap {
		if !policy.CanView(role, s, userID) {
			continue
		}
		p.Shipments = append(p.Shipments, s)
		p.Stats.Total++
		p.Stats.ByStatus[s.Status]++
		p.Stats.ByPayment[s.PaymentStatus]++
	}
	p.Stats.PendingCount = p.Stats.ByStatus[shipment.StatusPending]
	p.Stats.InTransitCount = p.Stats.ByStatus[shipment.StatusInTransit]
	p.Stats.CompletedCount = p.Stats.ByStatus[shipment.StatusDelivered]
	p.Stats.UnpaidCount = p.Stats.ByPayment[shipment.PaymentUnpaid]
	return p
}
