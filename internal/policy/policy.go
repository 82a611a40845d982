package policy

import "github.com/globaltrack/go-logistics-client/internal/shipment"

// Pure role checks. The single source of truth for what each role may see
// and touch; handlers and the store read verdicts from here, nothing else
// branches on role.

func CanView(role shipment.Role, s shipment.Shipment, userID int) bool {
	switch role {
	case shipment.RoleAdmin:
		return true
	case shipment.RoleDriver:
		return s.DriverID != nil && *s.DriverID == userID
	case shipment.RoleCustomer:
		return s.CustomerID == userID
	}
	return false
}

// CanMutate is field-level only; the driver payment gate on Delivered is
// enforced where the patch is applied (see store.Mutate).
func CanMutate(role shipment.Role, field string, s shipment.Shipment, userID int) bool {
	switch role {
	case shipment.RoleAdmin:
		switch field {
		case shipment.FieldStatus, shipment.FieldPaymentStatus, shipment.FieldDriverID, shipment.FieldNotes:
			return true
		}
		return false
	case shipment.RoleDriver:
		if !CanView(role, s, userID) {
			return false
		}
		return field == shipment.FieldStatus
	case shipment.RoleCustomer:
		// Read-only once created; self-service cancel is out of scope.
		return false
	}
	return false
}

func CanRemove(role shipment.Role) bool {
	return role == shipment.RoleAdmin
}

// CanManageCatalog gates product create/update/delete; every signed-in
// role may list the catalog.
func CanManageCatalog(role shipment.Role) bool {
	return role == shipment.RoleAdmin
}
