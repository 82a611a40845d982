package httpx

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/globaltrack/go-logistics-client/internal/shipment"
)

// State is the in-memory backing for the development API: the Go
// counterpart of the localStorage fixtures the browser drafts fell back
// to when no backend was running. Nothing here is durable.
type State struct {
	mu sync.Mutex

	users         []userRec
	shipments     []shipment.Shipment
	products      []shipment.Product
	tokens        map[string]int // bearer -> user id
	nextUserID    int
	nextShipID    int
	nextProductID int
}

type userRec struct {
	shipment.User
	passwordHash []byte
	resetCode    string
	resetExpiry  time.Time
}

func intptr(v int) *int { return &v }

// SeedDefaults loads the stock demo accounts (password "pass123") and
// three shipments, matching the fixtures every draft shipped with.
func (st *State) SeedDefaults() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.tokens == nil {
		st.tokens = map[string]int{}
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte("pass123"), bcrypt.DefaultCost)
	st.users = []userRec{
		{User: shipment.User{ID: 1, Username: "Admin", Email: "admin@global.com", Role: shipment.RoleAdmin}, passwordHash: hash},
		{User: shipment.User{ID: 2, Username: "Driver", Email: "driver@global.com", Role: shipment.RoleDriver}, passwordHash: hash},
		{User: shipment.User{ID: 3, Username: "Customer", Email: "customer@global.com", Role: shipment.RoleCustomer}, passwordHash: hash},
	}
	st.nextUserID = 4
	st.shipments = []shipment.Shipment{
		{
			ID: 1, TrackingCode: "GLI-000001", Origin: "Nairobi", Destination: "Nairobi",
			Recipient: "J. Otieno", WeightKg: 4.5,
			Items:  []shipment.Item{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}},
			Status: shipment.StatusDelivered, PaymentStatus: shipment.PaymentPaid,
			CustomerID: 3, DriverID: intptr(2),
			CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: 2, TrackingCode: "GLI-000002", Origin: "Nairobi", Destination: "Mombasa",
			Recipient: "A. Wanjiru", WeightKg: 1.2,
			Items:  []shipment.Item{{ProductID: 1, Quantity: 1}},
			Status: shipment.StatusInTransit, PaymentStatus: shipment.PaymentUnpaid,
			CustomerID: 3, DriverID: intptr(2),
			CreatedAt: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: 3, TrackingCode: "GLI-000003", Origin: "Nairobi", Destination: "Kisumu",
			Recipient: "M. Kamau", WeightKg: 9.0,
			Items:  []shipment.Item{{ProductID: 3, Quantity: 3}},
			Status: shipment.StatusPending, PaymentStatus: shipment.PaymentPaid,
			CustomerID: 3,
			CreatedAt:  time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC),
		},
	}
	st.nextShipID = 4
	st.products = []shipment.Product{
		{ID: 1, SKU: "GT-LAP-001", Name: "Laptop", Category: "Electronics", Price: 1200, Quantity: 10},
		{ID: 2, SKU: "GT-PHN-001", Name: "Phone", Category: "Electronics", Price: 800, Quantity: 25},
		{ID: 3, SKU: "GT-HDP-001", Name: "Headphones", Category: "Accessories", Price: 150, Quantity: 40},
	}
	st.nextProductID = 4
}

func (st *State) findProductBySKU(sku string) *shipment.Product {
	for i := range st.products {
		if st.products[i].SKU == sku {
			return &st.products[i]
		}
	}
	return nil
}

func (st *State) findUserByEmail(email string) *userRec {
	for i := range st.users {
		if st.users[i].Email == email {
			return &st.users[i]
		}
	}
	return nil
}

func (st *State) issueToken(userID int) string {
	t := uuid.NewString()
	st.tokens[t] = userID
	return t
}

func (st *State) userForToken(tok string) (shipment.User, bool) {
	id, ok := st.tokens[tok]
	if !ok {
		return shipment.User{}, false
	}
	for _, u := range st.users {
		if u.ID == id {
			return u.User, true
		}
	}
	return shipment.User{}, false
}

func (st *State) revokeTokens(userID int) {
	for t, id := range st.tokens {
		if id == userID {
			delete(st.tokens, t)
		}
	}
}

func (st *State) newTracking() string {
	return fmt.Sprintf("GLI-%06d", st.nextShipID)
}
