package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globaltrack/go-logistics-client/internal/api"
	"github.com/globaltrack/go-logistics-client/internal/auth"
	"github.com/globaltrack/go-logistics-client/internal/session"
	"github.com/globaltrack/go-logistics-client/internal/shipment"
	"github.com/globaltrack/go-logistics-client/internal/view"
)

func intptr(v int) *int { return &v }

// fakeShipment uses the legacy wire names so store tests also cover the
// normalization path end to end.
type fakeShipment struct {
	ID            int             `json:"id"`
	Tracking      string          `json:"tracking"`
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	Recipient     string          `json:"recipient"`
	Weight        float64         `json:"weight"`
	Items         []shipment.Item `json:"items"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	CustomerID    int             `json:"customer_id"`
	DriverID      *int            `json:"driver_id"`
	Notes         string          `json:"notes"`
	CreatedAt     string          `json:"created_at"`
}

type fakeAPI struct {
	mu           sync.Mutex
	shipments    []fakeShipment
	unauthorized bool
	failPatch    bool
	failDelete   bool
	patchCount   int
	deleteCount  int
	nextID       int

	// patchGate, when set before the server starts, runs at the top of
	// every PATCH so a test can stall the request mid-flight.
	patchGate func()
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPatch && f.patchGate != nil {
		f.patchGate()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	writeJSON := func(code int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(v)
	}

	if f.unauthorized {
		writeJSON(http.StatusUnauthorized, map[string]string{"error": "token expired"})
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/shipments":
		writeJSON(http.StatusOK, f.shipments)

	case r.Method == http.MethodPost && r.URL.Path == "/shipments":
		var in shipment.NewInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		if f.nextID == 0 {
			f.nextID = 100
		}
		fs := fakeShipment{
			ID: f.nextID, Tracking: "GLI-" + strconv.Itoa(f.nextID),
			Origin: in.Origin, Destination: in.Destination, Recipient: in.Recipient,
			Weight: in.WeightKg, Items: in.Items,
			Status: "Pending", PaymentStatus: "Unpaid", CustomerID: 3,
			CreatedAt: "2024-06-01T00:00:00Z",
		}
		f.nextID++
		f.shipments = append(f.shipments, fs)
		writeJSON(http.StatusCreated, fs)

	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/shipments/"):
		f.patchCount++
		if f.failPatch {
			writeJSON(http.StatusInternalServerError, map[string]string{"error": "boom"})
			return
		}
		id, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/shipments/"))
		var p struct {
			Status        *string `json:"status"`
			PaymentStatus *string `json:"payment_status"`
			DriverID      *int    `json:"driver_id"`
			Notes         *string `json:"notes"`
		}
		_ = json.NewDecoder(r.Body).Decode(&p)
		for i := range f.shipments {
			if f.shipments[i].ID == id {
				if p.Status != nil {
					f.shipments[i].Status = *p.Status
				}
				if p.PaymentStatus != nil {
					f.shipments[i].PaymentStatus = *p.PaymentStatus
				}
				if p.DriverID != nil {
					f.shipments[i].DriverID = p.DriverID
				}
				if p.Notes != nil {
					f.shipments[i].Notes = *p.Notes
				}
				writeJSON(http.StatusOK, f.shipments[i])
				return
			}
		}
		writeJSON(http.StatusNotFound, map[string]string{"error": "not found"})

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/shipments/"):
		f.deleteCount++
		if f.failDelete {
			writeJSON(http.StatusInternalServerError, map[string]string{"error": "boom"})
			return
		}
		id, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/shipments/"))
		for i := range f.shipments {
			if f.shipments[i].ID == id {
				f.shipments = append(f.shipments[:i], f.shipments[i+1:]...)
				break
			}
		}
		writeJSON(http.StatusOK, map[string]string{"message": "deleted"})

	default:
		writeJSON(http.StatusNotFound, map[string]string{"error": "no route"})
	}
}

func (f *fakeAPI) setFailPatch(v bool) {
	f.mu.Lock()
	f.failPatch = v
	f.mu.Unlock()
}

func (f *fakeAPI) setFailDelete(v bool) {
	f.mu.Lock()
	f.failDelete = v
	f.mu.Unlock()
}

func (f *fakeAPI) counts() (patches, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.patchCount, f.deleteCount
}

func seedFake() *fakeAPI {
	return &fakeAPI{
		shipments: []fakeShipment{
			{ID: 1, Tracking: "GLI-000001", Origin: "Nairobi", Destination: "Mombasa", Recipient: "A", Weight: 1,
				Items: []shipment.Item{{ProductID: 1, Quantity: 1}}, Status: "Pending", PaymentStatus: "Unpaid",
				CustomerID: 3, DriverID: intptr(2), CreatedAt: "2023-01-01T00:00:00Z"},
			{ID: 2, Tracking: "GLI-000002", Origin: "Nairobi", Destination: "Kisumu", Recipient: "B", Weight: 2,
				Items: []shipment.Item{{ProductID: 2, Quantity: 2}}, Status: "In Transit", PaymentStatus: "Paid",
				CustomerID: 3, DriverID: intptr(2), CreatedAt: "2023-01-02T00:00:00Z"},
		},
	}
}

func newTestStore(t *testing.T, u shipment.User, f *fakeAPI) (*Store, *auth.Context) {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client := api.New(srv.URL)
	sessions := session.NewMemory()
	require.NoError(t, sessions.Save(session.Session{Token: "test-token", User: u}))
	identity := auth.NewContext(client, sessions)
	return New(client, identity), identity
}

var (
	adminUser    = shipment.User{ID: 9, Username: "Admin", Role: shipment.RoleAdmin}
	driverUser   = shipment.User{ID: 2, Username: "Driver", Role: shipment.RoleDriver}
	customerUser = shipment.User{ID: 3, Username: "Customer", Role: shipment.RoleCustomer}
)

func TestLoadReplacesCollection(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, adminUser, f)
	require.NoError(t, st.Load(context.Background()))
	require.Len(t, st.Snapshot(), 2)

	got, ok := st.Get(1)
	require.True(t, ok)
	assert.Equal(t, shipment.StatusPending, got.Status)
	assert.Equal(t, "GLI-000001", got.TrackingCode)

	f.mu.Lock()
	f.shipments = f.shipments[1:] // server dropped shipment 1
	f.mu.Unlock()

	require.NoError(t, st.Load(context.Background()))
	snap := st.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 2, snap[0].ID)
}

func TestCreateValidationFailsLocally(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, customerUser, f)

	_, err := st.Create(context.Background(), shipment.NewInput{
		Origin: "Nairobi", Destination: "Eldoret", Recipient: "C", WeightKg: 1,
	})
	var ve *shipment.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "items", ve.Field)

	_, err = st.Create(context.Background(), shipment.NewInput{
		Origin: "Nairobi", Destination: "Eldoret", Recipient: "C", WeightKg: -1,
		Items: []shipment.Item{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "weight_kg", ve.Field)
}

func TestCreateAppendsServerCopy(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, customerUser, f)
	require.NoError(t, st.Load(context.Background()))

	created, err := st.Create(context.Background(), shipment.NewInput{
		Origin: "Nairobi", Destination: "Eldoret", Recipient: "C", WeightKg: 4,
		Items: []shipment.Item{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 100, created.ID)
	assert.Equal(t, "GLI-100", created.TrackingCode)
	assert.Equal(t, shipment.StatusPending, created.Status)

	snap := st.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, 100, snap[2].ID)
}

func TestMutateRollbackOnWireFailure(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, adminUser, f)
	require.NoError(t, st.Load(context.Background()))

	before, _ := st.Get(1)
	f.setFailPatch(true)

	status := shipment.StatusProcessing
	_, err := st.Mutate(context.Background(), 1, shipment.Patch{Status: &status})
	var se *shipment.SyncError
	require.ErrorAs(t, err, &se)

	after, _ := st.Get(1)
	assert.Equal(t, before, after, "visible state equals pre-mutation snapshot")
}

func TestMutateIdempotentSameValue(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, adminUser, f)
	require.NoError(t, st.Load(context.Background()))

	status := shipment.StatusProcessing
	first, err := st.Mutate(context.Background(), 1, shipment.Patch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, shipment.StatusProcessing, first.Status)

	// Same patch again: same final state, and no second wire call.
	second, err := st.Mutate(context.Background(), 1, shipment.Patch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	patches, _ := f.counts()
	assert.Equal(t, 1, patches)
}

func TestMutateRejectsBadTransition(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, adminUser, f)
	require.NoError(t, st.Load(context.Background()))

	status := shipment.StatusDelivered
	_, err := st.Mutate(context.Background(), 1, shipment.Patch{Status: &status}) // Pending -> Delivered
	var pe *shipment.PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, shipment.ReasonBadTransition, pe.Reason)
	patches, _ := f.counts()
	assert.Equal(t, 0, patches, "rejected client-side, no network call")
}

func TestDriverPaymentGate(t *testing.T) {
	f := seedFake()
	f.shipments[1].PaymentStatus = "Unpaid" // shipment 2: In Transit, assigned to driver 2
	st, _ := newTestStore(t, driverUser, f)
	require.NoError(t, st.Load(context.Background()))

	before, _ := st.Get(2)
	status := shipment.StatusDelivered
	_, err := st.Mutate(context.Background(), 2, shipment.Patch{Status: &status})
	var pe *shipment.PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, shipment.ReasonPaymentRequired, pe.Reason)
	patches, _ := f.counts()
	assert.Equal(t, 0, patches)

	after, _ := st.Get(2)
	assert.Equal(t, before, after, "local state unchanged")
}

func TestDriverDeliversPaidShipment(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, driverUser, f)
	require.NoError(t, st.Load(context.Background()))

	status := shipment.StatusDelivered
	got, err := st.Mutate(context.Background(), 2, shipment.Patch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, shipment.StatusDelivered, got.Status)

	p := view.ForDriver(st.Snapshot(), driverUser.ID)
	assert.Equal(t, 1, p.Stats.CompletedCount)
}

func TestAdminOverridesPaymentGate(t *testing.T) {
	f := seedFake()
	f.shipments[1].PaymentStatus = "Unpaid"
	st, _ := newTestStore(t, adminUser, f)
	require.NoError(t, st.Load(context.Background()))

	status := shipment.StatusDelivered
	got, err := st.Mutate(context.Background(), 2, shipment.Patch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, shipment.StatusDelivered, got.Status)
}

func TestCustomerCannotMutate(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, customerUser, f)
	require.NoError(t, st.Load(context.Background()))

	status := shipment.StatusCancelled
	_, err := st.Mutate(context.Background(), 1, shipment.Patch{Status: &status})
	var pe *shipment.PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, shipment.ReasonForbiddenField, pe.Reason)
}

func TestDriverCannotTouchPayment(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, driverUser, f)
	require.NoError(t, st.Load(context.Background()))

	pay := shipment.PaymentPaid
	_, err := st.Mutate(context.Background(), 1, shipment.Patch{PaymentStatus: &pay})
	var pe *shipment.PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, shipment.FieldPaymentStatus, pe.Field)
}

func TestMutateUnknownID(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, adminUser, f)
	require.NoError(t, st.Load(context.Background()))

	status := shipment.StatusProcessing
	_, err := st.Mutate(context.Background(), 42, shipment.Patch{Status: &status})
	var nf *shipment.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 42, nf.ID)
}

func TestHeldRecordSurvivesRefresh(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, adminUser, f)
	require.NoError(t, st.Load(context.Background()))
	require.NoError(t, st.Hold(1))

	f.mu.Lock()
	f.shipments[0].Status = "Cancelled"
	f.mu.Unlock()

	require.NoError(t, st.Load(context.Background()))
	got, _ := st.Get(1)
	assert.Equal(t, shipment.StatusPending, got.Status, "poll must not clobber an open edit")

	st.Release(1)
	require.NoError(t, st.Load(context.Background()))
	got, _ = st.Get(1)
	assert.Equal(t, shipment.StatusCancelled, got.Status)
}

func TestHeldRecordNotDroppedByRefresh(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, adminUser, f)
	require.NoError(t, st.Load(context.Background()))
	require.NoError(t, st.Hold(2))

	f.mu.Lock()
	f.shipments = f.shipments[:1] // server no longer returns shipment 2
	f.mu.Unlock()

	require.NoError(t, st.Load(context.Background()))
	_, ok := st.Get(2)
	assert.True(t, ok, "held record survives until the edit settles")
}

func TestRemoveAdminOnly(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, driverUser, f)
	require.NoError(t, st.Load(context.Background()))

	err := st.Remove(context.Background(), 1)
	var pe *shipment.PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, shipment.ReasonAdminOnly, pe.Reason)
	_, deletes := f.counts()
	assert.Equal(t, 0, deletes)
}

func TestRemoveRejectedWhileEditOpen(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, adminUser, f)
	require.NoError(t, st.Load(context.Background()))
	require.NoError(t, st.Hold(1))

	err := st.Remove(context.Background(), 1)
	var pe *shipment.PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, shipment.ReasonEditInProgress, pe.Reason)
	_, deletes := f.counts()
	assert.Equal(t, 0, deletes, "rejected before any network call")
	_, ok := st.Get(1)
	assert.True(t, ok, "record stays in the collection")

	st.Release(1)
	require.NoError(t, st.Remove(context.Background(), 1))
}

func TestRemoveRollbackRestoresPosition(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, adminUser, f)
	require.NoError(t, st.Load(context.Background()))

	f.setFailDelete(true)
	err := st.Remove(context.Background(), 1)
	var se *shipment.SyncError
	require.ErrorAs(t, err, &se)

	snap := st.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, 1, snap[0].ID, "restored at original position")
	assert.Equal(t, 2, snap[1].ID)
}

func TestRemoveSucceeds(t *testing.T) {
	f := seedFake()
	st, _ := newTestStore(t, adminUser, f)
	require.NoError(t, st.Load(context.Background()))

	require.NoError(t, st.Remove(context.Background(), 1))
	snap := st.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 2, snap[0].ID)
}

func TestUnauthorizedForcesLogoutAndReset(t *testing.T) {
	f := seedFake()
	st, identity := newTestStore(t, adminUser, f)
	require.NoError(t, st.Load(context.Background()))
	require.Len(t, st.Snapshot(), 2)

	f.mu.Lock()
	f.unauthorized = true
	f.mu.Unlock()

	err := st.Load(context.Background())
	var ae *shipment.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, shipment.ReasonSessionExpired, ae.Reason)

	assert.Nil(t, identity.CurrentUser())
	assert.Empty(t, st.Snapshot(), "store state discarded on session expiry")
}

func TestPollShutdownLeavesMutationInFlight(t *testing.T) {
	f := seedFake()
	entered := make(chan struct{})
	release := make(chan struct{})
	f.patchGate = func() {
		close(entered)
		<-release
	}
	st, _ := newTestStore(t, adminUser, f)
	require.NoError(t, st.Load(context.Background()))

	pollCtx, stopPolling := context.WithCancel(context.Background())
	st.StartPolling(pollCtx, time.Hour, nil)

	done := make(chan error, 1)
	go func() {
		status := shipment.StatusProcessing
		_, err := st.Mutate(context.Background(), 1, shipment.Patch{Status: &status})
		done <- err
	}()

	// Stop the poller while the save is stalled on the wire; the save
	// carries its own context and must still land.
	<-entered
	stopPolling()
	close(release)

	require.NoError(t, <-done)
	got, ok := st.Get(1)
	require.True(t, ok)
	assert.Equal(t, shipment.StatusProcessing, got.Status)
}

func TestMutateRequiresIdentity(t *testing.T) {
	f := seedFake()
	st, identity := newTestStore(t, adminUser, f)
	require.NoError(t, st.Load(context.Background()))
	identity.Logout()

	status := shipment.StatusProcessing
	_, err := st.Mutate(context.Background(), 1, shipment.Patch{Status: &status})
	var ae *shipment.AuthError
	require.ErrorAs(t, err, &ae)
}
