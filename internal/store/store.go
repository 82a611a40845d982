package store

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/globaltrack/go-logistics-client/internal/api"
	"github.com/globaltrack/go-logistics-client/internal/auth"
	"github.com/globaltrack/go-logistics-client/internal/policy"
	"github.com/globaltrack/go-logistics-client/internal/shipment"
)

// record is the per-shipment slot: the canonical local value, a version
// counter bumped on every local write, a held flag for open edit
// sessions, and the number of in-flight mutations. Load/poll results
// never overwrite a slot that is held or has an in-flight mutation.
type record struct {
	value    shipment.Shipment
	version  uint64
	held     bool
	inflight int
}

// Store owns the canonical in-session shipment collection. All mutation
// goes through its methods; projections read Snapshot copies.
type Store struct {
	client   *api.Client
	identity *auth.Context

	mu    sync.Mutex
	recs  map[int]*record
	order []int
	subs  []func()

	group singleflight.Group
}

func New(client *api.Client, identity *auth.Context) *Store {
	s := &Store{
		client:   client,
		identity: identity,
		recs:     map[int]*record{},
	}
	// Session expiry or logout discards all local state.
	identity.Subscribe(func(u *shipment.User) {
		if u == nil {
			s.Reset()
		}
	})
	return s
}

func (s *Store) actor() (shipment.User, error) {
	u := s.identity.CurrentUser()
	if u == nil {
		return shipment.User{}, &shipment.AuthError{Reason: shipment.ReasonSessionExpired}
	}
	return *u, nil
}

// Load fetches the role-filtered list and replaces the local collection.
// Records with an open edit session or an in-flight mutation keep their
// local value; a stale poll result must not resurrect what the user is
// editing. Overlapping refreshes collapse into one API call.
func (s *Store) Load(ctx context.Context) error {
	_, err, _ := s.group.Do("load", func() (any, error) {
		list, err := s.client.ListShipments(ctx)
		if err != nil {
			return nil, err
		}
		s.applyLoad(list)
		return nil, nil
	})
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Store) applyLoad(list []shipment.Shipment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make(map[int]*record, len(list))
	order := make([]int, 0, len(list))
	for _, sp := range list {
		if old, ok := s.recs[sp.ID]; ok && (old.held || old.inflight > 0) {
			recs[sp.ID] = old
		} else {
			recs[sp.ID] = &record{value: sp}
		}
		order = append(order, sp.ID)
	}
	// Held or in-flight records missing from the response survive until
	// the edit settles.
	for _, id := range s.order {
		old := s.recs[id]
		if _, ok := recs[id]; !ok && old != nil && (old.held || old.inflight > 0) {
			recs[id] = old
			order = append(order, id)
		}
	}
	s.recs = recs
	s.order = order
}

// Create validates locally, then posts; the server assigns id and
// tracking code. ValidationError means no network call was issued.
func (s *Store) Create(ctx context.Context, in shipment.NewInput) (shipment.Shipment, error) {
	if _, err := s.actor(); err != nil {
		return shipment.Shipment{}, err
	}
	if err := shipment.ValidateNew(in); err != nil {
		return shipment.Shipment{}, err
	}

	created, err := s.client.CreateShipment(ctx, in)
	if err != nil {
		return shipment.Shipment{}, &shipment.SyncError{Op: "create", Err: err}
	}

	s.mu.Lock()
	if _, ok := s.recs[created.ID]; !ok {
		s.recs[created.ID] = &record{value: created}
		s.order = append(s.order, created.ID)
	}
	s.mu.Unlock()

	s.notify()
	return created, nil
}

// Mutate checks policy and transition guards locally, applies the patch
// optimistically, then sends it. On a wire failure the pre-patch
// snapshot is restored and a SyncError returned. Setting a field to its
// current value is a no-op (idempotent); a patch reduced to no-ops
// succeeds without touching the network.
func (s *Store) Mutate(ctx context.Context, id int, p shipment.Patch) (shipment.Shipment, error) {
	actor, err := s.actor()
	if err != nil {
		return shipment.Shipment{}, err
	}
	if err := shipment.ValidatePatch(p); err != nil {
		return shipment.Shipment{}, err
	}

	s.mu.Lock()
	rec, ok := s.recs[id]
	if !ok {
		s.mu.Unlock()
		return shipment.Shipment{}, &shipment.NotFoundError{ID: id}
	}

	for _, f := range p.Fields() {
		if !policy.CanMutate(actor.Role, f, rec.value, actor.ID) {
			s.mu.Unlock()
			return shipment.Shipment{}, &shipment.PolicyError{Reason: shipment.ReasonForbiddenField, Field: f}
		}
	}

	// Drop no-op fields so repeated saves of the same value stay cheap
	// and never trip the transition table.
	if p.Status != nil && *p.Status == rec.value.Status {
		p.Status = nil
	}
	if p.PaymentStatus != nil && *p.PaymentStatus == rec.value.PaymentStatus {
		p.PaymentStatus = nil
	}
	if p.DriverID != nil && rec.value.DriverID != nil && *p.DriverID == *rec.value.DriverID {
		p.DriverID = nil
	}
	if p.Notes != nil && *p.Notes == rec.value.Notes {
		p.Notes = nil
	}
	if len(p.Fields()) == 0 {
		out := rec.value.Clone()
		s.mu.Unlock()
		return out, nil
	}

	if p.Status != nil {
		if actor.Role == shipment.RoleDriver && *p.Status == shipment.StatusDelivered &&
			rec.value.PaymentStatus != shipment.PaymentPaid {
			s.mu.Unlock()
			return shipment.Shipment{}, &shipment.PolicyError{Reason: shipment.ReasonPaymentRequired, Field: shipment.FieldStatus}
		}
		if !shipment.CanTransition(rec.value.Status, *p.Status) {
			s.mu.Unlock()
			return shipment.Shipment{}, &shipment.PolicyError{Reason: shipment.ReasonBadTransition, Field: shipment.FieldStatus}
		}
	}

	snapshot := rec.value.Clone()
	applyPatch(&rec.value, p)
	rec.version++
	applied := rec.version
	rec.inflight++
	s.mu.Unlock()
	s.notify()

	updated, err := s.client.PatchShipment(ctx, id, p)

	s.mu.Lock()
	rec, ok = s.recs[id]
	if ok {
		rec.inflight--
	}
	if err != nil {
		// Roll back only if nothing newer was written meanwhile.
		if ok && rec.version == applied {
			rec.value = snapshot
			rec.version++
		}
		s.mu.Unlock()
		s.notify()
		return shipment.Shipment{}, &shipment.SyncError{Op: "patch", Err: err}
	}
	if ok && rec.version == applied {
		rec.value = updated
	}
	var out shipment.Shipment
	if ok {
		out = rec.value.Clone()
	} else {
		out = updated
	}
	s.mu.Unlock()
	s.notify()
	return out, nil
}

func applyPatch(sp *shipment.Shipment, p shipment.Patch) {
	if p.Status != nil {
		sp.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		sp.PaymentStatus = *p.PaymentStatus
	}
	if p.DriverID != nil {
		d := *p.DriverID
		sp.DriverID = &d
	}
	if p.Notes != nil {
		sp.Notes = *p.Notes
	}
}

// Remove is admin-only: optimistic removal from the active list, restored
// at its original position if the delete fails on the wire. A record with
// an open edit session or an in-flight mutation is not removable; the
// edit must settle first.
func (s *Store) Remove(ctx context.Context, id int) error {
	actor, err := s.actor()
	if err != nil {
		return err
	}
	if !policy.CanRemove(actor.Role) {
		return &shipment.PolicyError{Reason: shipment.ReasonAdminOnly}
	}

	s.mu.Lock()
	rec, ok := s.recs[id]
	if !ok {
		s.mu.Unlock()
		return &shipment.NotFoundError{ID: id}
	}
	if rec.held || rec.inflight > 0 {
		s.mu.Unlock()
		return &shipment.PolicyError{Reason: shipment.ReasonEditInProgress}
	}
	pos := indexOf(s.order, id)
	delete(s.recs, id)
	s.order = append(s.order[:pos], s.order[pos+1:]...)
	s.mu.Unlock()
	s.notify()

	if err := s.client.DeleteShipment(ctx, id); err != nil {
		s.mu.Lock()
		if _, exists := s.recs[id]; !exists {
			s.recs[id] = rec
			if pos > len(s.order) {
				pos = len(s.order)
			}
			s.order = append(s.order[:pos], append([]int{id}, s.order[pos:]...)...)
		}
		s.mu.Unlock()
		s.notify()
		return &shipment.SyncError{Op: "delete", Err: err}
	}
	return nil
}

func indexOf(ids []int, id int) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// Hold opens an edit session on a record: poll results leave it alone
// until Release.
func (s *Store) Hold(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return &shipment.NotFoundError{ID: id}
	}
	rec.held = true
	return nil
}

func (s *Store) Release(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.recs[id]; ok {
		rec.held = false
	}
}

// Get returns a copy of one shipment.
func (s *Store) Get(id int) (shipment.Shipment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return shipment.Shipment{}, false
	}
	return rec.value.Clone(), true
}

// Snapshot returns the collection in insertion order; callers own the copy.
func (s *Store) Snapshot() []shipment.Shipment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]shipment.Shipment, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.recs[id].value.Clone())
	}
	return out
}

// Reset drops everything (forced logout).
func (s *Store) Reset() {
	s.mu.Lock()
	s.recs = map[int]*record{}
	s.order = nil
	s.mu.Unlock()
	s.notify()
}

// Subscribe registers a change observer; fired after every visible write.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
