package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/globaltrack/go-logistics-client/internal/api"
	"github.com/globaltrack/go-logistics-client/internal/policy"
	"github.com/globaltrack/go-logistics-client/internal/redisx"
	"github.com/globaltrack/go-logistics-client/internal/shipment"
)

// Handler serves the development shipment/auth API. Redis is optional;
// when present, public tracking lookups are cached under a short TTL.
type Handler struct {
	State *State
	Redis *redis.Client
}

func (h *Handler) Register(r *chi.Mux) {
	h.RegisterAuth(r)
	h.RegisterProducts(r)
	r.Get("/shipments", h.listShipments)
	r.Post("/shipments", h.createShipment)
	r.Patch("/shipments/{id}", h.patchShipment)
	r.Delete("/shipments/{id}", h.deleteShipment)
	r.Get("/shipments/track/{code}", h.track)
}

// shipmentJSON is the legacy wire shape the browser drafts grew up with
// (tracking, payment_status, bare weight). The client normalizes it.
type shipmentJSON struct {
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
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

func toJSON(s shipment.Shipment) shipmentJSON {
	return shipmentJSON{
		ID:            s.ID,
		Tracking:      s.TrackingCode,
		Origin:        s.Origin,
		Destination:   s.Destination,
		Recipient:     s.Recipient,
		Weight:        s.WeightKg,
		Items:         s.Items,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		CustomerID:    s.CustomerID,
		DriverID:      s.DriverID,
		Notes:         s.Notes,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
	}
}

// caller resolves the bearer token; writes the 401 itself when absent.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (shipment.User, bool) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if tok == "" || tok == r.Header.Get("Authorization") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		return shipment.User{}, false
	}
	h.State.mu.Lock()
	u, ok := h.State.userForToken(tok)
	h.State.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		return shipment.User{}, false
	}
	return u, true
}

func (h *Handler) listShipments(w http.ResponseWriter, r *http.Request) {
	u, ok := h.caller(w, r)
	if !ok {
		return
	}
	h.State.mu.Lock()
	defer h.State.mu.Unlock()
	out := make([]shipmentJSON, 0, len(h.State.shipments))
	for _, s := range h.State.shipments {
		if policy.CanView(u.Role, s, u.ID) {
			out = append(out, toJSON(s))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createShipment(w http.ResponseWriter, r *http.Request) {
	u, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in shipment.NewInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := shipment.ValidateNew(in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	h.State.mu.Lock()
	defer h.State.mu.Unlock()
	s := shipment.Shipment{
		ID:            h.State.nextShipID,
		TrackingCode:  h.State.newTracking(),
		Origin:        in.Origin,
		Destination:   in.Destination,
		Recipient:     in.Recipient,
		WeightKg:      in.WeightKg,
		Items:         in.Items,
		Status:        shipment.StatusPending,
		PaymentStatus: shipment.PaymentUnpaid,
		CustomerID:    u.ID,
		Notes:         in.Notes,
		CreatedAt:     time.Now().UTC(),
	}
	h.State.nextShipID++
	h.State.shipments = append(h.State.shipments, s)
	writeJSON(w, http.StatusCreated, toJSON(s))
}

type patchJSON struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"payment_status"`
	DriverID      *int    `json:"driver_id"`
	Notes         *string `json:"notes"`
}

func (h *Handler) patchShipment(w http.ResponseWriter, r *http.Request) {
	u, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad id"})
		return
	}
	var p patchJSON
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	h.State.mu.Lock()
	defer h.State.mu.Unlock()
	idx := -1
	for i := range h.State.shipments {
		if h.State.shipments[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "shipment not found"})
		return
	}
	s := &h.State.shipments[idx]

	// The server mirrors the client-side policy: a well-behaved client
	// never sees these rejections, a misbehaving one gets no further.
	deny := func(field string) bool {
		if !policy.CanMutate(u.Role, field, *s, u.ID) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden field: " + field})
			return true
		}
		return false
	}
	if p.Status != nil && deny(shipment.FieldStatus) {
		return
	}
	if p.PaymentStatus != nil && deny(shipment.FieldPaymentStatus) {
		return
	}
	if p.DriverID != nil && deny(shipment.FieldDriverID) {
		return
	}
	if p.Notes != nil && deny(shipment.FieldNotes) {
		return
	}

	if p.Status != nil {
		next := api.NormalizeStatus(*p.Status)
		if !shipment.ValidStatus(next) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
			return
		}
		if next != s.Status {
			if u.Role == shipment.RoleDriver && next == shipment.StatusDelivered && s.PaymentStatus != shipment.PaymentPaid {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "payment_required"})
				return
			}
			if !shipment.CanTransition(s.Status, next) {
				writeJSON(w, http.StatusConflict, map[string]string{"error": fmt.Sprintf("cannot move %s to %s", s.Status, next)})
				return
			}
			s.Status = next
		}
	}
	if p.PaymentStatus != nil {
		next := api.NormalizePayment(*p.PaymentStatus)
		if !shipment.ValidPayment(next) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown payment status"})
			return
		}
		s.PaymentStatus = next
	}
	if p.DriverID != nil {
		d := *p.DriverID
		s.DriverID = &d
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
	h.dropTrackCache(r.Context(), s.TrackingCode)
	writeJSON(w, http.StatusOK, toJSON(*s))
}

func (h *Handler) deleteShipment(w http.ResponseWriter, r *http.Request) {
	u, ok := h.caller(w, r)
	if !ok {
		return
	}
	if !policy.CanRemove(u.Role) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin only"})
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad id"})
		return
	}

	h.State.mu.Lock()
	defer h.State.mu.Unlock()
	for i := range h.State.shipments {
		if h.State.shipments[i].ID == id {
			h.dropTrackCache(r.Context(), h.State.shipments[i].TrackingCode)
			h.State.shipments = append(h.State.shipments[:i], h.State.shipments[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "shipment deleted"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "shipment not found"})
}

// track is the public lookup; poll-heavy, so results sit in redis for a
// short TTL when a cache is configured.
func (h *Handler) track(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing code"})
		return
	}

	if h.Redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		key := fmt.Sprintf(redisx.KeyTrack, code)
		if cached, err := h.Redis.Get(ctx, key).Result(); err == nil && cached != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(cached))
			return
		}
	}

	h.State.mu.Lock()
	var found *shipment.Shipment
	for i := range h.State.shipments {
		if strings.EqualFold(h.State.shipments[i].TrackingCode, code) {
			s := h.State.shipments[i]
			found = &s
			break
		}
	}
	h.State.mu.Unlock()

	if found == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "tracking code not found"})
		return
	}
	body := toJSON(*found)
	if h.Redis != nil {
		if b, err := json.Marshal(body); err == nil {
			key := fmt.Sprintf(redisx.KeyTrack, code)
			_ = h.Redis.Set(r.Context(), key, b, redisx.TTLTrack).Err()
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) dropTrackCache(ctx context.Context, code string) {
	if h.Redis == nil || code == "" {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyTrack, code)).Err()
}
