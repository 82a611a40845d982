package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/globaltrack/go-logistics-client/internal/policy"
	"github.com/globaltrack/go-logistics-client/internal/shipment"
)

// Product catalog routes: any signed-in user may list, managing entries
// is admin-only, and SKUs are unique.

func (h *Handler) RegisterProducts(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Put("/products/{id}", h.updateProduct)
	r.Delete("/products/{id}", h.deleteProduct)
}

// admin resolves the bearer and rejects non-admin callers.
func (h *Handler) admin(w http.ResponseWriter, r *http.Request) (shipment.User, bool) {
	u, ok := h.caller(w, r)
	if !ok {
		return shipment.User{}, false
	}
	if !policy.CanManageCatalog(u.Role) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin only"})
		return shipment.User{}, false
	}
	return u, true
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.caller(w, r); !ok {
		return
	}
	h.State.mu.Lock()
	defer h.State.mu.Unlock()
	out := make([]shipment.Product, len(h.State.products))
	copy(out, h.State.products)
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.admin(w, r); !ok {
		return
	}
	var in shipment.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := shipment.ValidateProduct(in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	h.State.mu.Lock()
	defer h.State.mu.Unlock()
	if h.State.findProductBySKU(in.SKU) != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "SKU already exists"})
		return
	}
	p := shipment.Product{
		ID:       h.State.nextProductID,
		SKU:      in.SKU,
		Name:     in.Name,
		Category: in.Category,
		Price:    in.Price,
		Quantity: in.Quantity,
	}
	h.State.nextProductID++
	h.State.products = append(h.State.products, p)
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.admin(w, r); !ok {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad id"})
		return
	}
	var p shipment.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	h.State.mu.Lock()
	defer h.State.mu.Unlock()
	idx := -1
	for i := range h.State.products {
		if h.State.products[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	prod := &h.State.products[idx]

	if p.SKU != nil && *p.SKU != prod.SKU {
		if h.State.findProductBySKU(*p.SKU) != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "SKU already exists"})
			return
		}
		prod.SKU = *p.SKU
	}
	if p.Name != nil && *p.Name != "" {
		prod.Name = *p.Name
	}
	if p.Quantity != nil {
		if *p.Quantity < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be >= 0"})
			return
		}
		prod.Quantity = *p.Quantity
	}
	writeJSON(w, http.StatusOK, *prod)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.admin(w, r); !ok {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad id"})
		return
	}

	h.State.mu.Lock()
	defer h.State.mu.Unlock()
	for i := range h.State.products {
		if h.State.products[i].ID == id {
			h.State.products = append(h.State.products[:i], h.State.products[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
}
