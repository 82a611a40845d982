package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/globaltrack/go-logistics-client/internal/shipment"
)

// Client talks to the shipment/auth API. It owns the bearer token and
// reports any 401 through the registered callback so the identity layer
// can force a logout.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	mu             sync.Mutex
	token          string
	onUnauthorized func()
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) SetToken(t string) {
	c.mu.Lock()
	c.token = t
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// OnUnauthorized registers the forced-logout hook; it fires once per 401
// response on an authenticated call.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errUnauthorized marks a 401 on an unauthenticated call. Only Login
// turns it into a bad-credentials error; everywhere else it surfaces
// as a plain failure.
var errUnauthorized = errors.New("unauthorized")

func (c *Client) do(ctx context.Context, method, path string, in, out any, authed bool) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		if t := c.Token(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if authed {
			c.mu.Lock()
			fn := c.onUnauthorized
			c.mu.Unlock()
			if fn != nil {
				fn()
			}
			return &shipment.AuthError{Reason: shipment.ReasonSessionExpired}
		}
		var ae apiError
		_ = json.NewDecoder(resp.Body).Decode(&ae)
		msg := firstNonEmpty(ae.Error, ae.Message, resp.Status)
		return fmt.Errorf("%s %s: %s: %w", method, path, msg, errUnauthorized)
	}
	if resp.StatusCode >= 400 {
		var ae apiError
		_ = json.NewDecoder(resp.Body).Decode(&ae)
		msg := firstNonEmpty(ae.Error, ae.Message, resp.Status)
		return fmt.Errorf("%s %s: %s", method, path, msg)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	User        shipment.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	in := map[string]string{"email": email, "password": password}
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &out, false); err != nil {
		// A 401 here means the credentials were wrong, not that a
		// session expired.
		if errors.Is(err, errUnauthorized) {
			return LoginResponse{}, &shipment.AuthError{Reason: shipment.ReasonInvalidCredentials}
		}
		return LoginResponse{}, err
	}
	return out, nil
}

type RegisterInput struct {
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Role     shipment.Role `json:"role"`
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (shipment.User, error) {
	var out struct {
		User shipment.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &out, false); err != nil {
		return shipment.User{}, err
	}
	return out.User, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, nil, false)
}

func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	in := map[string]string{"email": email, "code": code, "new_password": newPassword}
	return c.do(ctx, http.MethodPost, "/auth/reset-password", in, nil, false)
}

// ListShipments returns the role-filtered list for the current bearer.
func (c *Client) ListShipments(ctx context.Context) ([]shipment.Shipment, error) {
	var wires []shipmentWire
	if err := c.do(ctx, http.MethodGet, "/shipments", nil, &wires, true); err != nil {
		return nil, err
	}
	out := make([]shipment.Shipment, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.normalize())
	}
	return out, nil
}

func (c *Client) CreateShipment(ctx context.Context, in shipment.NewInput) (shipment.Shipment, error) {
	var w shipmentWire
	if err := c.do(ctx, http.MethodPost, "/shipments", in, &w, true); err != nil {
		return shipment.Shipment{}, err
	}
	return w.normalize(), nil
}

func (c *Client) PatchShipment(ctx context.Context, id int, p shipment.Patch) (shipment.Shipment, error) {
	var w shipmentWire
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/shipments/%d", id), p, &w, true); err != nil {
		return shipment.Shipment{}, err
	}
	return w.normalize(), nil
}

func (c *Client) DeleteShipment(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/shipments/%d", id), nil, nil, true)
}

// Track is the public lookup by tracking code; no bearer required.
func (c *Client) Track(ctx context.Context, code string) (shipment.Shipment, error) {
	var w shipmentWire
	if err := c.do(ctx, http.MethodGet, "/shipments/track/"+code, nil, &w, false); err != nil {
		return shipment.Shipment{}, err
	}
	return w.normalize(), nil
}

// ListProducts returns the catalog shipment items reference by product id.
func (c *Client) ListProducts(ctx context.Context) ([]shipment.Product, error) {
	var out []shipment.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProduct(ctx context.Context, in shipment.ProductInput) (shipment.Product, error) {
	var out shipment.Product
	if err := c.do(ctx, http.MethodPost, "/products", in, &out, true); err != nil {
		return shipment.Product{}, err
	}
	return out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int, p shipment.ProductPatch) (shipment.Product, error) {
	var out shipment.Product
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/products/%d", id), p, &out, true); err != nil {
		return shipment.Product{}, err
	}
	return out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil, nil, true)
}
