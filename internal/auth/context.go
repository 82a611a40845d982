package auth

import (
	"context"
	"sync"

	"github.com/globaltrack/go-logistics-client/internal/api"
	"github.com/globaltrack/go-logistics-client/internal/session"
	"github.com/globaltrack/go-logistics-client/internal/shipment"
)

// Context is the single source of identity. Components never read role
// from ambient storage; they hold a *Context and ask it.
type Context struct {
	client   *api.Client
	sessions session.Store

	mu      sync.Mutex
	current *shipment.User
	subs    []func(*shipment.User)
}

// NewContext restores any stored session and registers the forced-logout
// hook: a 401 on any authenticated call invalidates the whole session.
func NewContext(client *api.Client, sessions session.Store) *Context {
	c := &Context{client: client, sessions: sessions}
	if s, err := sessions.Load(); err == nil {
		u := s.User
		c.current = &u
		client.SetToken(s.Token)
	}
	client.OnUnauthorized(c.Invalidate)
	return c
}

func (c *Context) Login(ctx context.Context, email, password string) (shipment.User, error) {
	resp, err := c.client.Login(ctx, email, password)
	if err != nil {
		return shipment.User{}, err
	}
	c.client.SetToken(resp.AccessToken)
	_ = c.sessions.Save(session.Session{Token: resp.AccessToken, User: resp.User})

	c.mu.Lock()
	u := resp.User
	c.current = &u
	c.mu.Unlock()

	c.notify()
	return resp.User, nil
}

func (c *Context) Logout() {
	c.client.SetToken("")
	_ = c.sessions.Clear()

	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()

	c.notify()
}

// Invalidate is Logout triggered by the server (expired/invalid token).
func (c *Context) Invalidate() { c.Logout() }

// CurrentUser returns a copy of the logged-in user, or nil.
func (c *Context) CurrentUser() *shipment.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	u := *c.current
	return &u
}

// Subscribe registers an identity observer; it fires on login and logout
// with the new user (nil when logged out). Projections derived for the
// old role must be discarded on that signal.
func (c *Context) Subscribe(fn func(*shipment.User)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

func (c *Context) notify() {
	c.mu.Lock()
	subs := make([]func(*shipment.User), len(c.subs))
	copy(subs, c.subs)
	u := c.current
	c.mu.Unlock()
	for _, fn := range subs {
		fn(u)
	}
}

func (c *Context) Register(ctx context.Context, in api.RegisterInput) (shipment.User, error) {
	return c.client.Register(ctx, in)
}

func (c *Context) ForgotPassword(ctx context.Context, email string) error {
	return c.client.ForgotPassword(ctx, email)
}

func (c *Context) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return c.client.ResetPassword(ctx, email, code, newPassword)
}
