package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/globaltrack/go-logistics-client/internal/shipment"
)

// Session is the bearer credential plus the serialized user record, the
// way the browser drafts kept token+user in session storage.
type Session struct {
	Token string        `json:"token"`
	User  shipment.User `json:"user"`
}

var ErrNoSession = errors.New("no stored session")

type Store interface {
	Save(Session) error
	Load() (Session, error)
	Clear() error
}

type Memory struct {
	mu   sync.Mutex
	s    Session
	have bool
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s, m.have = s, true
	return nil
}

func (m *Memory) Load() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.have {
		return Session{}, ErrNoSession
	}
	return m.s, nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s, m.have = Session{}, false
	return nil
}

// File persists the session as JSON so a restarted console picks up the
// previous login, like the browser surviving a reload.
type File struct {
	Path string
}

func (f *File) Save(s Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, b, 0o600)
}

func (f *File) Load() (Session, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, err
	}
	if s.Token == "" {
		return Session{}, ErrNoSession
	}
	return s, nil
}

func (f *File) Clear() error {
	err := os.Remove(f.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
