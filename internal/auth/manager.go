package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oakmund/eventbook/internal/clock"
	"github.com/oakmund/eventbook/internal/domain"
	"github.com/oakmund/eventbook/internal/eventapi"
)

// loginAPI is the slice of the remote client the manager needs.
type loginAPI interface {
	Login(ctx context.Context, email, password string) (eventapi.LoginResult, error)
	Register(ctx context.Context, req eventapi.RegisterRequest) (string, error)
	SetToken(token string)
	ClearToken()
}

// userCache mirrors the known-users and current-user namespaces of the
// local fallback store.
type userCache interface {
	SaveUsers([]domain.User) error
	LoadUsers() ([]domain.User, error)
	SaveCurrentUser(domain.User) error
	ClearCurrentUser() error
}

// Manager owns the client's authentication state: the current user and
// role consumed by the calendar store, the encrypted session file, and
// the token handed to the remote client.
type Manager struct {
	api        loginAPI
	sessions   Store
	cache      userCache
	passphrase string
	clock      clock.Clock
	log        *slog.Logger

	mu      sync.RWMutex
	current *domain.User
	known   []domain.User
}

type ManagerOptions struct {
	API        loginAPI
	Sessions   Store
	Cache      userCache
	Passphrase string
	Clock      clock.Clock
	Logger     *slog.Logger
}

func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Manager{
		api:        opts.API,
		sessions:   opts.Sessions,
		cache:      opts.Cache,
		passphrase: opts.Passphrase,
		clock:      clk,
		log:        logger,
	}
}

// Restore loads a previously saved session, if any, and re-arms the
// remote client with its token.
func (m *Manager) Restore() error {
	session, err := m.sessions.Load(m.passphrase)
	if err != nil {
		return err
	}
	m.api.SetToken(session.AccessToken)
	m.mu.Lock()
	user := session.User
	m.current = &user
	m.mu.Unlock()
	if m.cache != nil {
		if known, err := m.cache.LoadUsers(); err == nil {
			m.mu.Lock()
			m.known = known
			m.mu.Unlock()
		}
	}
	return nil
}

// Login authenticates against the remote service, normalizes the user,
// derives the admin role from token claims when the payload omits it,
// and persists the session.
func (m *Manager) Login(ctx context.Context, email, password string) (domain.User, error) {
	res, err := m.api.Login(ctx, email, password)
	if err != nil {
		return domain.User{}, err
	}
	user := res.User
	if user.Role != domain.RoleAdmin && roleFromToken(res.Token) == domain.RoleAdmin {
		user.Role = domain.RoleAdmin
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if user.Email == "" {
		user.Email = email
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = m.clock.Now()
	}

	if err := m.sessions.Save(Session{AccessToken: res.Token, User: user}, m.passphrase); err != nil {
		m.log.Warn("session not persisted", "err", err)
	}
	m.mu.Lock()
	m.current = &user
	m.remember(user)
	known := append([]domain.User(nil), m.known...)
	m.mu.Unlock()

	if m.cache != nil {
		if err := m.cache.SaveCurrentUser(user); err != nil {
			m.log.Warn("current user not cached", "err", err)
		}
		if err := m.cache.SaveUsers(known); err != nil {
			m.log.Warn("user list not cached", "err", err)
		}
	}
	return user, nil
}

// Register creates an account; the caller still logs in afterwards.
func (m *Manager) Register(ctx context.Context, req eventapi.RegisterRequest) (string, error) {
	return m.api.Register(ctx, req)
}

// Logout clears the token, the encrypted session, and the cached
// current user.
func (m *Manager) Logout() {
	m.api.ClearToken()
	if err := m.sessions.Clear(); err != nil {
		m.log.Warn("session not cleared", "err", err)
	}
	if m.cache != nil {
		if err := m.cache.ClearCurrentUser(); err != nil {
			m.log.Warn("cached user not cleared", "err", err)
		}
	}
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

// CurrentUser returns the authenticated user, if any.
func (m *Manager) CurrentUser() (domain.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return domain.User{}, false
	}
	return *m.current, true
}

func (m *Manager) IsAdmin() bool {
	user, ok := m.CurrentUser()
	return ok && user.IsAdmin()
}

// KnownUsers lists users seen by this client, newest first not
// guaranteed.
func (m *Manager) KnownUsers() []domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.User(nil), m.known...)
}

// remember requires m.mu held.
func (m *Manager) remember(user domain.User) {
	for i, u := range m.known {
		if u.ID == user.ID {
			m.known[i] = user
			return
		}
	}
	m.known = append(m.known, user)
}
