// Package session holds the signed-in state of an API client. A Manager is
// created once by the application, exposes the current State and notifies
// subscribers about sign-in changes. A single cancellable timer signs the
// user out when the session lifetime ends.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"littletimes/internal/models"
	"littletimes/internal/validation"
	"littletimes/pkg/client"
)

// DefaultTTL is the session lifetime measured from sign-in.
const DefaultTTL = 24 * time.Hour

var (
	// ErrNotSignedIn is returned by operations that need a signed-in user.
	ErrNotSignedIn = errors.New("로그인이 필요합니다.")
	// ErrNoProfile means the signed-in account has no profile on the server.
	ErrNoProfile = errors.New("프로필을 찾을 수 없습니다.")
)

// API is the subset of the HTTP client the manager needs.
type API interface {
	SetToken(token string)
	Register(ctx context.Context, req models.RegisterRequest) (*client.Session, error)
	Login(ctx context.Context, email, password string) (*client.Session, error)
	Logout(ctx context.Context) error
	Session(ctx context.Context) (*client.Session, error)
	Profile(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, in models.ProfileUpdate) (*models.User, error)
}

var _ API = (*client.Client)(nil)

// Kind names an auth state change.
type Kind int

const (
	SignedIn Kind = iota + 1
	SignedOut
	Expired
	ProfileUpdated
)

func (k Kind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case Expired:
		return "expired"
	case ProfileUpdated:
		return "profile_updated"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after the state changed.
type Event struct {
	Kind  Kind
	State State
}

// State is a snapshot of the session.
type State struct {
	SignedIn  bool
	User      *models.User
	Token     string
	LoginAt   time.Time
	ExpiresAt time.Time
}

// StoreError reports a Store failure. The in-memory state is still
// updated; only persistence across restarts is lost.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "session store " + e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

// Options tune a Manager.
type Options struct {
	TTL time.Duration
	Now func() time.Time
	// OnStoreError receives store failures that happen outside a call,
	// such as clearing the store when the expiry timer fires.
	OnStoreError func(error)
}

// Manager is the session state container.
type Manager struct {
	api   API
	store Store
	ttl   time.Duration
	now   func() time.Time
	onErr func(error)

	mu     sync.Mutex
	state  State
	timer  *time.Timer
	gen    uint64
	subs   map[int]func(Event)
	nextID int
	closed bool
}

// New returns a signed-out manager. Call Start to restore a stored login.
func New(api API, store Store, opts Options) *Manager {
	if store == nil {
		store = &MemoryStore{}
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		api:   api,
		store: store,
		ttl:   opts.TTL,
		now:   opts.Now,
		onErr: opts.OnStoreError,
		subs:  make(map[int]func(Event)),
	}
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for state changes until the returned func is
// called or the manager is closed.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return func() {}
	}
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Close stops the expiry timer and drops all subscribers.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
	m.closed = true
	m.subs = map[int]func(Event){}
}

// Start restores the stored login. A login older than the TTL is cleared
// before any profile is requested.
func (m *Manager) Start(ctx context.Context) error {
	token, loginAt, ok, err := m.store.Load()
	if err != nil {
		return err
	}
	if !ok || token == "" {
		return nil
	}

	expiresAt := loginAt.Add(m.ttl)
	if !m.now().Before(expiresAt) {
		return m.forceSignOut(Expired)
	}

	m.api.SetToken(token)
	user, err := m.api.Profile(ctx)
	switch {
	case client.IsUnauthorized(err):
		return m.forceSignOut(Expired)
	case err != nil:
		// Profile load is best effort.
		user = nil
	}

	storeErr := m.signIn(token, loginAt, user)
	if user == nil && client.IsNotFound(err) {
		_, _ = m.EnsureProfile(ctx)
	}
	return storeErr
}

// Register creates an account and signs in unless the server asks for
// e-mail confirmation first. Like Login, it returns the session together
// with a *StoreError when the login could not be persisted.
func (m *Manager) Register(ctx context.Context, req models.RegisterRequest) (*client.Session, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	sess, err := m.api.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	if sess.Token != "" {
		return sess, m.acceptSession(ctx, sess.Token, sess)
	}
	return sess, nil
}

// Login signs in with e-mail and password.
func (m *Manager) Login(ctx context.Context, email, password string) (*client.Session, error) {
	if err := validation.Struct(models.LoginRequest{Email: email, Password: password}); err != nil {
		return nil, err
	}
	sess, err := m.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return sess, m.acceptSession(ctx, sess.Token, sess)
}

// LoginWithToken adopts a token handed over by the OAuth callback.
func (m *Manager) LoginWithToken(ctx context.Context, token string) (*client.Session, error) {
	if token == "" {
		return nil, ErrNotSignedIn
	}
	m.api.SetToken(token)
	sess, err := m.api.Session(ctx)
	if err != nil {
		m.api.SetToken(m.State().Token)
		return nil, err
	}
	return sess, m.acceptSession(ctx, token, sess)
}

// Logout revokes the token on the server and clears the local state. The
// local state is cleared even when the server call fails.
func (m *Manager) Logout(ctx context.Context) error {
	if !m.State().SignedIn {
		return nil
	}
	err := m.api.Logout(ctx)
	if storeErr := m.forceSignOut(SignedOut); storeErr != nil {
		return errors.Join(err, storeErr)
	}
	return err
}

// UpdateProfile changes the set fields of the profile.
func (m *Manager) UpdateProfile(ctx context.Context, in models.ProfileUpdate) (*models.User, error) {
	if !m.State().SignedIn {
		return nil, ErrNotSignedIn
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	user, err := m.api.UpdateProfile(ctx, in)
	if err != nil {
		return nil, err
	}
	m.setUser(user)
	return user, nil
}

// Revalidate re-checks the session, e.g. when the application regains
// focus. Local expiry or a 401 from the server signs the user out.
func (m *Manager) Revalidate(ctx context.Context) error {
	st := m.State()
	if !st.SignedIn {
		return nil
	}
	if !m.now().Before(st.ExpiresAt) {
		return m.forceSignOut(Expired)
	}

	sess, err := m.api.Session(ctx)
	if client.IsUnauthorized(err) {
		return m.forceSignOut(Expired)
	}
	if err != nil {
		return err
	}
	if sess.User == nil {
		_, err = m.EnsureProfile(ctx)
		return err
	}
	m.setUser(sess.User)
	return nil
}

// EnsureProfile loads the profile of the signed-in identity when the state
// has none. An account without a profile is signed out.
func (m *Manager) EnsureProfile(ctx context.Context) (*models.User, error) {
	st := m.State()
	if !st.SignedIn {
		return nil, ErrNotSignedIn
	}
	if st.User != nil {
		return st.User, nil
	}

	user, err := m.api.Profile(ctx)
	switch {
	case client.IsNotFound(err), client.IsUnauthorized(err):
		if storeErr := m.forceSignOut(SignedOut); storeErr != nil {
			return nil, errors.Join(ErrNoProfile, storeErr)
		}
		return nil, ErrNoProfile
	case err != nil:
		return nil, err
	}
	m.setUser(user)
	return user, nil
}

func (m *Manager) acceptSession(ctx context.Context, token string, sess *client.Session) error {
	loginAt := sess.LoginAt
	if loginAt.IsZero() {
		loginAt = m.now()
	}
	storeErr := m.signIn(token, loginAt, sess.User)
	if sess.User == nil {
		_, _ = m.EnsureProfile(ctx)
	}
	return storeErr
}

func (m *Manager) signIn(token string, loginAt time.Time, user *models.User) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	var storeErr error
	if err := m.store.Save(token, loginAt); err != nil {
		storeErr = &StoreError{Op: "save", Err: err}
	}
	m.api.SetToken(token)
	m.state = State{
		SignedIn:  true,
		User:      user,
		Token:     token,
		LoginAt:   loginAt,
		ExpiresAt: loginAt.Add(m.ttl),
	}
	m.scheduleLocked(m.state.ExpiresAt.Sub(m.now()))
	ev := Event{Kind: SignedIn, State: m.state}
	subs := m.subscribersLocked()
	m.mu.Unlock()

	emit(subs, ev)
	return storeErr
}

func (m *Manager) setUser(user *models.User) {
	m.mu.Lock()
	if !m.state.SignedIn {
		m.mu.Unlock()
		return
	}
	m.state.User = user
	ev := Event{Kind: ProfileUpdated, State: m.state}
	subs := m.subscribersLocked()
	m.mu.Unlock()

	emit(subs, ev)
}

// forceSignOut clears everything and notifies with kind.
func (m *Manager) forceSignOut(kind Kind) error {
	m.mu.Lock()
	subs, ev, err := m.clearLocked(kind)
	m.mu.Unlock()

	emit(subs, ev)
	return err
}

func (m *Manager) clearLocked(kind Kind) ([]func(Event), Event, error) {
	m.stopTimerLocked()
	var storeErr error
	if err := m.store.Clear(); err != nil {
		storeErr = &StoreError{Op: "clear", Err: err}
	}
	m.api.SetToken("")
	m.state = State{}
	return m.subscribersLocked(), Event{Kind: kind}, storeErr
}

// scheduleLocked replaces the expiry timer. Only the newest timer can fire.
func (m *Manager) scheduleLocked(d time.Duration) {
	m.stopTimerLocked()
	gen := m.gen
	m.timer = time.AfterFunc(d, func() { m.expire(gen) })
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
}

func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.closed || !m.state.SignedIn {
		m.mu.Unlock()
		return
	}
	subs, ev, err := m.clearLocked(Expired)
	m.mu.Unlock()

	emit(subs, ev)
	if err != nil && m.onErr != nil {
		m.onErr(err)
	}
}

func (m *Manager) subscribersLocked() []func(Event) {
	out := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		out = append(out, fn)
	}
	return out
}

func emit(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
