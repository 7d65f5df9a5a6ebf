package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"littletimes/internal/models"
	"littletimes/pkg/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu    sync.Mutex
	token string

	session    *client.Session
	sessionErr error
	profile    *models.User
	profileErr error
	logoutErr  error

	logins    atomic.Int32
	profiles  atomic.Int32
	logouts   atomic.Int32
	registers atomic.Int32
}

func (f *fakeAPI) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeAPI) currentToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAPI) Register(context.Context, models.RegisterRequest) (*client.Session, error) {
	f.registers.Add(1)
	return f.session, f.sessionErr
}

func (f *fakeAPI) Login(_ context.Context, _, _ string) (*client.Session, error) {
	f.logins.Add(1)
	return f.session, f.sessionErr
}

func (f *fakeAPI) Logout(context.Context) error {
	f.logouts.Add(1)
	return f.logoutErr
}

func (f *fakeAPI) Session(context.Context) (*client.Session, error) {
	return f.session, f.sessionErr
}

func (f *fakeAPI) Profile(context.Context) (*models.User, error) {
	f.profiles.Add(1)
	return f.profile, f.profileErr
}

func (f *fakeAPI) UpdateProfile(_ context.Context, in models.ProfileUpdate) (*models.User, error) {
	u := *f.profile
	if in.Name != nil {
		u.Name = *in.Name
	}
	return &u, nil
}

type recorder struct {
	mu     sync.Mutex
	events []Kind
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev.Kind)
	r.mu.Unlock()
}

func (r *recorder) count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == k {
			n++
		}
	}
	return n
}

func kid() *models.User {
	return &models.User{ID: 1, Email: "kid@littletimes.test", Name: "민준", Grade: "초등 2학년", Avatar: "🐰"}
}

func freshSession(loginAt time.Time) *client.Session {
	return &client.Session{User: kid(), Token: "tok-1", LoginAt: loginAt, ExpiresAt: loginAt.Add(DefaultTTL)}
}

func newManager(t *testing.T, api *fakeAPI, store Store, opts Options) (*Manager, *recorder) {
	t.Helper()
	m := New(api, store, opts)
	t.Cleanup(m.Close)
	rec := &recorder{}
	m.Subscribe(rec.record)
	return m, rec
}

func TestStart_ExpiredLoginSignsOutBeforeProfile(t *testing.T) {
	store := &MemoryStore{}
	require.NoError(t, store.Save("old", time.Now().Add(-25*time.Hour)))
	api := &fakeAPI{profile: kid()}

	m, rec := newManager(t, api, store, Options{})
	require.NoError(t, m.Start(context.Background()))

	assert.Zero(t, api.profiles.Load())
	assert.False(t, m.State().SignedIn)
	assert.Equal(t, 1, rec.count(Expired))
	_, _, ok, _ := store.Load()
	assert.False(t, ok)
}

func TestStart_RestoresFreshLogin(t *testing.T) {
	loginAt := time.Now().Add(-time.Hour)
	store := &MemoryStore{}
	require.NoError(t, store.Save("tok-1", loginAt))
	api := &fakeAPI{profile: kid()}

	m, rec := newManager(t, api, store, Options{})
	require.NoError(t, m.Start(context.Background()))

	st := m.State()
	assert.True(t, st.SignedIn)
	assert.Equal(t, "민준", st.User.Name)
	assert.True(t, st.ExpiresAt.Equal(loginAt.Add(DefaultTTL)))
	assert.Equal(t, "tok-1", api.currentToken())
	assert.Equal(t, 1, rec.count(SignedIn))
}

func TestStart_ProfileFailureDegrades(t *testing.T) {
	store := &MemoryStore{}
	require.NoError(t, store.Save("tok-1", time.Now()))
	api := &fakeAPI{profileErr: &client.APIError{Status: http.StatusInternalServerError}}

	m, _ := newManager(t, api, store, Options{})
	require.NoError(t, m.Start(context.Background()))

	assert.True(t, m.State().SignedIn)
	assert.Nil(t, m.State().User)
}

func TestStart_RejectedTokenExpires(t *testing.T) {
	store := &MemoryStore{}
	require.NoError(t, store.Save("tok-1", time.Now()))
	api := &fakeAPI{profileErr: &client.APIError{Status: http.StatusUnauthorized}}

	m, rec := newManager(t, api, store, Options{})
	require.NoError(t, m.Start(context.Background()))

	assert.False(t, m.State().SignedIn)
	assert.Equal(t, 1, rec.count(Expired))
}

func TestLogin_ValidatesLocally(t *testing.T) {
	api := &fakeAPI{session: freshSession(time.Now())}
	m, _ := newManager(t, api, nil, Options{})

	_, err := m.Login(context.Background(), "kid@littletimes.test", "")
	require.Error(t, err)
	assert.Equal(t, "이메일과 비밀번호를 입력해주세요.", err.Error())
	assert.Zero(t, api.logins.Load())
}

func TestRegister_ValidatesLocally(t *testing.T) {
	api := &fakeAPI{}
	m, _ := newManager(t, api, nil, Options{})

	_, err := m.Register(context.Background(), models.RegisterRequest{
		Email: "kid@littletimes.test", Password: "secret123", PasswordConfirm: "secret124",
		Name: "민준", Grade: "초등 2학년", Avatar: "🐰",
	})
	require.Error(t, err)
	assert.Equal(t, "비밀번호가 일치하지 않습니다.", err.Error())
	assert.Zero(t, api.registers.Load())
}

func TestRegister_ConfirmationRequiredStaysSignedOut(t *testing.T) {
	api := &fakeAPI{session: &client.Session{User: kid(), ConfirmationRequired: true}}
	m, rec := newManager(t, api, nil, Options{})

	sess, err := m.Register(context.Background(), models.RegisterRequest{
		Email: "kid@littletimes.test", Password: "secret123", PasswordConfirm: "secret123",
		Name: "민준", Grade: "초등 2학년", Avatar: "🐰",
	})
	require.NoError(t, err)
	assert.True(t, sess.ConfirmationRequired)
	assert.False(t, m.State().SignedIn)
	assert.Zero(t, rec.count(SignedIn))
}

func TestLogin_PersistsAndSignsIn(t *testing.T) {
	store := &MemoryStore{}
	loginAt := time.Now()
	api := &fakeAPI{session: freshSession(loginAt)}
	m, rec := newManager(t, api, store, Options{})

	_, err := m.Login(context.Background(), "kid@littletimes.test", "secret123")
	require.NoError(t, err)

	token, saved, ok, _ := store.Load()
	assert.True(t, ok)
	assert.Equal(t, "tok-1", token)
	assert.True(t, saved.Equal(loginAt))
	assert.Equal(t, 1, rec.count(SignedIn))
}

func TestExpiryTimerFiresOnceAcrossSignIns(t *testing.T) {
	api := &fakeAPI{}
	m, rec := newManager(t, api, nil, Options{TTL: 80 * time.Millisecond})

	for i := 0; i < 3; i++ {
		api.session = freshSession(time.Now())
		_, err := m.Login(context.Background(), "kid@littletimes.test", "secret123")
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return rec.count(Expired) > 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, rec.count(Expired))
	assert.False(t, m.State().SignedIn)
	assert.Empty(t, api.currentToken())
}

func TestLogout_ClearsEvenWhenServerFails(t *testing.T) {
	store := &MemoryStore{}
	api := &fakeAPI{session: freshSession(time.Now()), logoutErr: errors.New("offline")}
	m, rec := newManager(t, api, store, Options{TTL: 50 * time.Millisecond})

	_, err := m.Login(context.Background(), "kid@littletimes.test", "secret123")
	require.NoError(t, err)

	assert.Error(t, m.Logout(context.Background()))
	assert.False(t, m.State().SignedIn)
	assert.Equal(t, 1, rec.count(SignedOut))
	_, _, ok, _ := store.Load()
	assert.False(t, ok)

	// The cancelled timer never fires.
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, rec.count(Expired))
}

func TestRevalidate(t *testing.T) {
	t.Run("local expiry", func(t *testing.T) {
		now := time.Now()
		clock := now
		api := &fakeAPI{session: freshSession(now)}
		m, rec := newManager(t, api, nil, Options{Now: func() time.Time { return clock }})

		_, err := m.Login(context.Background(), "kid@littletimes.test", "secret123")
		require.NoError(t, err)

		clock = now.Add(DefaultTTL + time.Minute)
		require.NoError(t, m.Revalidate(context.Background()))
		assert.False(t, m.State().SignedIn)
		assert.Equal(t, 1, rec.count(Expired))
	})

	t.Run("server rejects", func(t *testing.T) {
		api := &fakeAPI{session: freshSession(time.Now())}
		m, rec := newManager(t, api, nil, Options{})

		_, err := m.Login(context.Background(), "kid@littletimes.test", "secret123")
		require.NoError(t, err)

		api.sessionErr = &client.APIError{Status: http.StatusUnauthorized}
		require.NoError(t, m.Revalidate(context.Background()))
		assert.False(t, m.State().SignedIn)
		assert.Equal(t, 1, rec.count(Expired))
	})

	t.Run("network error keeps session", func(t *testing.T) {
		api := &fakeAPI{session: freshSession(time.Now())}
		m, _ := newManager(t, api, nil, Options{})

		_, err := m.Login(context.Background(), "kid@littletimes.test", "secret123")
		require.NoError(t, err)

		api.sessionErr = errors.New("offline")
		assert.Error(t, m.Revalidate(context.Background()))
		assert.True(t, m.State().SignedIn)
	})
}

func TestEnsureProfileAfterTokenLogin(t *testing.T) {
	sess := freshSession(time.Now())
	sess.User = nil
	api := &fakeAPI{session: sess, profile: kid()}
	m, rec := newManager(t, api, nil, Options{})

	_, err := m.LoginWithToken(context.Background(), "oauth-token")
	require.NoError(t, err)

	assert.Equal(t, "민준", m.State().User.Name)
	assert.Equal(t, "oauth-token", m.State().Token)
	assert.Equal(t, 1, rec.count(ProfileUpdated))
}

func TestEnsureProfileMissingSignsOut(t *testing.T) {
	sess := freshSession(time.Now())
	sess.User = nil
	api := &fakeAPI{session: sess, profileErr: &client.APIError{Status: http.StatusNotFound}}
	m, _ := newManager(t, api, nil, Options{})

	_, err := m.LoginWithToken(context.Background(), "oauth-token")
	require.NoError(t, err)
	assert.False(t, m.State().SignedIn)

	_, err = m.EnsureProfile(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestUpdateProfile(t *testing.T) {
	api := &fakeAPI{session: freshSession(time.Now()), profile: kid()}
	m, rec := newManager(t, api, nil, Options{})

	name := "가"
	_, err := m.UpdateProfile(context.Background(), models.ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = m.Login(context.Background(), "kid@littletimes.test", "secret123")
	require.NoError(t, err)

	_, err = m.UpdateProfile(context.Background(), models.ProfileUpdate{Name: &name})
	require.Error(t, err)
	assert.Equal(t, "이름을 2자 이상 입력해주세요.", err.Error())

	name = "서연"
	u, err := m.UpdateProfile(context.Background(), models.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "서연", u.Name)
	assert.Equal(t, "서연", m.State().User.Name)
	assert.Equal(t, 1, rec.count(ProfileUpdated))
}

func TestUnsubscribeAndClose(t *testing.T) {
	api := &fakeAPI{session: freshSession(time.Now())}
	m := New(api, nil, Options{TTL: 40 * time.Millisecond})

	var calls atomic.Int32
	unsubscribe := m.Subscribe(func(Event) { calls.Add(1) })
	_, err := m.Login(context.Background(), "kid@littletimes.test", "secret123")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	unsubscribe()
	m.Close()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

// brokenStore fails every write.
type brokenStore struct {
	MemoryStore
	err error
}

func (b *brokenStore) Save(string, time.Time) error { return b.err }

func (b *brokenStore) Clear() error { return b.err }

func TestStoreFailuresAreReported(t *testing.T) {
	diskFull := errors.New("disk full")

	t.Run("login keeps the in-memory session", func(t *testing.T) {
		api := &fakeAPI{session: freshSession(time.Now())}
		m, rec := newManager(t, api, &brokenStore{err: diskFull}, Options{})

		sess, err := m.Login(context.Background(), "kid@littletimes.test", "secret123")
		require.NotNil(t, sess)
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "save", storeErr.Op)
		assert.ErrorIs(t, err, diskFull)
		assert.True(t, m.State().SignedIn)
		assert.Equal(t, 1, rec.count(SignedIn))
	})

	t.Run("logout still signs out", func(t *testing.T) {
		api := &fakeAPI{session: freshSession(time.Now())}
		m, rec := newManager(t, api, &brokenStore{err: diskFull}, Options{})
		_, _ = m.Login(context.Background(), "kid@littletimes.test", "secret123")

		err := m.Logout(context.Background())
		assert.ErrorIs(t, err, diskFull)
		assert.False(t, m.State().SignedIn)
		assert.Equal(t, 1, rec.count(SignedOut))
	})

	t.Run("expiry timer reports through the hook", func(t *testing.T) {
		reported := make(chan error, 1)
		api := &fakeAPI{session: freshSession(time.Now())}
		m, _ := newManager(t, api, &brokenStore{err: diskFull}, Options{
			TTL:          30 * time.Millisecond,
			OnStoreError: func(err error) { reported <- err },
		})
		_, _ = m.Login(context.Background(), "kid@littletimes.test", "secret123")

		select {
		case err := <-reported:
			assert.ErrorIs(t, err, diskFull)
		case <-time.After(time.Second):
			t.Fatal("store failure on expiry was not reported")
		}
		assert.False(t, m.State().SignedIn)
	})
}
