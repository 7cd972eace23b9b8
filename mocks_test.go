package bridge_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	bridge "github.com/goliatone/go-auth-bridge"
)

var mockAnything = mock.Anything

// MockStore implements bridge.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindByExternalID(ctx context.Context, externalID string) (*bridge.User, error) {
	args := m.Called(ctx, externalID)
	user, _ := args.Get(0).(*bridge.User)
	return user, args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, user *bridge.User) (*bridge.User, error) {
	args := m.Called(ctx, user)
	if fn, ok := args.Get(0).(func(context.Context, *bridge.User) *bridge.User); ok {
		return fn(ctx, user), args.Error(1)
	}
	out, _ := args.Get(0).(*bridge.User)
	return out, args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, user *bridge.User) (*bridge.User, error) {
	args := m.Called(ctx, user)
	if fn, ok := args.Get(0).(func(context.Context, *bridge.User) *bridge.User); ok {
		return fn(ctx, user), args.Error(1)
	}
	out, _ := args.Get(0).(*bridge.User)
	return out, args.Error(1)
}

// mapStore is an in memory bridge.Store keyed by external id.
type mapStore struct {
	mu    sync.Mutex
	users map[string]*bridge.User
}

func newMapStore() *mapStore {
	return &mapStore{users: map[string]*bridge.User{}}
}

func (s *mapStore) FindByExternalID(_ context.Context, externalID string) (*bridge.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[externalID], nil
}

func (s *mapStore) Create(_ context.Context, user *bridge.User) (*bridge.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := user.GetExternalUserID()
	if _, ok := s.users[id]; ok {
		return nil, bridge.ErrDuplicateExternalID.Clone()
	}
	s.users[id] = user
	return user, nil
}

func (s *mapStore) Update(_ context.Context, user *bridge.User) (*bridge.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.GetExternalUserID()] = user
	return user, nil
}

func (s *mapStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// countingProvider returns payload and counts calls.
type countingProvider struct {
	prefix  string
	payload *bridge.Payload
	err     error
	calls   atomic.Int32
	headers map[string]string
}

func (p *countingProvider) Authenticate(_ context.Context, token string, headers map[string]string) (*bridge.Payload, error) {
	p.calls.Add(1)
	p.headers = headers
	if p.err != nil {
		return nil, p.err
	}
	return p.payload.Clone(), nil
}

func (p *countingProvider) CacheKeyPrefix() string {
	return p.prefix
}

// fakeRequest implements bridge.Request
type fakeRequest struct {
	headers map[string]string
	cookies map[string]string
	inputs  map[string]string
}

func (r fakeRequest) Header(name string) string { return r.headers[name] }
func (r fakeRequest) Cookie(name string) string { return r.cookies[name] }
func (r fakeRequest) Input(name string) string  { return r.inputs[name] }

func bearer(token string) fakeRequest {
	return fakeRequest{headers: map[string]string{"Authorization": "Bearer " + token}}
}
