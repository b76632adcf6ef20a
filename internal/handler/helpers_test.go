package handler

import (
	"context"
	"sync"

	"chatrelay/internal/app/directory"
	"chatrelay/internal/app/relay"
	"chatrelay/internal/configs"
	"chatrelay/internal/pkg/randx"
)

// fakeDirectory is an in-memory directory.Service for handler tests.
type fakeDirectory struct {
	mu        sync.Mutex
	profiles  map[string]*directory.Profile
	passwords map[string]string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		profiles:  make(map[string]*directory.Profile),
		passwords: make(map[string]string),
	}
}

func (f *fakeDirectory) CreateUser(_ context.Context, displayName, email, password string) (*directory.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.profiles[email]; exists {
		return nil, directory.ErrDuplicateEmail
	}

	profile := &directory.Profile{Key: email, ID: randx.UserID(), DisplayName: displayName}
	f.profiles[email] = profile
	f.passwords[email] = password

	return profile, nil
}

func (f *fakeDirectory) Authenticate(_ context.Context, email, password string) (*directory.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	profile, ok := f.profiles[email]
	if !ok || f.passwords[email] != password {
		return nil, directory.ErrBadCredentials
	}

	return profile, nil
}

func (f *fakeDirectory) Resolve(_ context.Context, userKey string) (*directory.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	profile, ok := f.profiles[userKey]
	if !ok {
		return nil, directory.ErrNotFound
	}

	return profile, nil
}

const testSessionSecret = "handler-test-secret"

// newTestDeps builds an AppDeps over in-memory collaborators.
func newTestDeps() *AppDeps {
	cfg := &configs.AppConfig{
		Environment:   "development",
		Port:          8080,
		SessionSecret: testSessionSecret,
		SendQueueSize: 16,
	}

	registry := relay.NewRegistry()

	return &AppDeps{
		Config:      cfg,
		Directory:   newFakeDirectory(),
		Registry:    registry,
		Broadcaster: relay.NewBroadcaster(registry, cfg.EchoSelf),
	}
}
