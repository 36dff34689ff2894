package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"brandstore/backend/internal/domain"
	"brandstore/backend/internal/store"
)

// userStoreStub is a minimal in-memory UserStore for auth tests.
type userStoreStub struct {
	mu    sync.Mutex
	users map[string]domain.UserAccount
}

func newUserStoreStub() *userStoreStub {
	return &userStoreStub{users: make(map[string]domain.UserAccount)}
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Username]; exists {
		return store.ErrDuplicate
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[username] = user
	return nil
}

func (s *userStoreStub) storedPassword(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[username].Password
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	stub := newUserStoreStub()
	stub.users["owner"] = domain.UserAccount{
		ID:        "u-owner",
		Username:  "owner",
		Password:  "admin123",
		Role:      domain.RoleAdmin,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	auth := NewAuthManager("test-secret-key", time.Hour, stub)

	stored := stub.storedPassword("owner")
	if !strings.HasPrefix(stored, "$2") {
		t.Fatalf("expected stored password upgraded to bcrypt, got %q", stored)
	}

	resp, err := auth.Login(domain.LoginRequest{Username: "owner", Password: "admin123"})
	if err != nil {
		t.Fatalf("login after upgrade failed: %v", err)
	}
	if resp.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role in response, got %q", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "owner" || actor.ID != "u-owner" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestCreateUserStoresPasswordHash(t *testing.T) {
	stub := newUserStoreStub()
	auth := NewAuthManager("test-secret-key", time.Hour, stub)

	view, err := auth.CreateUser(domain.UserCreateRequest{
		Username: "Clerk01",
		Password: "clerk-pass",
		Phone:    "0100000000",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if view.Username != "clerk01" {
		t.Fatalf("expected lowercased username, got %q", view.Username)
	}
	if view.Role != domain.RoleUser {
		t.Fatalf("expected default role user, got %q", view.Role)
	}
	if view.Status != domain.UserStatusPendingInfo {
		t.Fatalf("expected pending_info status, got %q", view.Status)
	}

	stored := stub.storedPassword("clerk01")
	if stored == "clerk-pass" || !strings.HasPrefix(stored, "$2") {
		t.Fatalf("expected bcrypt hash in store, got %q", stored)
	}

	if _, err := auth.Login(domain.LoginRequest{Username: "clerk01", Password: "clerk-pass"}); err != nil {
		t.Fatalf("login as new user failed: %v", err)
	}
}

func TestCreateUserRejectsDuplicate(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, newUserStoreStub())

	if _, err := auth.CreateUser(domain.UserCreateRequest{Username: "clerk01", Password: "clerk-pass"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := auth.CreateUser(domain.UserCreateRequest{Username: "clerk01", Password: "other-pass"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, newUserStoreStub())

	cases := []struct {
		name string
		req  domain.UserCreateRequest
	}{
		{"short username", domain.UserCreateRequest{Username: "ab", Password: "secret99"}},
		{"short password", domain.UserCreateRequest{Username: "clerk01", Password: "abc"}},
		{"unknown role", domain.UserCreateRequest{Username: "clerk02", Password: "secret99", Role: "superuser"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := auth.CreateUser(tc.req); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	stub := newUserStoreStub()
	stub.users["former"] = domain.UserAccount{
		ID:       "u-former",
		Username: "former",
		Password: "secret99",
		Role:     domain.RoleUser,
		Active:   false,
	}
	auth := NewAuthManager("test-secret-key", time.Hour, stub)

	if _, err := auth.Login(domain.LoginRequest{Username: "former", Password: "secret99"}); err == nil {
		t.Fatalf("expected login to fail for inactive account")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	stub := newUserStoreStub()
	stub.users["owner"] = domain.UserAccount{
		ID:       "u-owner",
		Username: "owner",
		Password: "admin123",
		Role:     domain.RoleAdmin,
		Active:   true,
	}
	auth := NewAuthManager("test-secret-key", time.Hour, stub)
	other := NewAuthManager("completely-different-secret", time.Hour, newUserStoreStub())

	resp, err := auth.Login(domain.LoginRequest{Username: "owner", Password: "admin123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := other.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}
