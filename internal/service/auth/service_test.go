package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/pagecrane/pagecrane/internal/config"
	"github.com/pagecrane/pagecrane/internal/domain"
	"github.com/pagecrane/pagecrane/internal/repository"
	"github.com/pagecrane/pagecrane/internal/vault"
)

type memoryUserRepo struct {
	users map[string]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*domain.User)}
}

func (r *memoryUserRepo) CreateUser(_ context.Context, user *domain.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repository.ErrConflict
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memoryUserRepo) UpdateGitHubToken(_ context.Context, userID, encrypted string) error {
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.GitHubToken = encrypted
	return nil
}

func newTestService(t *testing.T) (Service, *memoryUserRepo, *vault.Vault) {
	t.Helper()
	credVault, err := vault.New("test-secret")
	if err != nil {
		t.Fatalf("vault init: %v", err)
	}
	repo := newMemoryUserRepo()
	cfg := config.APIConfig{
		JWTSecret:       "jwt-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo, credVault, logger, cfg), repo, credVault
}

func TestSignupLoginRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user, tokens, err := svc.Signup(ctx, "Owner@Example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "owner@example.com" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("expected token pair")
	}

	loggedIn, _, err := svc.Login(ctx, "owner@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, loggedIn.ID)
	}

	if _, _, err := svc.Login(ctx, "owner@example.com", "wrong-password"); err == nil {
		t.Fatal("expected login failure with wrong password")
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "not-an-email", "hunter2hunter2"); err == nil {
		t.Fatal("expected rejection of malformed email")
	}
	if _, _, err := svc.Signup(ctx, "a@b.com", "short"); err == nil {
		t.Fatal("expected rejection of short password")
	}
}

func TestAuthorizeReturnsUserFromToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user, tokens, err := svc.Signup(ctx, "owner@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	resolved, err := svc.Authorize(ctx, tokens.AccessToken)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if resolved.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, resolved.ID)
	}
	if _, err := svc.Authorize(ctx, "garbage.token.value"); err == nil {
		t.Fatal("expected rejection of malformed token")
	}
}

func TestLinkGitHubTokenStoresEncryptedBlob(t *testing.T) {
	svc, repo, credVault := newTestService(t)
	ctx := context.Background()

	user, _, err := svc.Signup(ctx, "owner@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := svc.LinkGitHubToken(ctx, user.ID, "ghp_secrettoken"); err != nil {
		t.Fatalf("link token: %v", err)
	}

	stored := repo.users[user.ID].GitHubToken
	if stored == "" || stored == "ghp_secrettoken" {
		t.Fatal("token must be stored encrypted, never in plaintext")
	}
	plain, err := credVault.Decrypt(stored)
	if err != nil {
		t.Fatalf("decrypt stored blob: %v", err)
	}
	if plain != "ghp_secrettoken" {
		t.Fatalf("round trip mismatch: %q", plain)
	}

	linked, err := svc.GitHubTokenLinked(ctx, user.ID)
	if err != nil || !linked {
		t.Fatalf("expected linked=true, got %v err=%v", linked, err)
	}
}

func TestLinkGitHubTokenRejectsEmpty(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user, _, err := svc.Signup(ctx, "owner@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := svc.LinkGitHubToken(ctx, user.ID, "   "); err == nil {
		t.Fatal("expected rejection of blank token")
	}
	linked, err := svc.GitHubTokenLinked(ctx, user.ID)
	if err != nil || linked {
		t.Fatalf("expected linked=false, got %v err=%v", linked, err)
	}
}
