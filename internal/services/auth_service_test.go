package services

import (
	"testing"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/config"
	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/hypernova-labs/cadastro-service/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserStore guarda usuários em memória
type fakeUserStore struct {
	nextID int64
	users  map[int64]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*models.User)}
}

func (s *fakeUserStore) Create(user *models.User) (*models.User, error) {
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now()
	cp := *user
	s.users[user.ID] = &cp
	return user, nil
}

func (s *fakeUserStore) GetByID(id int64) (*models.User, error) {
	user, ok := s.users[id]
	if !ok || user.IsDeleted {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (s *fakeUserStore) GetByEmail(email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email && !user.IsDeleted {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) List() ([]models.User, error) {
	var out []models.User
	for _, user := range s.users {
		if !user.IsDeleted {
			out = append(out, *user)
		}
	}
	return out, nil
}

func (s *fakeUserStore) Update(user *models.User) error {
	stored, ok := s.users[user.ID]
	if !ok {
		return nil
	}
	*stored = *user
	return nil
}

func (s *fakeUserStore) TouchLastLogin(id int64) error {
	if user, ok := s.users[id]; ok {
		now := time.Now()
		user.LastLogin = &now
	}
	return nil
}

func (s *fakeUserStore) SoftDelete(id int64) error {
	if user, ok := s.users[id]; ok {
		user.IsDeleted = true
	}
	return nil
}

// fakeTokenStore guarda refresh tokens e a blacklist em memória
type fakeTokenStore struct {
	nextID    int64
	refresh   map[int64]*models.RefreshToken
	blacklist map[string]bool
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		refresh:   make(map[int64]*models.RefreshToken),
		blacklist: make(map[string]bool),
	}
}

func (s *fakeTokenStore) CreateRefreshToken(token *models.RefreshToken) error {
	s.nextID++
	token.ID = s.nextID
	token.IssuedAt = time.Now()
	cp := *token
	s.refresh[token.ID] = &cp
	return nil
}

func (s *fakeTokenStore) GetActiveRefreshTokenByHash(tokenHash string) (*models.RefreshToken, error) {
	for _, token := range s.refresh {
		if token.TokenHash == tokenHash && token.RevokedAt == nil && token.ExpiresAt.After(time.Now()) {
			cp := *token
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeTokenStore) RevokeRefreshToken(id int64, replacedByJTI *string, reason string) error {
	if token, ok := s.refresh[id]; ok {
		now := time.Now()
		token.RevokedAt = &now
		token.ReplacedByJTI = replacedByJTI
		token.Reason = &reason
	}
	return nil
}

func (s *fakeTokenStore) RevokeAllRefreshTokens(userID int64, reason string) error {
	for _, token := range s.refresh {
		if token.UserID == userID && token.RevokedAt == nil {
			now := time.Now()
			token.RevokedAt = &now
			token.Reason = &reason
		}
	}
	return nil
}

func (s *fakeTokenStore) RevokeAccessToken(token *models.RevokedToken) error {
	s.blacklist[token.JTI] = true
	return nil
}

func (s *fakeTokenStore) IsAccessTokenRevoked(jti string) (bool, error) {
	return s.blacklist[jti], nil
}

func (s *fakeTokenStore) PurgeExpired() error { return nil }

func (s *fakeTokenStore) activeCount(userID int64) int {
	count := 0
	for _, token := range s.refresh {
		if token.UserID == userID && token.RevokedAt == nil {
			count++
		}
	}
	return count
}

// fakeCache implementa RevocationCache em memória
type fakeCache struct{ keys map[string]bool }

func (c *fakeCache) SetWithTTL(key string, value interface{}, ttl time.Duration) error {
	c.keys[key] = true
	return nil
}

func (c *fakeCache) Exists(key string) (bool, error) { return c.keys[key], nil }

type authFixture struct {
	users  *fakeUserStore
	tokens *fakeTokenStore
	cache  *fakeCache
	jwt    *security.JwtProvider
	svc    *AuthService
	user   *models.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	cache := &fakeCache{keys: make(map[string]bool)}
	jwt := security.NewJwtProvider(config.JWTConfig{
		Secret:        "segredo-de-teste-bem-comprido",
		Issuer:        "cadastro-service",
		Audience:      "cadastro-clients",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
	})

	hashed, err := security.HashPassword("senha-correta")
	require.NoError(t, err)
	user, err := users.Create(&models.User{
		FullName:           "Maria Silva",
		Email:              "maria@empresa.com",
		RoleID:             models.RoleAnalyst,
		PasswordAlgo:       hashed.Algo,
		PasswordIterations: hashed.Iterations,
		PasswordHash:       hashed.Hash,
		PasswordSalt:       hashed.Salt,
	})
	require.NoError(t, err)

	svc := NewAuthService(users, tokens, jwt, cache, nil, testLogger())
	return &authFixture{users: users, tokens: tokens, cache: cache, jwt: jwt, svc: svc, user: user}
}

func TestLoginAndRefreshRotation(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(&models.LoginRequest{Email: "maria@empresa.com", Password: "senha-errada"})
	assert.True(t, models.IsUnauthorized(err))

	_, err = f.svc.Login(&models.LoginRequest{Email: "ninguem@empresa.com", Password: "senha-correta"})
	assert.True(t, models.IsUnauthorized(err))

	pair, err := f.svc.Login(&models.LoginRequest{Email: "  MARIA@empresa.com ", Password: "senha-correta"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	require.NotNil(t, pair.User)
	assert.Equal(t, f.user.ID, pair.User.ID)
	assert.NotNil(t, f.users.users[f.user.ID].LastLogin)

	// rotação: o refresh antigo é revogado e aponta para o novo jti
	rotated, err := f.svc.Refresh(&models.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, 1, f.tokens.activeCount(f.user.ID))

	// reuso do refresh consumido é rejeitado
	_, err = f.svc.Refresh(&models.RefreshRequest{RefreshToken: pair.RefreshToken})
	assert.True(t, models.IsUnauthorized(err))

	// um access token no lugar do refresh também é rejeitado
	_, err = f.svc.Refresh(&models.RefreshRequest{RefreshToken: rotated.AccessToken})
	assert.True(t, models.IsUnauthorized(err))
}

func TestLogoutRevokesTokens(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.svc.Login(&models.LoginRequest{Email: "maria@empresa.com", Password: "senha-correta"})
	require.NoError(t, err)

	claims, err := f.jwt.Decode(pair.AccessToken)
	require.NoError(t, err)

	revoked, err := f.svc.IsAccessTokenRevoked(claims.ID)
	require.NoError(t, err)
	assert.False(t, revoked)

	actor := models.Actor{UserID: f.user.ID, Role: models.RoleAnalyst}
	require.NoError(t, f.svc.Logout(actor, claims, &models.RefreshRequest{RefreshToken: pair.RefreshToken}))

	revoked, err = f.svc.IsAccessTokenRevoked(claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, f.cache.keys[revokedCachePrefix+claims.ID])

	_, err = f.svc.Refresh(&models.RefreshRequest{RefreshToken: pair.RefreshToken})
	assert.True(t, models.IsUnauthorized(err))
}

func TestRevokeAllSessions(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(&models.LoginRequest{Email: "maria@empresa.com", Password: "senha-correta"})
	require.NoError(t, err)
	require.Equal(t, 1, f.tokens.activeCount(f.user.ID))

	// outro usuário comum não derruba as sessões alheias
	err = f.svc.RevokeAllSessions(models.Actor{UserID: 99, Role: models.RoleUser}, f.user.ID, "teste")
	assert.True(t, models.IsForbidden(err))

	require.NoError(t, f.svc.RevokeAllSessions(models.Actor{UserID: 1, Role: models.RoleAdmin}, f.user.ID, "desligamento"))
	assert.Equal(t, 0, f.tokens.activeCount(f.user.ID))
}

func TestRevokedJTIComesFromCacheFirst(t *testing.T) {
	f := newAuthFixture(t)

	f.cache.keys[revokedCachePrefix+"jti-cacheado"] = true
	revoked, err := f.svc.IsAccessTokenRevoked("jti-cacheado")
	require.NoError(t, err)
	assert.True(t, revoked)

	// hit no banco popula o cache
	f.tokens.blacklist["jti-no-banco"] = true
	revoked, err = f.svc.IsAccessTokenRevoked("jti-no-banco")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, f.cache.keys[revokedCachePrefix+"jti-no-banco"])
}
