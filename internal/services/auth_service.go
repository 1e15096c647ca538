package services

import (
	"strings"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/hypernova-labs/cadastro-service/internal/security"
	"github.com/sirupsen/logrus"
)

const revokedCachePrefix = "revoked_jti:"

// AuthService cuida de login, rotação de refresh tokens e revogação.
//
// Access tokens revogados ficam na blacklist por jti; o Redis, quando
// disponível, serve de cache na frente da tabela para a checagem feita a
// cada request autenticada.
type AuthService struct {
	userRepo  UserStore
	tokenRepo TokenStore
	jwt       *security.JwtProvider
	cache     RevocationCache
	audit     AuditSink
	logger    *logrus.Logger
}

// NewAuthService cria uma nova instância do serviço. cache e audit podem
// ser nil.
func NewAuthService(userRepo UserStore, tokenRepo TokenStore, jwt *security.JwtProvider, cache RevocationCache, audit AuditSink, logger *logrus.Logger) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		jwt:       jwt,
		cache:     cache,
		audit:     audit,
		logger:    logger,
	}
}

// Login valida as credenciais e emite o par de tokens
func (s *AuthService) Login(payload *models.LoginRequest) (*models.TokenPairResponse, error) {
	email := strings.ToLower(strings.TrimSpace(payload.Email))

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil || !security.VerifyPassword(
		payload.Password, user.PasswordHash, user.PasswordSalt,
		user.PasswordIterations, user.PasswordAlgo,
	) {
		return nil, models.NewUnauthorizedError("Email ou senha inválidos.")
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.TouchLastLogin(user.ID); err != nil {
		s.logger.WithError(err).Warn("Could not update last_login")
	}
	if s.audit != nil {
		s.audit.Record(models.Actor{UserID: user.ID, Role: user.RoleID},
			models.AuditEntityUser, user.ID, models.AuditActionLogin, "")
	}

	return pair, nil
}

// Refresh consome um refresh token válido e emite um novo par (rotação:
// o token usado é revogado e aponta para o substituto).
func (s *AuthService) Refresh(payload *models.RefreshRequest) (*models.TokenPairResponse, error) {
	claims, err := s.jwt.Decode(payload.RefreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != security.TokenTypeRefresh {
		return nil, models.NewUnauthorizedError("Token inválido.")
	}

	stored, err := s.tokenRepo.GetActiveRefreshTokenByHash(security.HashToken(payload.RefreshToken))
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, models.NewUnauthorizedError("Refresh token inválido ou já utilizado.")
	}

	userID, err := claims.SubjectUserID()
	if err != nil || userID != stored.UserID {
		return nil, models.NewUnauthorizedError("Token inválido.")
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Usuário não encontrado.")
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	newClaims, err := s.jwt.Decode(pair.RefreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.tokenRepo.RevokeRefreshToken(stored.ID, &newClaims.ID, "rotated"); err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout revoga o access token corrente e o refresh token apresentado
func (s *AuthService) Logout(actor models.Actor, accessClaims *security.Claims, payload *models.RefreshRequest) error {
	expiresAt := accessClaims.ExpiresAt.Time
	if err := s.tokenRepo.RevokeAccessToken(&models.RevokedToken{
		JTI:       accessClaims.ID,
		UserID:    actor.UserID,
		ExpiresAt: expiresAt,
	}); err != nil {
		return err
	}
	s.cacheRevocation(accessClaims.ID, time.Until(expiresAt))

	if payload != nil && payload.RefreshToken != "" {
		stored, err := s.tokenRepo.GetActiveRefreshTokenByHash(security.HashToken(payload.RefreshToken))
		if err != nil {
			return err
		}
		if stored != nil && stored.UserID == actor.UserID {
			if err := s.tokenRepo.RevokeRefreshToken(stored.ID, nil, "logout"); err != nil {
				return err
			}
		}
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditEntityUser, actor.UserID, models.AuditActionLogout, "")
	}
	return nil
}

// RevokeAllSessions revoga todos os refresh tokens do usuário (troca de
// senha, desligamento)
func (s *AuthService) RevokeAllSessions(actor models.Actor, userID int64, reason string) error {
	if actor.Role != models.RoleAdmin && actor.UserID != userID {
		return models.NewForbiddenError("Acesso negado.")
	}
	return s.tokenRepo.RevokeAllRefreshTokens(userID, reason)
}

// IsAccessTokenRevoked checa o jti na blacklist, passando pelo cache
func (s *AuthService) IsAccessTokenRevoked(jti string) (bool, error) {
	if s.cache != nil {
		if hit, err := s.cache.Exists(revokedCachePrefix + jti); err == nil && hit {
			return true, nil
		}
	}

	revoked, err := s.tokenRepo.IsAccessTokenRevoked(jti)
	if err != nil {
		return false, err
	}
	if revoked {
		s.cacheRevocation(jti, time.Hour)
	}
	return revoked, nil
}

// issuePair emite access + refresh e registra o refresh para rotação
func (s *AuthService) issuePair(user *models.User) (*models.TokenPairResponse, error) {
	access, err := s.jwt.IssueAccessToken(user.ID, int64(user.RoleID))
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwt.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	refreshClaims, err := s.jwt.Decode(refresh)
	if err != nil {
		return nil, err
	}
	if err := s.tokenRepo.CreateRefreshToken(&models.RefreshToken{
		UserID:    user.ID,
		TokenHash: security.HashToken(refresh),
		JTI:       refreshClaims.ID,
		ExpiresAt: refreshClaims.ExpiresAt.Time,
	}); err != nil {
		return nil, err
	}

	return &models.TokenPairResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user.Mini(),
	}, nil
}

// cacheRevocation grava o jti revogado no cache (best-effort)
func (s *AuthService) cacheRevocation(jti string, ttl time.Duration) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	if err := s.cache.SetWithTTL(revokedCachePrefix+jti, "1", ttl); err != nil {
		s.logger.WithError(err).Warn("Could not cache revoked token")
	}
}
