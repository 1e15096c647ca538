package security

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/hypernova-labs/cadastro-service/internal/config"
	"github.com/hypernova-labs/cadastro-service/internal/models"
)

// Tipos de token emitidos
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims são as claims carregadas pelos tokens do serviço
type Claims struct {
	RoleID    int64  `json:"role_id,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// JwtProvider emite e valida tokens HS256
type JwtProvider struct {
	secret        []byte
	issuer        string
	audience      string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewJwtProvider cria uma nova instância do provider
func NewJwtProvider(cfg config.JWTConfig) *JwtProvider {
	return &JwtProvider{
		secret:        []byte(cfg.Secret),
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
		accessExpiry:  cfg.AccessExpiry,
		refreshExpiry: cfg.RefreshExpiry,
	}
}

func (p *JwtProvider) issue(subject string, roleID int64, ttl time.Duration, tokenType string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RoleID:    roleID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// IssueAccessToken emite um access token com a claim role_id
func (p *JwtProvider) IssueAccessToken(userID int64, roleID int64) (string, error) {
	return p.issue(formatSubject(userID), roleID, p.accessExpiry, TokenTypeAccess)
}

// IssueRefreshToken emite um refresh token minimalista (sem role)
func (p *JwtProvider) IssueRefreshToken(userID int64) (string, error) {
	return p.issue(formatSubject(userID), 0, p.refreshExpiry, TokenTypeRefresh)
}

// Decode valida assinatura, issuer, audience e expiração e retorna as claims
func (p *JwtProvider) Decode(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, models.NewUnauthorizedError("Token inválido.")
		}
		return p.secret, nil
	})
	if err != nil {
		if jwtErr, ok := err.(*jwt.ValidationError); ok && jwtErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, models.NewUnauthorizedError("Token expirado.")
		}
		return nil, models.NewUnauthorizedError("Token inválido.")
	}
	if !parsed.Valid || claims.ID == "" || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, models.NewUnauthorizedError("Token inválido.")
	}
	if !claims.VerifyIssuer(p.issuer, true) || !claims.VerifyAudience(p.audience, true) {
		return nil, models.NewUnauthorizedError("Token inválido.")
	}
	return claims, nil
}

// SubjectUserID extrai o user id numérico do subject
func (c *Claims) SubjectUserID() (int64, error) {
	id, err := parseSubject(c.Subject)
	if err != nil {
		return 0, models.NewUnauthorizedError("Token inválido.")
	}
	return id, nil
}
