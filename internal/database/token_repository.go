package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// TokenRepository cuida das operações de banco para refresh tokens
// (rotação) e para a blacklist de access tokens revogados.
type TokenRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewTokenRepository cria uma nova instância do repositório
func NewTokenRepository(db *DB, logger *logrus.Logger) *TokenRepository {
	return &TokenRepository{
		db:     db,
		logger: logger,
	}
}

// CreateRefreshToken registra um novo refresh token emitido
func (r *TokenRepository) CreateRefreshToken(token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, jti, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	token.IssuedAt = time.Now()
	err := r.db.QueryRowWithTimeout(query,
		token.UserID, token.TokenHash, token.JTI, token.IssuedAt, token.ExpiresAt,
	).Scan(&token.ID)
	if err != nil {
		return fmt.Errorf("error creating refresh token: %w", err)
	}

	return nil
}

// GetActiveRefreshTokenByHash busca um refresh token vigente pelo hash;
// retorna nil quando não existe, já foi revogado ou expirou.
func (r *TokenRepository) GetActiveRefreshTokenByHash(tokenHash string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, jti, issued_at, expires_at, revoked_at, replaced_by_jti, reason
		FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > $2 AND is_deleted = false
	`

	var token models.RefreshToken
	err := r.db.QueryRowWithTimeout(query, tokenHash, time.Now()).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.JTI,
		&token.IssuedAt, &token.ExpiresAt, &token.RevokedAt,
		&token.ReplacedByJTI, &token.Reason,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying refresh token: %w", err)
	}

	return &token, nil
}

// RevokeRefreshToken marca um refresh token como consumido/revogado
func (r *TokenRepository) RevokeRefreshToken(id int64, replacedByJTI *string, reason string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1, replaced_by_jti = $2, reason = $3
		WHERE id = $4 AND revoked_at IS NULL
	`

	if _, err := r.db.ExecWithTimeout(query, time.Now(), replacedByJTI, reason, id); err != nil {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}
	return nil
}

// RevokeAllRefreshTokens revoga todos os refresh tokens vigentes do usuário
func (r *TokenRepository) RevokeAllRefreshTokens(userID int64, reason string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1, reason = $2
		WHERE user_id = $3 AND revoked_at IS NULL
	`

	if _, err := r.db.ExecWithTimeout(query, time.Now(), reason, userID); err != nil {
		return fmt.Errorf("error revoking refresh tokens: %w", err)
	}
	return nil
}

// RevokeAccessToken coloca o jti do access token na blacklist
func (r *TokenRepository) RevokeAccessToken(token *models.RevokedToken) error {
	query := `
		INSERT INTO revoked_tokens (jti, user_id, revoked_at, expires_at, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (jti) DO NOTHING
	`

	token.RevokedAt = time.Now()
	_, err := r.db.ExecWithTimeout(query,
		token.JTI, token.UserID, token.RevokedAt, token.ExpiresAt, token.Reason,
	)
	if err != nil {
		return fmt.Errorf("error revoking access token: %w", err)
	}

	return nil
}

// IsAccessTokenRevoked verifica se o jti consta na blacklist
func (r *TokenRepository) IsAccessTokenRevoked(jti string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1 AND is_deleted = false)`

	var revoked bool
	if err := r.db.QueryRowWithTimeout(query, jti).Scan(&revoked); err != nil {
		return false, fmt.Errorf("error checking revoked token: %w", err)
	}
	return revoked, nil
}

// PurgeExpired remove entradas já vencidas das duas tabelas
func (r *TokenRepository) PurgeExpired() error {
	now := time.Now()

	if _, err := r.db.ExecWithTimeout(`DELETE FROM revoked_tokens WHERE expires_at < $1`, now); err != nil {
		return fmt.Errorf("error purging revoked tokens: %w", err)
	}
	if _, err := r.db.ExecWithTimeout(`DELETE FROM refresh_tokens WHERE expires_at < $1`, now); err != nil {
		return fmt.Errorf("error purging refresh tokens: %w", err)
	}
	return nil
}
