package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// RequestRepository cuida das operações de banco para Request (a raiz do
// agregado requisição → itens → campos).
type RequestRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewRequestRepository cria uma nova instância do repositório
func NewRequestRepository(db *DB, logger *logrus.Logger) *RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// CreateTx insere uma nova requisição dentro de uma transação
func (r *RequestRepository) CreateTx(tx *sql.Tx, req *models.Request) (*models.Request, error) {
	query := `
		INSERT INTO requests (message_id, created_by, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	req.CreatedAt = time.Now()
	err := tx.QueryRow(query, req.MessageID, req.CreatedBy, req.CreatedAt).Scan(&req.ID)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	return req, nil
}

const requestColumns = `id, message_id, created_by, created_at, updated_at`

// GetByID busca uma requisição por ID; retorna nil quando não existe
func (r *RequestRepository) GetByID(id int64) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1 AND is_deleted = false`

	var req models.Request
	err := r.db.QueryRowWithTimeout(query, id).Scan(
		&req.ID, &req.MessageID, &req.CreatedBy, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying request: %w", err)
	}

	return &req, nil
}

// GetByMessageID busca a requisição vinculada a uma mensagem (vínculo 1:1)
func (r *RequestRepository) GetByMessageID(messageID int64) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE message_id = $1 AND is_deleted = false`

	var req models.Request
	err := r.db.QueryRowWithTimeout(query, messageID).Scan(
		&req.ID, &req.MessageID, &req.CreatedBy, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying request by message: %w", err)
	}

	return &req, nil
}

// GetByMessageIDs retorna as requisições indexadas por message_id
func (r *RequestRepository) GetByMessageIDs(messageIDs []int64) (map[int64]*models.Request, error) {
	out := make(map[int64]*models.Request)
	if len(messageIDs) == 0 {
		return out, nil
	}

	query := `SELECT ` + requestColumns + ` FROM requests WHERE message_id = ANY($1) AND is_deleted = false`

	rows, err := r.db.QueryWithTimeout(query, pq.Array(messageIDs))
	if err != nil {
		return nil, fmt.Errorf("error querying requests by messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var req models.Request
		err := rows.Scan(&req.ID, &req.MessageID, &req.CreatedBy, &req.CreatedAt, &req.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning request: %w", err)
		}
		out[req.MessageID] = &req
	}

	return out, nil
}

// Touch atualiza o updated_at da requisição
func (r *RequestRepository) Touch(id int64) error {
	query := `UPDATE requests SET updated_at = $1 WHERE id = $2`

	if _, err := r.db.ExecWithTimeout(query, time.Now(), id); err != nil {
		return fmt.Errorf("error touching request: %w", err)
	}
	return nil
}

// SoftDeleteCascade marca a requisição, seus itens e campos como removidos,
// tudo na mesma transação.
func (r *RequestRepository) SoftDeleteCascade(id int64) error {
	return r.db.WithTransaction(func(tx *sql.Tx) error {
		now := time.Now()

		result, err := tx.Exec(
			`UPDATE requests SET is_deleted = true, updated_at = $1 WHERE id = $2 AND is_deleted = false`,
			now, id,
		)
		if err != nil {
			return fmt.Errorf("error deleting request: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("error getting rows affected: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}

		_, err = tx.Exec(`
			UPDATE request_item_fields SET is_deleted = true, updated_at = $1
			WHERE request_item_id IN (SELECT id FROM request_items WHERE request_id = $2)
		`, now, id)
		if err != nil {
			return fmt.Errorf("error deleting request item fields: %w", err)
		}

		_, err = tx.Exec(
			`UPDATE request_items SET is_deleted = true, updated_at = $1 WHERE request_id = $2`,
			now, id,
		)
		if err != nil {
			return fmt.Errorf("error deleting request items: %w", err)
		}

		return nil
	})
}
