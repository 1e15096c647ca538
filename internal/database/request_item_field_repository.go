package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// RequestItemFieldRepository cuida das operações de banco para RequestItemField
type RequestItemFieldRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewRequestItemFieldRepository cria uma nova instância do repositório
func NewRequestItemFieldRepository(db *DB, logger *logrus.Logger) *RequestItemFieldRepository {
	return &RequestItemFieldRepository{
		db:     db,
		logger: logger,
	}
}

const fieldInsertQuery = `
	INSERT INTO request_item_fields (
		request_item_id, field_type_id, field_tag, field_value, field_flag, created_at
	) VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id
`

// Create insere um novo campo
func (r *RequestItemFieldRepository) Create(field *models.RequestItemField) (*models.RequestItemField, error) {
	field.CreatedAt = time.Now()
	err := r.db.QueryRowWithTimeout(fieldInsertQuery,
		field.RequestItemID, field.FieldTypeID, field.FieldTag,
		field.FieldValue, field.FieldFlag, field.CreatedAt,
	).Scan(&field.ID)

	if err != nil {
		return nil, fmt.Errorf("error creating request item field: %w", err)
	}

	return field, nil
}

// CreateManyTx insere os campos de um item dentro de uma transação
func (r *RequestItemFieldRepository) CreateManyTx(tx *sql.Tx, itemID int64, fields []models.RequestItemFieldPayload) ([]models.RequestItemField, error) {
	now := time.Now()
	out := make([]models.RequestItemField, 0, len(fields))
	for _, f := range fields {
		field := models.RequestItemField{
			RequestItemID: itemID,
			FieldTypeID:   f.FieldTypeID,
			FieldTag:      f.FieldTag,
			FieldValue:    f.FieldValue,
			FieldFlag:     f.FieldFlag,
			CreatedAt:     now,
		}
		err := tx.QueryRow(fieldInsertQuery,
			field.RequestItemID, field.FieldTypeID, field.FieldTag,
			field.FieldValue, field.FieldFlag, field.CreatedAt,
		).Scan(&field.ID)
		if err != nil {
			return nil, fmt.Errorf("error creating request item field: %w", err)
		}
		out = append(out, field)
	}

	return out, nil
}

const fieldColumns = `id, request_item_id, field_type_id, field_tag, field_value, field_flag, created_at, updated_at`

// GetByID busca um campo por ID; retorna nil quando não existe
func (r *RequestItemFieldRepository) GetByID(id int64) (*models.RequestItemField, error) {
	query := `SELECT ` + fieldColumns + ` FROM request_item_fields WHERE id = $1 AND is_deleted = false`

	var field models.RequestItemField
	err := r.db.QueryRowWithTimeout(query, id).Scan(
		&field.ID, &field.RequestItemID, &field.FieldTypeID, &field.FieldTag,
		&field.FieldValue, &field.FieldFlag, &field.CreatedAt, &field.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying request item field: %w", err)
	}

	return &field, nil
}

// ListByItemID retorna os campos ativos de um item
func (r *RequestItemFieldRepository) ListByItemID(itemID int64) ([]models.RequestItemField, error) {
	byItem, err := r.ListByItemIDs([]int64{itemID})
	if err != nil {
		return nil, err
	}
	return byItem[itemID], nil
}

// ListByItemIDs retorna os campos agrupados por item
func (r *RequestItemFieldRepository) ListByItemIDs(itemIDs []int64) (map[int64][]models.RequestItemField, error) {
	out := make(map[int64][]models.RequestItemField)
	if len(itemIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT ` + fieldColumns + `
		FROM request_item_fields
		WHERE request_item_id = ANY($1) AND is_deleted = false
		ORDER BY id ASC
	`

	rows, err := r.db.QueryWithTimeout(query, pq.Array(itemIDs))
	if err != nil {
		return nil, fmt.Errorf("error querying request item fields: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var field models.RequestItemField
		err := rows.Scan(
			&field.ID, &field.RequestItemID, &field.FieldTypeID, &field.FieldTag,
			&field.FieldValue, &field.FieldFlag, &field.CreatedAt, &field.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning request item field: %w", err)
		}
		out[field.RequestItemID] = append(out[field.RequestItemID], field)
	}

	return out, nil
}

// Update grava valor e flag do campo
func (r *RequestItemFieldRepository) Update(field *models.RequestItemField) error {
	query := `
		UPDATE request_item_fields
		SET field_value = $1, field_flag = $2, updated_at = $3
		WHERE id = $4 AND is_deleted = false
	`

	now := time.Now()
	result, err := r.db.ExecWithTimeout(query, field.FieldValue, field.FieldFlag, now, field.ID)
	if err != nil {
		return fmt.Errorf("error updating request item field: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	field.UpdatedAt = &now
	return nil
}

// SoftDelete marca o campo como removido
func (r *RequestItemFieldRepository) SoftDelete(id int64) error {
	query := `UPDATE request_item_fields SET is_deleted = true, updated_at = $1 WHERE id = $2 AND is_deleted = false`

	result, err := r.db.ExecWithTimeout(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("error deleting request item field: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
