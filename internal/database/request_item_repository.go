package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// RequestItemRepository cuida das operações de banco para RequestItem
type RequestItemRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewRequestItemRepository cria uma nova instância do repositório
func NewRequestItemRepository(db *DB, logger *logrus.Logger) *RequestItemRepository {
	return &RequestItemRepository{
		db:     db,
		logger: logger,
	}
}

// CreateTx insere um novo item dentro de uma transação
func (r *RequestItemRepository) CreateTx(tx *sql.Tx, item *models.RequestItem) (*models.RequestItem, error) {
	query := `
		INSERT INTO request_items (request_id, request_type_id, request_status_id, product_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	item.CreatedAt = time.Now()
	err := tx.QueryRow(query,
		item.RequestID, item.RequestTypeID, item.RequestStatusID, item.ProductID, item.CreatedAt,
	).Scan(&item.ID)

	if err != nil {
		return nil, fmt.Errorf("error creating request item: %w", err)
	}

	return item, nil
}

// Create insere um novo item fora de transação
func (r *RequestItemRepository) Create(item *models.RequestItem) (*models.RequestItem, error) {
	query := `
		INSERT INTO request_items (request_id, request_type_id, request_status_id, product_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	item.CreatedAt = time.Now()
	err := r.db.QueryRowWithTimeout(query,
		item.RequestID, item.RequestTypeID, item.RequestStatusID, item.ProductID, item.CreatedAt,
	).Scan(&item.ID)

	if err != nil {
		return nil, fmt.Errorf("error creating request item: %w", err)
	}

	return item, nil
}

const requestItemColumns = `id, request_id, request_type_id, request_status_id, product_id, created_at, updated_at`

// GetByID busca um item por ID; retorna nil quando não existe
func (r *RequestItemRepository) GetByID(id int64) (*models.RequestItem, error) {
	query := `SELECT ` + requestItemColumns + ` FROM request_items WHERE id = $1 AND is_deleted = false`

	var item models.RequestItem
	err := r.db.QueryRowWithTimeout(query, id).Scan(
		&item.ID, &item.RequestID, &item.RequestTypeID, &item.RequestStatusID,
		&item.ProductID, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying request item: %w", err)
	}

	return &item, nil
}

// ListViewsByRequestID retorna os itens da requisição com os rótulos de
// tipo e status carregados (sem os campos).
func (r *RequestItemRepository) ListViewsByRequestID(requestID int64) ([]models.RequestItemView, error) {
	query := `
		SELECT i.id, i.request_id, i.request_type_id, i.request_status_id, i.product_id,
		       i.created_at, i.updated_at,
		       t.id, t.type_name, s.id, s.status_name
		FROM request_items i
		JOIN request_types t ON t.id = i.request_type_id
		JOIN request_statuses s ON s.id = i.request_status_id
		WHERE i.request_id = $1 AND i.is_deleted = false
		ORDER BY i.id ASC
	`

	rows, err := r.db.QueryWithTimeout(query, requestID)
	if err != nil {
		return nil, fmt.Errorf("error querying request items: %w", err)
	}
	defer rows.Close()

	var out []models.RequestItemView
	for rows.Next() {
		var view models.RequestItemView
		var typ models.TypeMini
		var status models.StatusMini
		err := rows.Scan(
			&view.ID, &view.RequestID, &view.RequestTypeID, &view.RequestStatusID,
			&view.ProductID, &view.CreatedAt, &view.UpdatedAt,
			&typ.ID, &typ.TypeName, &status.ID, &status.StatusName,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning request item: %w", err)
		}
		view.RequestType = &typ
		view.RequestStatus = &status
		out = append(out, view)
	}

	return out, nil
}

// UpdateTypeAndProduct altera o tipo e/ou o produto alvo do item
func (r *RequestItemRepository) UpdateTypeAndProduct(item *models.RequestItem) error {
	query := `
		UPDATE request_items
		SET request_type_id = $1, product_id = $2, updated_at = $3
		WHERE id = $4 AND is_deleted = false
	`

	now := time.Now()
	result, err := r.db.ExecWithTimeout(query, item.RequestTypeID, item.ProductID, now, item.ID)
	if err != nil {
		return fmt.Errorf("error updating request item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	item.UpdatedAt = &now
	return nil
}

// SetStatus grava o novo status do item
func (r *RequestItemRepository) SetStatus(id int64, status models.RequestStatus) error {
	query := `
		UPDATE request_items
		SET request_status_id = $1, updated_at = $2
		WHERE id = $3 AND is_deleted = false
	`

	result, err := r.db.ExecWithTimeout(query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("error updating request item status: %w", err)
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

// SetProductAndStatusTx grava o produto materializado e o status final do
// item em um único update, na mesma transação da materialização.
func (r *RequestItemRepository) SetProductAndStatusTx(tx *sql.Tx, id, productID int64, status models.RequestStatus) error {
	query := `
		UPDATE request_items
		SET product_id = $1, request_status_id = $2, updated_at = $3
		WHERE id = $4 AND is_deleted = false
	`

	result, err := tx.Exec(query, productID, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("error finalizing request item: %w", err)
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

// Touch atualiza o updated_at do item (edição de campos)
func (r *RequestItemRepository) Touch(id int64) error {
	query := `UPDATE request_items SET updated_at = $1 WHERE id = $2`

	if _, err := r.db.ExecWithTimeout(query, time.Now(), id); err != nil {
		return fmt.Errorf("error touching request item: %w", err)
	}
	return nil
}

// SoftDelete marca o item e seus campos como removidos
func (r *RequestItemRepository) SoftDelete(id int64) error {
	return r.db.WithTransaction(func(tx *sql.Tx) error {
		now := time.Now()

		result, err := tx.Exec(
			`UPDATE request_items SET is_deleted = true, updated_at = $1 WHERE id = $2 AND is_deleted = false`,
			now, id,
		)
		if err != nil {
			return fmt.Errorf("error deleting request item: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("error getting rows affected: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}

		_, err = tx.Exec(
			`UPDATE request_item_fields SET is_deleted = true, updated_at = $1 WHERE request_item_id = $2`,
			now, id,
		)
		if err != nil {
			return fmt.Errorf("error deleting request item fields: %w", err)
		}

		return nil
	})
}

// buildListFilter monta o WHERE e os argumentos da listagem paginada
func buildListFilter(filter *models.RequestItemListFilter) (string, []interface{}) {
	clauses := []string{"i.is_deleted = false", "r.is_deleted = false"}
	args := []interface{}{}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.StatusID != nil {
		add("i.request_status_id = $%d", *filter.StatusID)
	}
	if filter.TypeID != nil {
		add("i.request_type_id = $%d", *filter.TypeID)
	}
	if filter.TypeQuery != "" {
		add("t.type_name ILIKE $%d", "%"+filter.TypeQuery+"%")
	}
	if filter.ItemID != nil {
		add("i.id = $%d", *filter.ItemID)
	}
	if filter.CreatedByUserID != nil {
		add("r.created_by = $%d", *filter.CreatedByUserID)
	}
	if filter.CreatedByName != "" {
		args = append(args, "%"+filter.CreatedByName+"%")
		clauses = append(clauses, fmt.Sprintf(
			"(u.full_name ILIKE $%d OR u.email ILIKE $%d)", len(args), len(args)))
	}

	// AUTO considera a data mais recente do item; CREATED/UPDATED fixam a coluna
	dateExpr := "COALESCE(i.updated_at, i.created_at)"
	switch filter.DateMode {
	case models.DateModeCreated:
		dateExpr = "i.created_at"
	case models.DateModeUpdated:
		dateExpr = "i.updated_at"
	}
	if filter.DateFrom != nil {
		add(dateExpr+" >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add(dateExpr+" <= $%d", *filter.DateTo)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

const listItemsFrom = `
	FROM request_items i
	JOIN requests r ON r.id = i.request_id
	JOIN messages m ON m.id = r.message_id
	JOIN users u ON u.id = r.created_by
	JOIN request_types t ON t.id = i.request_type_id
	JOIN request_statuses s ON s.id = i.request_status_id
`

// ListForPage retorna a página de itens segundo os filtros, com o total
func (r *RequestItemRepository) ListForPage(filter *models.RequestItemListFilter) ([]models.RequestItemListRow, int64, error) {
	where, args := buildListFilter(filter)

	var total int64
	countQuery := `SELECT COUNT(*)` + listItemsFrom + where
	if err := r.db.QueryRowWithTimeout(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting request items: %w", err)
	}

	query := `
		SELECT r.id, r.created_by, r.created_at, r.updated_at,
		       u.id, u.full_name, u.email, u.role_id,
		       m.id, m.conversation_id,
		       i.id, i.request_type_id, i.request_status_id, i.product_id,
		       i.created_at, i.updated_at,
		       t.type_name, s.status_name
	` + listItemsFrom + where + fmt.Sprintf(`
		ORDER BY COALESCE(i.updated_at, i.created_at) DESC, i.id DESC
		LIMIT $%d OFFSET $%d
	`, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryWithTimeout(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error querying request items page: %w", err)
	}
	defer rows.Close()

	var out []models.RequestItemListRow
	for rows.Next() {
		var row models.RequestItemListRow
		var creator models.UserMini
		var typeName, statusName string
		err := rows.Scan(
			&row.RequestID, &row.RequestCreatedBy, &row.RequestCreatedAt, &row.RequestUpdatedAt,
			&creator.ID, &creator.FullName, &creator.Email, &creator.RoleID,
			&row.MessageID, &row.ConversationID,
			&row.ItemID, &row.RequestTypeID, &row.RequestStatusID, &row.ProductID,
			&row.ItemCreatedAt, &row.ItemUpdatedAt,
			&typeName, &statusName,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning request item row: %w", err)
		}
		row.Creator = &creator
		row.RequestType = &models.TypeMini{ID: row.RequestTypeID, TypeName: typeName}
		row.RequestStatus = &models.StatusMini{ID: row.RequestStatusID, StatusName: statusName}
		out = append(out, row)
	}

	return out, total, nil
}
