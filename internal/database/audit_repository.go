package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// AuditRepository cuida das operações de banco para a trilha de auditoria
type AuditRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewAuditRepository cria uma nova instância do repositório
func NewAuditRepository(db *DB, logger *logrus.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create insere uma entrada de auditoria
func (r *AuditRepository) Create(entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (entity_name, entity_id, action_name, details, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	entry.CreatedAt = time.Now()
	err := r.db.QueryRowWithTimeout(query,
		entry.EntityName, entry.EntityID, entry.ActionName,
		entry.Details, entry.UserID, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("error creating audit log: %w", err)
	}

	return nil
}

// ListPage retorna a página de auditoria, filtrando por entidade e usuário
func (r *AuditRepository) ListPage(entityName string, entityID, userID *int64, limit, offset int) ([]models.AuditLog, int64, error) {
	clauses := []string{"1=1"}
	args := []interface{}{}

	if entityName != "" {
		args = append(args, entityName)
		clauses = append(clauses, fmt.Sprintf("entity_name = $%d", len(args)))
	}
	if entityID != nil {
		args = append(args, *entityID)
		clauses = append(clauses, fmt.Sprintf("entity_id = $%d", len(args)))
	}
	if userID != nil {
		args = append(args, *userID)
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int64
	if err := r.db.QueryRowWithTimeout(`SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting audit logs: %w", err)
	}

	query := `
		SELECT id, entity_name, entity_id, action_name, details, user_id, created_at
		FROM audit_logs
	` + where + fmt.Sprintf(` ORDER BY id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryWithTimeout(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error querying audit logs: %w", err)
	}
	defer rows.Close()

	var out []models.AuditLog
	for rows.Next() {
		var entry models.AuditLog
		err := rows.Scan(
			&entry.ID, &entry.EntityName, &entry.EntityID, &entry.ActionName,
			&entry.Details, &entry.UserID, &entry.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning audit log: %w", err)
		}
		out = append(out, entry)
	}

	return out, total, nil
}
