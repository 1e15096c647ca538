package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// ConversationRepository cuida das operações de banco para Conversation
// e para a tabela de participantes associada.
type ConversationRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewConversationRepository cria uma nova instância do repositório
func NewConversationRepository(db *DB, logger *logrus.Logger) *ConversationRepository {
	return &ConversationRepository{
		db:     db,
		logger: logger,
	}
}

// Create insere uma nova conversa
func (r *ConversationRepository) Create(conv *models.Conversation) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (title, created_by, assigned_to, has_flag, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	conv.CreatedAt = time.Now()
	err := r.db.QueryRowWithTimeout(query,
		conv.Title, conv.CreatedBy, conv.AssignedTo, conv.HasFlag, conv.CreatedAt,
	).Scan(&conv.ID)

	if err != nil {
		return nil, fmt.Errorf("error creating conversation: %w", err)
	}

	return conv, nil
}

// GetByID busca uma conversa por ID; retorna nil quando não existe
func (r *ConversationRepository) GetByID(id int64) (*models.Conversation, error) {
	query := `
		SELECT id, title, created_by, assigned_to, has_flag, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND is_deleted = false
	`

	var conv models.Conversation
	err := r.db.QueryRowWithTimeout(query, id).Scan(
		&conv.ID, &conv.Title, &conv.CreatedBy, &conv.AssignedTo,
		&conv.HasFlag, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying conversation: %w", err)
	}

	return &conv, nil
}

const conversationRowQuery = `
	SELECT c.id, c.title, c.created_by, c.assigned_to, c.has_flag, c.created_at, c.updated_at,
	       cr.id, cr.full_name, cr.email, cr.role_id,
	       au.id, au.full_name, au.email, au.role_id
	FROM conversations c
	JOIN users cr ON cr.id = c.created_by
	LEFT JOIN users au ON au.id = c.assigned_to
`

func scanConversationRow(row interface{ Scan(...interface{}) error }) (*models.ConversationRow, error) {
	var conv models.Conversation
	var creator models.UserMini
	var assigneeID sql.NullInt64
	var assigneeName, assigneeEmail sql.NullString
	var assigneeRole sql.NullInt64

	err := row.Scan(
		&conv.ID, &conv.Title, &conv.CreatedBy, &conv.AssignedTo,
		&conv.HasFlag, &conv.CreatedAt, &conv.UpdatedAt,
		&creator.ID, &creator.FullName, &creator.Email, &creator.RoleID,
		&assigneeID, &assigneeName, &assigneeEmail, &assigneeRole,
	)
	if err != nil {
		return nil, err
	}

	out := &models.ConversationRow{Conversation: &conv, Creator: &creator}
	if assigneeID.Valid {
		out.Assignee = &models.UserMini{
			ID:       assigneeID.Int64,
			FullName: assigneeName.String,
			Email:    assigneeEmail.String,
			RoleID:   models.Role(assigneeRole.Int64),
		}
	}
	return out, nil
}

// GetRowByID busca a conversa com criador e responsável carregados
func (r *ConversationRepository) GetRowByID(id int64) (*models.ConversationRow, error) {
	query := conversationRowQuery + ` WHERE c.id = $1 AND c.is_deleted = false`

	row, err := scanConversationRow(r.db.QueryRowWithTimeout(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying conversation row: %w", err)
	}

	return row, nil
}

// ListRows retorna as conversas visíveis. Para revisores (forUserID nil)
// retorna todas; para um usuário comum, apenas as criadas por ele.
func (r *ConversationRepository) ListRows(forUserID *int64) ([]models.ConversationRow, error) {
	query := conversationRowQuery + ` WHERE c.is_deleted = false`
	args := []interface{}{}
	if forUserID != nil {
		query += ` AND c.created_by = $1`
		args = append(args, *forUserID)
	}
	query += ` ORDER BY COALESCE(c.updated_at, c.created_at) DESC, c.id DESC`

	rows, err := r.db.QueryWithTimeout(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer rows.Close()

	var out []models.ConversationRow
	for rows.Next() {
		row, err := scanConversationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning conversation: %w", err)
		}
		out = append(out, *row)
	}

	return out, nil
}

// Update atualiza título, flag e responsável
func (r *ConversationRepository) Update(conv *models.Conversation) error {
	query := `
		UPDATE conversations
		SET title = $1, has_flag = $2, assigned_to = $3, updated_at = $4
		WHERE id = $5 AND is_deleted = false
	`

	now := time.Now()
	result, err := r.db.ExecWithTimeout(query,
		conv.Title, conv.HasFlag, conv.AssignedTo, now, conv.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating conversation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	conv.UpdatedAt = &now
	return nil
}

// Touch atualiza o updated_at da conversa (nova atividade)
func (r *ConversationRepository) Touch(id int64) error {
	query := `UPDATE conversations SET updated_at = $1 WHERE id = $2`

	if _, err := r.db.ExecWithTimeout(query, time.Now(), id); err != nil {
		return fmt.Errorf("error touching conversation: %w", err)
	}
	return nil
}

// SoftDelete marca a conversa como removida
func (r *ConversationRepository) SoftDelete(id int64) error {
	query := `UPDATE conversations SET is_deleted = true, updated_at = $1 WHERE id = $2 AND is_deleted = false`

	result, err := r.db.ExecWithTimeout(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("error deleting conversation: %w", err)
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

// EnsureParticipant garante a linha de participação do usuário na conversa
func (r *ConversationRepository) EnsureParticipant(conversationID, userID int64) error {
	query := `
		INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`

	if _, err := r.db.ExecWithTimeout(query, conversationID, userID, time.Now()); err != nil {
		return fmt.Errorf("error ensuring participant: %w", err)
	}
	return nil
}

// GetParticipant busca a linha de participação; retorna nil quando não existe
func (r *ConversationRepository) GetParticipant(conversationID, userID int64) (*models.ConversationParticipant, error) {
	query := `
		SELECT id, conversation_id, user_id, last_read_message_id, joined_at
		FROM conversation_participants
		WHERE conversation_id = $1 AND user_id = $2
	`

	var p models.ConversationParticipant
	err := r.db.QueryRowWithTimeout(query, conversationID, userID).Scan(
		&p.ID, &p.ConversationID, &p.UserID, &p.LastReadMessageID, &p.JoinedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying participant: %w", err)
	}

	return &p, nil
}

// SetLastRead avança o ponteiro de leitura do participante. O ponteiro
// nunca regride: só grava quando o novo ID é maior que o atual.
func (r *ConversationRepository) SetLastRead(conversationID, userID, messageID int64) error {
	query := `
		UPDATE conversation_participants
		SET last_read_message_id = $1
		WHERE conversation_id = $2 AND user_id = $3
		  AND (last_read_message_id IS NULL OR last_read_message_id < $1)
	`

	if _, err := r.db.ExecWithTimeout(query, messageID, conversationID, userID); err != nil {
		return fmt.Errorf("error updating last read: %w", err)
	}
	return nil
}
