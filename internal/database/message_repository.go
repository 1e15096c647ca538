package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// MessageRepository cuida das operações de banco para Message e MessageFile
type MessageRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewMessageRepository cria uma nova instância do repositório
func NewMessageRepository(db *DB, logger *logrus.Logger) *MessageRepository {
	return &MessageRepository{
		db:     db,
		logger: logger,
	}
}

// CreateTx insere uma nova mensagem dentro de uma transação
func (r *MessageRepository) CreateTx(tx *sql.Tx, msg *models.Message) (*models.Message, error) {
	query := `
		INSERT INTO messages (conversation_id, sender_id, message_type_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	msg.CreatedAt = time.Now()
	err := tx.QueryRow(query,
		msg.ConversationID, msg.SenderID, msg.MessageTypeID, msg.Body, msg.CreatedAt,
	).Scan(&msg.ID)

	if err != nil {
		return nil, fmt.Errorf("error creating message: %w", err)
	}

	return msg, nil
}

// GetByID busca uma mensagem por ID; retorna nil quando não existe
func (r *MessageRepository) GetByID(id int64) (*models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, message_type_id, body, created_at, updated_at
		FROM messages
		WHERE id = $1 AND is_deleted = false
	`

	var msg models.Message
	err := r.db.QueryRowWithTimeout(query, id).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.MessageTypeID,
		&msg.Body, &msg.CreatedAt, &msg.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying message: %w", err)
	}

	return &msg, nil
}

const messageRowQuery = `
	SELECT m.id, m.conversation_id, m.sender_id, m.message_type_id, m.body,
	       m.created_at, m.updated_at,
	       u.id, u.full_name, u.email, u.role_id
	FROM messages m
	JOIN users u ON u.id = m.sender_id
`

func scanMessageRow(row interface{ Scan(...interface{}) error }) (*models.MessageRow, error) {
	var msg models.Message
	var sender models.UserMini

	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.MessageTypeID,
		&msg.Body, &msg.CreatedAt, &msg.UpdatedAt,
		&sender.ID, &sender.FullName, &sender.Email, &sender.RoleID,
	)
	if err != nil {
		return nil, err
	}

	return &models.MessageRow{Message: &msg, Sender: &sender}, nil
}

// GetRowByID busca a mensagem com o remetente carregado
func (r *MessageRepository) GetRowByID(id int64) (*models.MessageRow, error) {
	query := messageRowQuery + ` WHERE m.id = $1 AND m.is_deleted = false`

	row, err := scanMessageRow(r.db.QueryRowWithTimeout(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying message row: %w", err)
	}

	return row, nil
}

// ListRows retorna as mensagens da conversa em ordem cronológica
func (r *MessageRepository) ListRows(conversationID int64, limit, offset int) ([]models.MessageRow, error) {
	query := messageRowQuery + `
		WHERE m.conversation_id = $1 AND m.is_deleted = false
		ORDER BY m.id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryWithTimeout(query, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	var out []models.MessageRow
	for rows.Next() {
		row, err := scanMessageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		out = append(out, *row)
	}

	return out, nil
}

// MaxMessageID retorna o maior ID de mensagem da conversa (0 quando vazia)
func (r *MessageRepository) MaxMessageID(conversationID int64) (int64, error) {
	query := `
		SELECT COALESCE(MAX(id), 0)
		FROM messages
		WHERE conversation_id = $1 AND is_deleted = false
	`

	var maxID int64
	if err := r.db.QueryRowWithTimeout(query, conversationID).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("error querying max message id: %w", err)
	}
	return maxID, nil
}

// AddFilesTx insere os metadados dos anexos da mensagem dentro da transação
func (r *MessageRepository) AddFilesTx(tx *sql.Tx, messageID int64, files []models.MessageFilePayload) ([]models.MessageFile, error) {
	query := `
		INSERT INTO message_files (
			message_id, original_name, stored_name, content_type, size_bytes, sha256, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	out := make([]models.MessageFile, 0, len(files))
	for _, f := range files {
		file := models.MessageFile{
			MessageID:    messageID,
			OriginalName: f.OriginalName,
			StoredName:   f.StoredName,
			ContentType:  f.ContentType,
			SizeBytes:    f.SizeBytes,
			SHA256:       f.SHA256,
			CreatedAt:    now,
		}
		err := tx.QueryRow(query,
			file.MessageID, file.OriginalName, file.StoredName,
			file.ContentType, file.SizeBytes, file.SHA256, file.CreatedAt,
		).Scan(&file.ID)
		if err != nil {
			return nil, fmt.Errorf("error creating message file: %w", err)
		}
		out = append(out, file)
	}

	return out, nil
}

// ListFilesByMessageIDs retorna os anexos agrupados por mensagem
func (r *MessageRepository) ListFilesByMessageIDs(messageIDs []int64) (map[int64][]models.MessageFile, error) {
	out := make(map[int64][]models.MessageFile)
	if len(messageIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT id, message_id, original_name, stored_name, content_type, size_bytes, sha256, created_at
		FROM message_files
		WHERE message_id = ANY($1) AND is_deleted = false
		ORDER BY id ASC
	`

	rows, err := r.db.QueryWithTimeout(query, pq.Array(messageIDs))
	if err != nil {
		return nil, fmt.Errorf("error querying message files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f models.MessageFile
		err := rows.Scan(
			&f.ID, &f.MessageID, &f.OriginalName, &f.StoredName,
			&f.ContentType, &f.SizeBytes, &f.SHA256, &f.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning message file: %w", err)
		}
		out[f.MessageID] = append(out[f.MessageID], f)
	}

	return out, nil
}

// SoftDelete marca a mensagem e seus anexos como removidos
func (r *MessageRepository) SoftDelete(id int64) error {
	return r.db.WithTransaction(func(tx *sql.Tx) error {
		now := time.Now()
		result, err := tx.Exec(
			`UPDATE messages SET is_deleted = true, updated_at = $1 WHERE id = $2 AND is_deleted = false`,
			now, id,
		)
		if err != nil {
			return fmt.Errorf("error deleting message: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("error getting rows affected: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}

		if _, err := tx.Exec(
			`UPDATE message_files SET is_deleted = true WHERE message_id = $1 AND is_deleted = false`,
			id,
		); err != nil {
			return fmt.Errorf("error deleting message files: %w", err)
		}
		return nil
	})
}

// GetFileWithMessage busca um anexo e a mensagem dona (para checar acesso)
func (r *MessageRepository) GetFileWithMessage(fileID int64) (*models.MessageFile, *models.Message, error) {
	query := `
		SELECT f.id, f.message_id, f.original_name, f.stored_name, f.content_type,
		       f.size_bytes, f.sha256, f.created_at,
		       m.id, m.conversation_id, m.sender_id, m.message_type_id, m.body,
		       m.created_at, m.updated_at
		FROM message_files f
		JOIN messages m ON m.id = f.message_id
		WHERE f.id = $1 AND f.is_deleted = false AND m.is_deleted = false
	`

	var f models.MessageFile
	var msg models.Message
	err := r.db.QueryRowWithTimeout(query, fileID).Scan(
		&f.ID, &f.MessageID, &f.OriginalName, &f.StoredName,
		&f.ContentType, &f.SizeBytes, &f.SHA256, &f.CreatedAt,
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.MessageTypeID,
		&msg.Body, &msg.CreatedAt, &msg.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("error querying message file: %w", err)
	}

	return &f, &msg, nil
}
