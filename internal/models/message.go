package models

import "time"

// IDs da tabela message_types (seed fixo)
const (
	MessageTypeText    int64 = 1
	MessageTypeRequest int64 = 2
	MessageTypeSystem  int64 = 3
)

// Message representa uma mensagem dentro de uma conversa
type Message struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       int64      `json:"sender_id"`
	MessageTypeID  int64      `json:"message_type_id"`
	Body           *string    `json:"body"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
	IsDeleted      bool       `json:"-"`
}

// MessageFile representa os metadados de um anexo
type MessageFile struct {
	ID           int64     `json:"id"`
	MessageID    int64     `json:"message_id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	ContentType  *string   `json:"content_type"`
	SizeBytes    *int64    `json:"size_bytes"`
	SHA256       *string   `json:"sha256"`
	CreatedAt    time.Time `json:"created_at"`
	IsDeleted    bool      `json:"-"`
}

// MessageRow é a mensagem com remetente, anexos e request embutidos
type MessageRow struct {
	Message *Message      `json:"message"`
	Sender  *UserMini     `json:"sender"`
	Files   []MessageFile `json:"files"`
	Request *Request      `json:"request,omitempty"`
	IsRead  bool          `json:"is_read"`
}

// MessageFilePayload referencia um upload já armazenado
type MessageFilePayload struct {
	OriginalName string  `json:"original_name" binding:"required"`
	StoredName   string  `json:"stored_name" binding:"required"`
	ContentType  *string `json:"content_type"`
	SizeBytes    *int64  `json:"size_bytes"`
	SHA256       *string `json:"sha256"`
}

// CreateMessageRequest representa o payload de criação de mensagem.
// Uma mensagem pode carregar texto, anexos e/ou uma requisição embutida.
type CreateMessageRequest struct {
	MessageTypeID int64                `json:"message_type_id" binding:"required"`
	Body          *string              `json:"body"`
	Files         []MessageFilePayload `json:"files"`
	CreateRequest bool                 `json:"create_request"`
	RequestItems  []RequestItemPayload `json:"request_items"`
}

// MarkReadRequest representa o payload de marcação de leitura
type MarkReadRequest struct {
	MessageIDs []int64 `json:"message_ids" binding:"required"`
}
