package models

// Tipos de mudança emitidos em RequestItemChangedEvent
const (
	ChangeKindStatus = "STATUS"
	ChangeKindItem   = "ITEM"
	ChangeKindFields = "FIELDS"
)

// RequestCreatedEvent é emitido após criar uma requisição
type RequestCreatedEvent struct {
	RequestID      int64        `json:"request_id"`
	MessageID      int64        `json:"message_id"`
	ConversationID int64        `json:"conversation_id"`
	CreatedBy      int64        `json:"created_by"`
	CreatedAt      string       `json:"created_at"`
	Request        *RequestView `json:"request,omitempty"`
}

// RequestItemChangedEvent é emitido após qualquer mutação de item/campo/status
type RequestItemChangedEvent struct {
	RequestID       int64        `json:"request_id"`
	ItemID          int64        `json:"item_id"`
	MessageID       int64        `json:"message_id"`
	ConversationID  int64        `json:"conversation_id"`
	ChangedBy       int64        `json:"changed_by"`
	ChangeKind      string       `json:"change_kind"`
	RequestStatusID *int64       `json:"request_status_id"`
	UpdatedAt       string       `json:"updated_at"`
	Request         *RequestView `json:"request,omitempty"`
}

// MessageCreatedEvent é emitido após criar uma mensagem
type MessageCreatedEvent struct {
	ConversationID int64   `json:"conversation_id"`
	MessageID      int64   `json:"message_id"`
	SenderID       int64   `json:"sender_id"`
	Body           *string `json:"body"`
	CreatedAt      string  `json:"created_at"`
}

// MessageReadEvent é emitido quando o participante avança o marcador de leitura
type MessageReadEvent struct {
	ConversationID    int64 `json:"conversation_id"`
	UserID            int64 `json:"user_id"`
	LastReadMessageID int64 `json:"last_read_message_id"`
}

// ConversationCreatedEvent é emitido após criar uma conversa
type ConversationCreatedEvent struct {
	ConversationID int64            `json:"conversation_id"`
	Title          string           `json:"title"`
	CreatedBy      int64            `json:"created_by"`
	AssignedTo     *int64           `json:"assigned_to"`
	CreatedAt      string           `json:"created_at"`
	Conversation   *ConversationRow `json:"conversation,omitempty"`
}

// ProductChangedEvent é emitido após materializar um produto na finalização
type ProductChangedEvent struct {
	ProductID   int64  `json:"product_id"`
	Created     bool   `json:"created"`
	CodigoAtual string `json:"codigo_atual"`
	Descricao   string `json:"descricao"`
	ItemID      int64  `json:"item_id"`
	ChangedBy   int64  `json:"changed_by"`
}
