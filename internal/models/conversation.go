package models

import "time"

// Conversation representa uma conversa entre usuário e equipe de cadastro
type Conversation struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	CreatedBy  int64      `json:"created_by"`
	AssignedTo *int64     `json:"assigned_to"`
	HasFlag    bool       `json:"has_flag"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
	IsDeleted  bool       `json:"-"`
}

// ConversationRow é a conversa com criador/responsável carregados para a UI
type ConversationRow struct {
	Conversation *Conversation `json:"conversation"`
	Creator      *UserMini     `json:"creator"`
	Assignee     *UserMini     `json:"assignee"`
}

// ConversationParticipant controla leitura por participante
type ConversationParticipant struct {
	ID                int64
	ConversationID    int64
	UserID            int64
	LastReadMessageID *int64
	JoinedAt          time.Time
}

// CreateConversationRequest representa o payload de criação de conversa
type CreateConversationRequest struct {
	Title      string `json:"title" binding:"required"`
	AssignedTo *int64 `json:"assigned_to"`
	HasFlag    bool   `json:"has_flag"`
}

// UpdateConversationRequest representa o payload de atualização de conversa
type UpdateConversationRequest struct {
	Title      *string `json:"title"`
	HasFlag    *bool   `json:"has_flag"`
	AssignedTo *int64  `json:"assigned_to"`
}
