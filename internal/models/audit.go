package models

import "time"

// Entidades auditadas
const (
	AuditEntityRequest          = "REQUEST"
	AuditEntityRequestItem      = "REQUEST_ITEM"
	AuditEntityRequestItemField = "REQUEST_ITEM_FIELD"
	AuditEntityProduct          = "PRODUCT"
	AuditEntityConversation     = "CONVERSATION"
	AuditEntityMessage          = "MESSAGE"
	AuditEntityUser             = "USER"
	AuditEntityFile             = "FILE"
)

// Ações auditadas
const (
	AuditActionCreate       = "CREATE"
	AuditActionUpdate       = "UPDATE"
	AuditActionDelete       = "DELETE"
	AuditActionStatusChange = "STATUS_CHANGE"
	AuditActionResubmit     = "RESUBMIT"
	AuditActionFinalize     = "FINALIZE"
	AuditActionLogin        = "LOGIN"
	AuditActionLogout       = "LOGOUT"
)

// AuditLog representa uma entrada da trilha de auditoria
type AuditLog struct {
	ID         int64     `json:"id"`
	EntityName string    `json:"entity_name"`
	EntityID   *int64    `json:"entity_id"`
	ActionName string    `json:"action_name"`
	Details    *string   `json:"details"`
	UserID     *int64    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditListResponse é a página retornada pela consulta de auditoria
type AuditListResponse struct {
	Items  []AuditLog `json:"items"`
	Total  int64      `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}
