package models

import "time"

// Request representa uma requisição de cadastro vinculada 1:1 a uma mensagem
type Request struct {
	ID        int64      `json:"id"`
	MessageID int64      `json:"message_id"`
	CreatedBy int64      `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	IsDeleted bool       `json:"-"`
}

// RequestItem é a unidade de trabalho da requisição; entidade da máquina de estados
type RequestItem struct {
	ID              int64         `json:"id"`
	RequestID       int64         `json:"request_id"`
	RequestTypeID   RequestType   `json:"request_type_id"`
	RequestStatusID RequestStatus `json:"request_status_id"`
	ProductID       *int64        `json:"product_id"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       *time.Time    `json:"updated_at"`
	IsDeleted       bool          `json:"-"`
}

// RequestItemField é um par chave/valor tipado anexado a um item
type RequestItemField struct {
	ID            int64      `json:"id"`
	RequestItemID int64      `json:"request_item_id"`
	FieldTypeID   int64      `json:"field_type_id"`
	FieldTag      string     `json:"field_tag"`
	FieldValue    *string    `json:"field_value"`
	FieldFlag     *string    `json:"field_flag"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
	IsDeleted     bool       `json:"-"`
}

// FieldType representa o tipo de campo do formulário (seed)
type FieldType struct {
	ID        int64  `json:"id"`
	TypeName  string `json:"type_name"`
	IsDeleted bool   `json:"-"`
}

// TypeMini / StatusMini são as projeções de rótulo usadas nos payloads
type TypeMini struct {
	ID       int64  `json:"id"`
	TypeName string `json:"type_name"`
}

type StatusMini struct {
	ID         int64  `json:"id"`
	StatusName string `json:"status_name"`
}

// RequestItemFieldPayload representa um campo no payload de criação
type RequestItemFieldPayload struct {
	FieldTypeID int64   `json:"field_type_id" binding:"required"`
	FieldTag    string  `json:"field_tag" binding:"required"`
	FieldValue  *string `json:"field_value"`
	FieldFlag   *string `json:"field_flag"`
}

// RequestItemPayload representa um item no payload de criação
type RequestItemPayload struct {
	RequestTypeID   int64                     `json:"request_type_id" binding:"required"`
	RequestStatusID int64                     `json:"request_status_id" binding:"required"`
	ProductID       *int64                    `json:"product_id"`
	Fields          []RequestItemFieldPayload `json:"fields"`
}

// CreateRequestRequest representa o payload de criação de requisição
type CreateRequestRequest struct {
	MessageID int64                `json:"message_id" binding:"required"`
	Items     []RequestItemPayload `json:"items" binding:"required"`
}

// UpdateRequestItemRequest altera o item em nível grosso (tipo/produto)
type UpdateRequestItemRequest struct {
	RequestTypeID *int64 `json:"request_type_id"`
	ProductID     *int64 `json:"product_id"`
}

// UpdateRequestItemFieldRequest altera valor/flag de um campo
type UpdateRequestItemFieldRequest struct {
	FieldValue *string `json:"field_value"`
	FieldFlag  *string `json:"field_flag"`
}

// SetFieldFlagRequest representa o payload de marcação de flag (revisores)
type SetFieldFlagRequest struct {
	FieldFlag *string `json:"field_flag"`
}

// ChangeItemStatusRequest representa o payload de transição de status
type ChangeItemStatusRequest struct {
	RequestStatusID int64 `json:"request_status_id" binding:"required"`
}

// RequestItemView é o item serializado com campos e rótulos
type RequestItemView struct {
	RequestItem
	RequestType   *TypeMini          `json:"request_type"`
	RequestStatus *StatusMini        `json:"request_status"`
	Fields        []RequestItemField `json:"fields"`
}

// RequestView é a requisição completa (request + itens + campos + rótulos)
type RequestView struct {
	Request
	Items []RequestItemView `json:"items"`
}

// DateMode controla qual data os filtros de período consideram
type DateMode string

const (
	DateModeAuto    DateMode = "AUTO"
	DateModeCreated DateMode = "CREATED"
	DateModeUpdated DateMode = "UPDATED"
)

// RequestItemListFilter agrupa os filtros da listagem paginada
type RequestItemListFilter struct {
	Limit           int
	Offset          int
	StatusID        *int64
	TypeID          *int64
	TypeQuery       string
	ItemID          *int64
	CreatedByUserID *int64
	CreatedByName   string
	DateFrom        *time.Time
	DateTo          *time.Time
	DateMode        DateMode
}

// RequestItemListRow é a linha da listagem com contexto de request/conversa
type RequestItemListRow struct {
	RequestID        int64       `json:"request_id"`
	RequestCreatedBy int64       `json:"request_created_by"`
	Creator          *UserMini   `json:"request_created_by_user"`
	RequestCreatedAt time.Time   `json:"request_created_at"`
	RequestUpdatedAt *time.Time  `json:"request_updated_at"`
	MessageID        int64       `json:"message_id"`
	ConversationID   int64       `json:"conversation_id"`
	ItemID           int64       `json:"item_id"`
	RequestTypeID    int64       `json:"request_type_id"`
	RequestStatusID  int64       `json:"request_status_id"`
	RequestType      *TypeMini   `json:"request_type"`
	RequestStatus    *StatusMini `json:"request_status"`
	ProductID        *int64      `json:"product_id"`
	ItemCreatedAt    time.Time   `json:"item_created_at"`
	ItemUpdatedAt    *time.Time  `json:"item_updated_at"`
}

// RequestItemListResponse é a página retornada pela listagem
type RequestItemListResponse struct {
	Items  []RequestItemListRow `json:"items"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}
