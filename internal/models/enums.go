package models

// Role representa o papel do usuário no sistema.
// Os valores numéricos correspondem aos IDs da tabela roles.
type Role int64

const (
	RoleAdmin   Role = 1
	RoleAnalyst Role = 2
	RoleUser    Role = 3
)

// Valid indica se o papel é um dos papéis conhecidos
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAnalyst, RoleUser:
		return true
	}
	return false
}

// IsReviewer indica se o papel pode revisar solicitações (ADMIN/ANALYST)
func (r Role) IsReviewer() bool {
	switch r {
	case RoleAdmin, RoleAnalyst:
		return true
	case RoleUser:
		return false
	}
	return false
}

// String retorna o nome do papel
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "ADMIN"
	case RoleAnalyst:
		return "ANALYST"
	case RoleUser:
		return "USER"
	}
	return "UNKNOWN"
}

// RequestStatus representa o status de um item de solicitação.
// Os valores numéricos correspondem aos IDs da tabela request_statuses.
type RequestStatus int64

const (
	StatusCreated    RequestStatus = 1
	StatusInProgress RequestStatus = 2
	StatusFinalized  RequestStatus = 3
	StatusFailed     RequestStatus = 4
	StatusReturned   RequestStatus = 5
	StatusRejected   RequestStatus = 6
)

// Valid indica se o status é um dos status conhecidos
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusInProgress, StatusFinalized, StatusFailed, StatusReturned, StatusRejected:
		return true
	}
	return false
}

// Locked indica se o item está travado: FINALIZED/REJECTED nunca mais mudam
func (s RequestStatus) Locked() bool {
	switch s {
	case StatusFinalized, StatusRejected:
		return true
	case StatusCreated, StatusInProgress, StatusFailed, StatusReturned:
		return false
	}
	return false
}

// String retorna o nome do status
func (s RequestStatus) String() string {
	switch s {
	case StatusCreated:
		return "CREATED"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusFinalized:
		return "FINALIZED"
	case StatusFailed:
		return "FAILED"
	case StatusReturned:
		return "RETURNED"
	case StatusRejected:
		return "REJECTED"
	}
	return "UNKNOWN"
}

// RequestType representa o tipo de um item de solicitação (CREATE/UPDATE).
// Os valores numéricos correspondem aos IDs da tabela request_types.
type RequestType int64

const (
	TypeCreate RequestType = 1
	TypeUpdate RequestType = 2
)

// Valid indica se o tipo é um dos tipos conhecidos
func (t RequestType) Valid() bool {
	switch t {
	case TypeCreate, TypeUpdate:
		return true
	}
	return false
}

// String retorna o nome do tipo
func (t RequestType) String() string {
	switch t {
	case TypeCreate:
		return "CREATE"
	case TypeUpdate:
		return "UPDATE"
	}
	return "UNKNOWN"
}

// Actor identifica quem executa uma operação (sem estado ambiente global)
type Actor struct {
	UserID int64
	Role   Role
}

// Tags de campo com semântica especial no fluxo de cadastro
const (
	// FieldTagCodigoAtual é a chave de negócio do produto
	FieldTagCodigoAtual = "codigo_atual"
	// FieldTagNovoCodigo é o código novo em staging, consumido na finalização
	FieldTagNovoCodigo = "novo_codigo"
	FieldTagDescricao  = "descricao"
)
