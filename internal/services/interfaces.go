package services

import (
	"database/sql"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
)

// As interfaces abaixo espelham os repositórios de internal/database.
// Os serviços dependem delas para que a lógica de negócio possa ser
// exercitada em teste sem banco.

// TxRunner executa uma função dentro de uma transação
type TxRunner interface {
	WithTransaction(fn func(*sql.Tx) error) error
}

// RequestStore persiste requisições
type RequestStore interface {
	CreateTx(tx *sql.Tx, req *models.Request) (*models.Request, error)
	GetByID(id int64) (*models.Request, error)
	GetByMessageID(messageID int64) (*models.Request, error)
	GetByMessageIDs(messageIDs []int64) (map[int64]*models.Request, error)
	Touch(id int64) error
	SoftDeleteCascade(id int64) error
}

// RequestItemStore persiste itens de requisição
type RequestItemStore interface {
	CreateTx(tx *sql.Tx, item *models.RequestItem) (*models.RequestItem, error)
	Create(item *models.RequestItem) (*models.RequestItem, error)
	GetByID(id int64) (*models.RequestItem, error)
	ListViewsByRequestID(requestID int64) ([]models.RequestItemView, error)
	UpdateTypeAndProduct(item *models.RequestItem) error
	SetStatus(id int64, status models.RequestStatus) error
	SetProductAndStatusTx(tx *sql.Tx, id, productID int64, status models.RequestStatus) error
	Touch(id int64) error
	SoftDelete(id int64) error
	ListForPage(filter *models.RequestItemListFilter) ([]models.RequestItemListRow, int64, error)
}

// RequestItemFieldStore persiste campos de item
type RequestItemFieldStore interface {
	Create(field *models.RequestItemField) (*models.RequestItemField, error)
	CreateManyTx(tx *sql.Tx, itemID int64, fields []models.RequestItemFieldPayload) ([]models.RequestItemField, error)
	GetByID(id int64) (*models.RequestItemField, error)
	ListByItemID(itemID int64) ([]models.RequestItemField, error)
	ListByItemIDs(itemIDs []int64) (map[int64][]models.RequestItemField, error)
	Update(field *models.RequestItemField) error
	SoftDelete(id int64) error
}

// ProductStore persiste produtos materializados
type ProductStore interface {
	CreateTx(tx *sql.Tx) (*models.Product, error)
	FindIDByCodigoAtualTx(tx *sql.Tx, code string) (*int64, error)
	GetFieldByTagTx(tx *sql.Tx, productID int64, tag string) (*models.ProductField, error)
	CreateFieldTx(tx *sql.Tx, field *models.ProductField) (*models.ProductField, error)
	UpdateFieldTx(tx *sql.Tx, fieldID int64, fieldTypeID int64, value, flag *string) error
	TouchTx(tx *sql.Tx, productID int64) error
	GetByID(id int64) (*models.Product, error)
	ListFieldsByProductID(productID int64) ([]models.ProductField, error)
	ListPage(search string, limit, offset int) ([]models.ProductListRow, int64, error)
}

// TotvsCatalog consulta o catálogo de produtos do ERP
type TotvsCatalog interface {
	GetByCode(code string) (*models.TotvsProduct, error)
	Search(term string, limit int) ([]models.TotvsProduct, error)
}

// MessageStore é o recorte de mensagens usado fora do MessageService
type MessageStore interface {
	GetByID(id int64) (*models.Message, error)
}

// ConversationStore é o recorte de conversas usado fora do ConversationService
type ConversationStore interface {
	GetByID(id int64) (*models.Conversation, error)
	Touch(id int64) error
}

// UserStore persiste usuários
type UserStore interface {
	Create(user *models.User) (*models.User, error)
	GetByID(id int64) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	List() ([]models.User, error)
	Update(user *models.User) error
	TouchLastLogin(id int64) error
	SoftDelete(id int64) error
}

// TokenStore persiste refresh tokens e a blacklist de access tokens
type TokenStore interface {
	CreateRefreshToken(token *models.RefreshToken) error
	GetActiveRefreshTokenByHash(tokenHash string) (*models.RefreshToken, error)
	RevokeRefreshToken(id int64, replacedByJTI *string, reason string) error
	RevokeAllRefreshTokens(userID int64, reason string) error
	RevokeAccessToken(token *models.RevokedToken) error
	IsAccessTokenRevoked(jti string) (bool, error)
	PurgeExpired() error
}

// RevocationCache acelera a checagem de jti revogado (Redis); pode ser nil
type RevocationCache interface {
	SetWithTTL(key string, value interface{}, ttl time.Duration) error
	Exists(key string) (bool, error)
}

// AuditSink registra a trilha de auditoria (best-effort, pós-commit)
type AuditSink interface {
	Record(actor models.Actor, entityName string, entityID int64, actionName, details string)
}

// Notifier entrega eventos em tempo real (best-effort, pós-commit)
type Notifier interface {
	RequestCreated(ev models.RequestCreatedEvent)
	RequestItemChanged(ev models.RequestItemChangedEvent)
	ProductChanged(ev models.ProductChangedEvent)
	MessageCreated(ev models.MessageCreatedEvent)
	MessageRead(ev models.MessageReadEvent)
	ConversationCreated(ev models.ConversationCreatedEvent)
}
