package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// Materializer converte um item finalizado no produto de cadastro. A
// materialização roda na mesma transação que trava o item.
type Materializer interface {
	Materialize(tx *sql.Tx, item *models.RequestItem, fields []models.RequestItemField) (*models.MaterializeResult, error)
}

// WorkflowEmitter publica eventos de finalização para o pipeline assíncrono
type WorkflowEmitter interface {
	EmitItemFinalized(ev models.ProductChangedEvent)
}

// RequestService concentra a lógica de negócio das requisições de cadastro:
// o ciclo de vida dos itens, as permissões por papel e a finalização.
//
// Regras estruturais:
//   - itens FINALIZED/REJECTED são imutáveis para sempre; o travamento é a
//     primeira checagem de toda mutação;
//   - editar campos nunca muda o status do item; o retorno de RETURNED para
//     CREATED acontece só pela resubmissão explícita do autor;
//   - product_id é gravado uma única vez, na finalização.
type RequestService struct {
	txRunner     TxRunner
	requestRepo  RequestStore
	itemRepo     RequestItemStore
	fieldRepo    RequestItemFieldStore
	messageRepo  MessageStore
	convRepo     ConversationStore
	materializer Materializer
	audit        AuditSink
	notifier     Notifier
	workflows    WorkflowEmitter
	logger       *logrus.Logger
}

// NewRequestService cria uma nova instância do serviço. audit, notifier e
// workflows podem ser nil (efeitos colaterais desligados).
func NewRequestService(
	txRunner TxRunner,
	requestRepo RequestStore,
	itemRepo RequestItemStore,
	fieldRepo RequestItemFieldStore,
	messageRepo MessageStore,
	convRepo ConversationStore,
	materializer Materializer,
	audit AuditSink,
	notifier Notifier,
	workflows WorkflowEmitter,
	logger *logrus.Logger,
) *RequestService {
	return &RequestService{
		txRunner:     txRunner,
		requestRepo:  requestRepo,
		itemRepo:     itemRepo,
		fieldRepo:    fieldRepo,
		messageRepo:  messageRepo,
		convRepo:     convRepo,
		materializer: materializer,
		audit:        audit,
		notifier:     notifier,
		workflows:    workflows,
		logger:       logger,
	}
}

// canAccess indica se o ator enxerga a requisição: revisores veem tudo,
// usuários comuns só as próprias.
func canAccess(actor models.Actor, req *models.Request) bool {
	return actor.Role.IsReviewer() || req.CreatedBy == actor.UserID
}

// canEditItem valida a edição grosseira do item (tipo e produto alvo):
// só o autor da requisição, e somente enquanto o item estiver RETURNED.
func canEditItem(actor models.Actor, req *models.Request, item *models.RequestItem) error {
	if req.CreatedBy != actor.UserID {
		return models.NewForbiddenError("Acesso negado.")
	}
	if item.RequestStatusID != models.StatusReturned {
		return models.NewForbiddenError("Você só pode alterar quando a solicitação foi devolvida (RETURNED).")
	}
	return nil
}

// canEditField valida a edição de um campo conforme o tipo do item, o
// papel do ator e o status corrente:
//   - CREATE: revisores editam apenas novo_codigo; o autor edita os demais
//     campos, nunca novo_codigo, e só enquanto RETURNED;
//   - UPDATE: o autor edita apenas novo_codigo/codigo_atual enquanto
//     RETURNED; revisores não editam campos de UPDATE.
func canEditField(actor models.Actor, req *models.Request, item *models.RequestItem, fieldTag string) error {
	switch item.RequestTypeID {
	case models.TypeCreate:
		if actor.Role.IsReviewer() {
			if fieldTag == models.FieldTagNovoCodigo {
				return nil
			}
			if req.CreatedBy == actor.UserID && item.RequestStatusID == models.StatusReturned {
				return nil
			}
			return models.NewForbiddenError("Em CREATE, ANALYST/ADMIN podem editar apenas 'novo_codigo'.")
		}
		if req.CreatedBy == actor.UserID && item.RequestStatusID == models.StatusReturned {
			if fieldTag == models.FieldTagNovoCodigo {
				return models.NewForbiddenError("Em CREATE devolvido (RETURNED), o criador não pode editar 'novo_codigo'.")
			}
			return nil
		}
		return models.NewForbiddenError("Você não tem permissão para editar este campo.")
	case models.TypeUpdate:
		if req.CreatedBy == actor.UserID && item.RequestStatusID == models.StatusReturned &&
			(fieldTag == models.FieldTagNovoCodigo || fieldTag == models.FieldTagCodigoAtual) {
			return nil
		}
		return models.NewForbiddenError("Você só pode editar quando o status for RETURNED.")
	}
	return models.NewForbiddenError("Você não tem permissão para editar este campo.")
}

// lockedErr é o Conflict padrão para itens travados
func lockedErr(status models.RequestStatus) error {
	return models.NewConflictError(
		fmt.Sprintf("Item com status %s está travado e não pode ser alterado.", status))
}

// Create registra uma requisição com seus itens e campos, tudo em uma
// transação. Itens novos sempre entram como CREATED.
func (s *RequestService) Create(actor models.Actor, payload *models.CreateRequestRequest) (*models.RequestView, error) {
	msg, err := s.messageRepo.GetByID(payload.MessageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, models.NewNotFoundError("Mensagem não encontrada.")
	}
	if msg.SenderID != actor.UserID && !actor.Role.IsReviewer() {
		return nil, models.NewForbiddenError("Acesso negado.")
	}

	existing, err := s.requestRepo.GetByMessageID(payload.MessageID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Já existe uma requisição para esta mensagem.")
	}

	if len(payload.Items) == 0 {
		return nil, models.NewConflictError("A requisição precisa de ao menos um item.")
	}
	for _, item := range payload.Items {
		if !models.RequestType(item.RequestTypeID).Valid() {
			return nil, models.NewConflictError(
				fmt.Sprintf("Tipo de requisição inválido: %d.", item.RequestTypeID))
		}
		for _, f := range item.Fields {
			if f.FieldTag == "" {
				return nil, models.NewConflictError("Todo campo precisa de um field_tag.")
			}
		}
	}

	req := &models.Request{MessageID: payload.MessageID, CreatedBy: actor.UserID}
	err = s.txRunner.WithTransaction(func(tx *sql.Tx) error {
		if _, err := s.requestRepo.CreateTx(tx, req); err != nil {
			return err
		}
		for _, itemPayload := range payload.Items {
			item := &models.RequestItem{
				RequestID:       req.ID,
				RequestTypeID:   models.RequestType(itemPayload.RequestTypeID),
				RequestStatusID: models.StatusCreated,
				ProductID:       itemPayload.ProductID,
			}
			if _, err := s.itemRepo.CreateTx(tx, item); err != nil {
				return err
			}
			if _, err := s.fieldRepo.CreateManyTx(tx, item.ID, itemPayload.Fields); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	view, err := s.buildView(req)
	if err != nil {
		return nil, err
	}

	s.afterCommit(func() {
		s.convRepo.Touch(msg.ConversationID)
		if s.audit != nil {
			s.audit.Record(actor, models.AuditEntityRequest, req.ID, models.AuditActionCreate,
				fmt.Sprintf("requisição criada com %d item(ns)", len(view.Items)))
		}
		if s.notifier != nil {
			s.notifier.RequestCreated(models.RequestCreatedEvent{
				RequestID:      req.ID,
				MessageID:      msg.ID,
				ConversationID: msg.ConversationID,
				CreatedBy:      actor.UserID,
				CreatedAt:      req.CreatedAt.Format(time.RFC3339),
				Request:        view,
			})
		}
	})

	return view, nil
}

// Get retorna a requisição completa (itens + campos + rótulos)
func (s *RequestService) Get(actor models.Actor, id int64) (*models.RequestView, error) {
	req, err := s.requestRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, models.NewNotFoundError("Requisição não encontrada.")
	}
	if !canAccess(actor, req) {
		return nil, models.NewForbiddenError("Acesso negado.")
	}

	return s.buildView(req)
}

// Delete remove (soft) a requisição com itens e campos. Requisições com
// itens travados não podem ser excluídas.
func (s *RequestService) Delete(actor models.Actor, id int64) error {
	req, err := s.requestRepo.GetByID(id)
	if err != nil {
		return err
	}
	if req == nil {
		return models.NewNotFoundError("Requisição não encontrada.")
	}
	if !canAccess(actor, req) {
		return models.NewForbiddenError("Acesso negado.")
	}

	items, err := s.itemRepo.ListViewsByRequestID(id)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.RequestStatusID.Locked() {
			return models.NewConflictError(
				"A requisição possui itens FINALIZED/REJECTED e não pode ser excluída.")
		}
	}

	if err := s.requestRepo.SoftDeleteCascade(id); err != nil {
		return err
	}

	s.afterCommit(func() {
		if s.audit != nil {
			s.audit.Record(actor, models.AuditEntityRequest, id, models.AuditActionDelete, "")
		}
	})

	return nil
}

// AddItem acrescenta um item à requisição; o item nasce CREATED
func (s *RequestService) AddItem(actor models.Actor, requestID int64, payload *models.RequestItemPayload) (*models.RequestItemView, error) {
	req, err := s.requestRepo.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, models.NewNotFoundError("Requisição não encontrada.")
	}
	if !canAccess(actor, req) {
		return nil, models.NewForbiddenError("Acesso negado.")
	}
	if !models.RequestType(payload.RequestTypeID).Valid() {
		return nil, models.NewConflictError(
			fmt.Sprintf("Tipo de requisição inválido: %d.", payload.RequestTypeID))
	}

	item := &models.RequestItem{
		RequestID:       requestID,
		RequestTypeID:   models.RequestType(payload.RequestTypeID),
		RequestStatusID: models.StatusCreated,
		ProductID:       payload.ProductID,
	}
	err = s.txRunner.WithTransaction(func(tx *sql.Tx) error {
		if _, err := s.itemRepo.CreateTx(tx, item); err != nil {
			return err
		}
		_, err := s.fieldRepo.CreateManyTx(tx, item.ID, payload.Fields)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.requestRepo.Touch(requestID)

	fields, err := s.fieldRepo.ListByItemID(item.ID)
	if err != nil {
		return nil, err
	}
	view := s.itemView(item, fields)

	s.notifyItemChanged(actor, req, item, models.ChangeKindItem)
	s.afterCommit(func() {
		if s.audit != nil {
			s.audit.Record(actor, models.AuditEntityRequestItem, item.ID, models.AuditActionCreate, "")
		}
	})

	return view, nil
}

// UpdateItem altera tipo e/ou produto alvo do item
func (s *RequestService) UpdateItem(actor models.Actor, itemID int64, payload *models.UpdateRequestItemRequest) (*models.RequestItem, error) {
	item, req, err := s.loadItem(itemID)
	if err != nil {
		return nil, err
	}
	if item.RequestStatusID.Locked() {
		return nil, lockedErr(item.RequestStatusID)
	}
	if !canAccess(actor, req) {
		return nil, models.NewForbiddenError("Acesso negado.")
	}
	if err := canEditItem(actor, req, item); err != nil {
		return nil, err
	}

	if payload.RequestTypeID != nil {
		if !models.RequestType(*payload.RequestTypeID).Valid() {
			return nil, models.NewConflictError(
				fmt.Sprintf("Tipo de requisição inválido: %d.", *payload.RequestTypeID))
		}
		item.RequestTypeID = models.RequestType(*payload.RequestTypeID)
	}
	if payload.ProductID != nil {
		item.ProductID = payload.ProductID
	}

	if err := s.itemRepo.UpdateTypeAndProduct(item); err != nil {
		return nil, err
	}
	s.requestRepo.Touch(req.ID)

	s.notifyItemChanged(actor, req, item, models.ChangeKindItem)
	s.afterCommit(func() {
		if s.audit != nil {
			s.audit.Record(actor, models.AuditEntityRequestItem, item.ID, models.AuditActionUpdate, "")
		}
	})

	return item, nil
}

// DeleteItem remove (soft) o item e seus campos
func (s *RequestService) DeleteItem(actor models.Actor, itemID int64) error {
	item, req, err := s.loadItem(itemID)
	if err != nil {
		return err
	}
	if item.RequestStatusID.Locked() {
		return lockedErr(item.RequestStatusID)
	}
	if !canAccess(actor, req) {
		return models.NewForbiddenError("Acesso negado.")
	}

	if err := s.itemRepo.SoftDelete(itemID); err != nil {
		return err
	}
	s.requestRepo.Touch(req.ID)

	s.notifyItemChanged(actor, req, item, models.ChangeKindItem)
	s.afterCommit(func() {
		if s.audit != nil {
			s.audit.Record(actor, models.AuditEntityRequestItem, itemID, models.AuditActionDelete, "")
		}
	})

	return nil
}

// AddField acrescenta um campo ao item. Editar campos nunca muda o status.
func (s *RequestService) AddField(actor models.Actor, itemID int64, payload *models.RequestItemFieldPayload) (*models.RequestItemField, error) {
	item, req, err := s.loadItem(itemID)
	if err != nil {
		return nil, err
	}
	if item.RequestStatusID.Locked() {
		return nil, lockedErr(item.RequestStatusID)
	}
	if !canAccess(actor, req) {
		return nil, models.NewForbiddenError("Acesso negado.")
	}
	if payload.FieldTag == "" {
		return nil, models.NewConflictError("Todo campo precisa de um field_tag.")
	}
	if err := canEditField(actor, req, item, payload.FieldTag); err != nil {
		return nil, err
	}

	field := &models.RequestItemField{
		RequestItemID: itemID,
		FieldTypeID:   payload.FieldTypeID,
		FieldTag:      payload.FieldTag,
		FieldValue:    payload.FieldValue,
		FieldFlag:     payload.FieldFlag,
	}
	if _, err := s.fieldRepo.Create(field); err != nil {
		return nil, err
	}
	s.itemRepo.Touch(itemID)
	s.requestRepo.Touch(req.ID)

	s.notifyItemChanged(actor, req, item, models.ChangeKindFields)
	s.afterCommit(func() {
		if s.audit != nil {
			s.audit.Record(actor, models.AuditEntityRequestItemField, field.ID, models.AuditActionCreate, field.FieldTag)
		}
	})

	return field, nil
}

// UpdateField altera valor e/ou flag de um campo
func (s *RequestService) UpdateField(actor models.Actor, fieldID int64, payload *models.UpdateRequestItemFieldRequest) (*models.RequestItemField, error) {
	field, err := s.fieldRepo.GetByID(fieldID)
	if err != nil {
		return nil, err
	}
	if field == nil {
		return nil, models.NewNotFoundError("Campo não encontrado.")
	}

	item, req, err := s.loadItem(field.RequestItemID)
	if err != nil {
		return nil, err
	}
	if item.RequestStatusID.Locked() {
		return nil, lockedErr(item.RequestStatusID)
	}
	if !canAccess(actor, req) {
		return nil, models.NewForbiddenError("Acesso negado.")
	}
	if err := canEditField(actor, req, item, field.FieldTag); err != nil {
		return nil, err
	}

	if payload.FieldValue != nil {
		field.FieldValue = payload.FieldValue
	}
	if payload.FieldFlag != nil {
		field.FieldFlag = payload.FieldFlag
	}

	if err := s.fieldRepo.Update(field); err != nil {
		return nil, err
	}
	s.itemRepo.Touch(item.ID)
	s.requestRepo.Touch(req.ID)

	s.notifyItemChanged(actor, req, item, models.ChangeKindFields)
	s.afterCommit(func() {
		if s.audit != nil {
			s.audit.Record(actor, models.AuditEntityRequestItemField, field.ID, models.AuditActionUpdate, field.FieldTag)
		}
	})

	return field, nil
}

// SetFieldFlag marca/desmarca a flag de revisão de um campo (só revisores)
func (s *RequestService) SetFieldFlag(actor models.Actor, fieldID int64, payload *models.SetFieldFlagRequest) (*models.RequestItemField, error) {
	field, err := s.fieldRepo.GetByID(fieldID)
	if err != nil {
		return nil, err
	}
	if field == nil {
		return nil, models.NewNotFoundError("Campo não encontrado.")
	}

	item, req, err := s.loadItem(field.RequestItemID)
	if err != nil {
		return nil, err
	}
	if item.RequestStatusID.Locked() {
		return nil, lockedErr(item.RequestStatusID)
	}
	if !actor.Role.IsReviewer() {
		return nil, models.NewForbiddenError("Apenas ANALYST/ADMIN podem marcar campos.")
	}

	field.FieldFlag = payload.FieldFlag
	if err := s.fieldRepo.Update(field); err != nil {
		return nil, err
	}
	s.itemRepo.Touch(item.ID)

	s.notifyItemChanged(actor, req, item, models.ChangeKindFields)
	return field, nil
}

// DeleteField remove (soft) um campo do item
func (s *RequestService) DeleteField(actor models.Actor, fieldID int64) error {
	field, err := s.fieldRepo.GetByID(fieldID)
	if err != nil {
		return err
	}
	if field == nil {
		return models.NewNotFoundError("Campo não encontrado.")
	}

	item, req, err := s.loadItem(field.RequestItemID)
	if err != nil {
		return err
	}
	if item.RequestStatusID.Locked() {
		return lockedErr(item.RequestStatusID)
	}
	if !canAccess(actor, req) {
		return models.NewForbiddenError("Acesso negado.")
	}
	if err := canEditField(actor, req, item, field.FieldTag); err != nil {
		return err
	}

	if err := s.fieldRepo.SoftDelete(fieldID); err != nil {
		return err
	}
	s.itemRepo.Touch(item.ID)
	s.requestRepo.Touch(req.ID)

	s.notifyItemChanged(actor, req, item, models.ChangeKindFields)
	s.afterCommit(func() {
		if s.audit != nil {
			s.audit.Record(actor, models.AuditEntityRequestItemField, fieldID, models.AuditActionDelete, field.FieldTag)
		}
	})

	return nil
}

// ChangeItemStatus move o item na máquina de estados (só revisores).
// Quando o destino é FINALIZED, o item é materializado em produto e o
// product_id é gravado junto com o status.
func (s *RequestService) ChangeItemStatus(actor models.Actor, itemID int64, payload *models.ChangeItemStatusRequest) (*models.RequestItem, error) {
	item, req, err := s.loadItem(itemID)
	if err != nil {
		return nil, err
	}
	if item.RequestStatusID.Locked() {
		return nil, lockedErr(item.RequestStatusID)
	}
	if !actor.Role.IsReviewer() {
		return nil, models.NewForbiddenError("Apenas ANALYST/ADMIN podem alterar o status.")
	}

	// Destinos permitidos pela troca de status: IN_PROGRESS, FINALIZED,
	// RETURNED e REJECTED. CREATED só via resubmissão; FAILED não é um
	// destino operado por revisores.
	target := models.RequestStatus(payload.RequestStatusID)
	switch target {
	case models.StatusCreated:
		return nil, models.NewConflictError(
			"Use a resubmissão para retornar o item a CREATED.")
	case models.StatusInProgress, models.StatusFinalized, models.StatusReturned, models.StatusRejected:
	default:
		return nil, models.NewConflictError(
			fmt.Sprintf("Status inválido para esta operação: %d.", payload.RequestStatusID))
	}
	if target == item.RequestStatusID {
		return nil, models.NewConflictError(
			fmt.Sprintf("O item já está no status %s.", target))
	}

	if target == models.StatusFinalized {
		return s.finalizeItem(actor, req, item)
	}

	if err := s.itemRepo.SetStatus(itemID, target); err != nil {
		return nil, err
	}
	item.RequestStatusID = target
	s.requestRepo.Touch(req.ID)

	s.notifyItemChanged(actor, req, item, models.ChangeKindStatus)
	s.afterCommit(func() {
		if s.audit != nil {
			s.audit.Record(actor, models.AuditEntityRequestItem, itemID,
				models.AuditActionStatusChange, target.String())
		}
	})

	return item, nil
}

// finalizeItem valida a prontidão, materializa o produto e trava o item
func (s *RequestService) finalizeItem(actor models.Actor, req *models.Request, item *models.RequestItem) (*models.RequestItem, error) {
	fields, err := s.fieldRepo.ListByItemID(item.ID)
	if err != nil {
		return nil, err
	}

	var novoCodigo, codigoAtual string
	for _, f := range fields {
		switch f.FieldTag {
		case models.FieldTagNovoCodigo:
			if novoCodigo == "" {
				novoCodigo = stagedValue(&f)
			}
		case models.FieldTagCodigoAtual:
			if codigoAtual == "" {
				codigoAtual = stagedValue(&f)
			}
		}
	}
	switch item.RequestTypeID {
	case models.TypeCreate:
		if novoCodigo == "" {
			return nil, models.NewConflictError("Para finalizar CREATE, 'novo_codigo' é obrigatório.")
		}
	case models.TypeUpdate:
		if novoCodigo == "" && codigoAtual == "" {
			return nil, models.NewConflictError("Para finalizar UPDATE, informe 'novo_codigo' ou 'codigo_atual'.")
		}
	}

	// Materialização e gravação do status compartilham a transação: ou o
	// produto e o travamento do item entram juntos, ou nada entra.
	var result *models.MaterializeResult
	err = s.txRunner.WithTransaction(func(tx *sql.Tx) error {
		r, err := s.materializer.Materialize(tx, item, fields)
		if err != nil {
			return err
		}
		result = r
		return s.itemRepo.SetProductAndStatusTx(tx, item.ID, r.ProductID, models.StatusFinalized)
	})
	if err != nil {
		return nil, err
	}
	item.ProductID = &result.ProductID
	item.RequestStatusID = models.StatusFinalized
	s.requestRepo.Touch(req.ID)

	s.notifyItemChanged(actor, req, item, models.ChangeKindStatus)
	s.afterCommit(func() {
		if s.audit != nil {
			s.audit.Record(actor, models.AuditEntityRequestItem, item.ID, models.AuditActionFinalize,
				fmt.Sprintf("produto %d (%s)", result.ProductID, result.CodigoAtual))
		}
		ev := models.ProductChangedEvent{
			ProductID:   result.ProductID,
			Created:     result.Created,
			CodigoAtual: result.CodigoAtual,
			Descricao:   result.Descricao,
			ItemID:      item.ID,
			ChangedBy:   actor.UserID,
		}
		if s.notifier != nil {
			s.notifier.ProductChanged(ev)
		}
		if s.workflows != nil {
			s.workflows.EmitItemFinalized(ev)
		}
	})

	return item, nil
}

// ResubmitReturnedItem devolve um item RETURNED para CREATED. Só o autor
// da requisição pode resubmeter.
func (s *RequestService) ResubmitReturnedItem(actor models.Actor, itemID int64) (*models.RequestItem, error) {
	item, req, err := s.loadItem(itemID)
	if err != nil {
		return nil, err
	}
	if item.RequestStatusID.Locked() {
		return nil, lockedErr(item.RequestStatusID)
	}
	if req.CreatedBy != actor.UserID {
		return nil, models.NewForbiddenError("Apenas o autor da requisição pode resubmeter o item.")
	}
	if item.RequestStatusID != models.StatusReturned {
		return nil, models.NewConflictError("Só é possível resubmeter quando o status for RETURNED.")
	}

	if err := s.itemRepo.SetStatus(itemID, models.StatusCreated); err != nil {
		return nil, err
	}
	item.RequestStatusID = models.StatusCreated
	s.requestRepo.Touch(req.ID)

	s.notifyItemChanged(actor, req, item, models.ChangeKindStatus)
	s.afterCommit(func() {
		if s.audit != nil {
			s.audit.Record(actor, models.AuditEntityRequestItem, itemID, models.AuditActionResubmit, "")
		}
	})

	return item, nil
}

// ListItems retorna a página de itens segundo os filtros. Usuários comuns
// só enxergam os próprios itens, qualquer que seja o filtro pedido.
func (s *RequestService) ListItems(actor models.Actor, filter *models.RequestItemListFilter) (*models.RequestItemListResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if !actor.Role.IsReviewer() {
		own := actor.UserID
		filter.CreatedByUserID = &own
		filter.CreatedByName = ""
	}

	items, total, err := s.itemRepo.ListForPage(filter)
	if err != nil {
		return nil, err
	}

	return &models.RequestItemListResponse{
		Items:  items,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// GetByMessageID retorna a requisição vinculada à mensagem, se houver
func (s *RequestService) GetByMessageID(actor models.Actor, messageID int64) (*models.RequestView, error) {
	req, err := s.requestRepo.GetByMessageID(messageID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, models.NewNotFoundError("Requisição não encontrada.")
	}
	if !canAccess(actor, req) {
		return nil, models.NewForbiddenError("Acesso negado.")
	}
	return s.buildView(req)
}

// loadItem carrega o item e a requisição dona
func (s *RequestService) loadItem(itemID int64) (*models.RequestItem, *models.Request, error) {
	item, err := s.itemRepo.GetByID(itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, models.NewNotFoundError("Item não encontrado.")
	}

	req, err := s.requestRepo.GetByID(item.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if req == nil {
		return nil, nil, models.NewNotFoundError("Requisição não encontrada.")
	}

	return item, req, nil
}

// buildView monta a requisição completa com itens, campos e rótulos
func (s *RequestService) buildView(req *models.Request) (*models.RequestView, error) {
	items, err := s.itemRepo.ListViewsByRequestID(req.ID)
	if err != nil {
		return nil, err
	}

	itemIDs := make([]int64, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}
	fieldsByItem, err := s.fieldRepo.ListByItemIDs(itemIDs)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Fields = fieldsByItem[items[i].ID]
	}

	return &models.RequestView{Request: *req, Items: items}, nil
}

// itemView monta a projeção de um item recém-criado sem nova consulta
func (s *RequestService) itemView(item *models.RequestItem, fields []models.RequestItemField) *models.RequestItemView {
	return &models.RequestItemView{
		RequestItem: *item,
		RequestType: &models.TypeMini{
			ID:       int64(item.RequestTypeID),
			TypeName: item.RequestTypeID.String(),
		},
		RequestStatus: &models.StatusMini{
			ID:         int64(item.RequestStatusID),
			StatusName: item.RequestStatusID.String(),
		},
		Fields: fields,
	}
}

// notifyItemChanged emite o evento de mudança de item (best-effort)
func (s *RequestService) notifyItemChanged(actor models.Actor, req *models.Request, item *models.RequestItem, kind string) {
	if s.notifier == nil {
		return
	}

	var conversationID int64
	if msg, err := s.messageRepo.GetByID(req.MessageID); err == nil && msg != nil {
		conversationID = msg.ConversationID
	}

	statusID := int64(item.RequestStatusID)
	ev := models.RequestItemChangedEvent{
		RequestID:       req.ID,
		ItemID:          item.ID,
		MessageID:       req.MessageID,
		ConversationID:  conversationID,
		ChangedBy:       actor.UserID,
		ChangeKind:      kind,
		RequestStatusID: &statusID,
		UpdatedAt:       time.Now().Format(time.RFC3339),
	}
	if view, err := s.buildView(req); err == nil {
		ev.Request = view
	}

	s.afterCommit(func() { s.notifier.RequestItemChanged(ev) })
}

// afterCommit dispara efeitos colaterais pós-commit sem derrubar a request
func (s *RequestService) afterCommit(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithField("panic", r).Error("Post-commit side effect panicked")
			}
		}()
		fn()
	}()
}
