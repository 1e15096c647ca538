package services

import (
	"database/sql"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/database"
	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// MessageService concentra a lógica de negócio das mensagens. Uma mensagem
// do tipo REQUEST pode carregar a criação da requisição embutida.
type MessageService struct {
	txRunner    TxRunner
	msgRepo     *database.MessageRepository
	convRepo    *database.ConversationRepository
	requestRepo RequestStore
	requestSvc  *RequestService
	notifier    Notifier
	logger      *logrus.Logger
}

// NewMessageService cria uma nova instância do serviço
func NewMessageService(txRunner TxRunner, msgRepo *database.MessageRepository, convRepo *database.ConversationRepository, requestRepo RequestStore, requestSvc *RequestService, notifier Notifier, logger *logrus.Logger) *MessageService {
	return &MessageService{
		txRunner:    txRunner,
		msgRepo:     msgRepo,
		convRepo:    convRepo,
		requestRepo: requestRepo,
		requestSvc:  requestSvc,
		notifier:    notifier,
		logger:      logger,
	}
}

// Create registra uma mensagem na conversa, com anexos e, quando pedido,
// a requisição embutida.
func (s *MessageService) Create(actor models.Actor, conversationID int64, payload *models.CreateMessageRequest) (*models.MessageRow, error) {
	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, models.NewNotFoundError("Conversa não encontrada.")
	}
	if !canAccessConversation(actor, conv) {
		return nil, models.NewForbiddenError("Acesso negado.")
	}

	if payload.Body == nil && len(payload.Files) == 0 && !payload.CreateRequest {
		return nil, models.NewConflictError("A mensagem precisa de texto, anexo ou requisição.")
	}
	if payload.CreateRequest && len(payload.RequestItems) == 0 {
		return nil, models.NewConflictError("A requisição embutida precisa de ao menos um item.")
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       actor.UserID,
		MessageTypeID:  payload.MessageTypeID,
		Body:           payload.Body,
	}
	var files []models.MessageFile
	err = s.txRunner.WithTransaction(func(tx *sql.Tx) error {
		if _, err := s.msgRepo.CreateTx(tx, msg); err != nil {
			return err
		}
		created, err := s.msgRepo.AddFilesTx(tx, msg.ID, payload.Files)
		if err != nil {
			return err
		}
		files = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.convRepo.EnsureParticipant(conversationID, actor.UserID); err != nil {
		s.logger.WithError(err).Warn("Could not register sender as participant")
	}
	if err := s.convRepo.Touch(conversationID); err != nil {
		s.logger.WithError(err).Warn("Could not touch conversation")
	}

	row := &models.MessageRow{Message: msg, Files: files, IsRead: true}
	if full, err := s.msgRepo.GetRowByID(msg.ID); err == nil && full != nil {
		row.Sender = full.Sender
	}

	if payload.CreateRequest {
		view, err := s.requestSvc.Create(actor, &models.CreateRequestRequest{
			MessageID: msg.ID,
			Items:     payload.RequestItems,
		})
		if err != nil {
			return nil, err
		}
		row.Request = &view.Request
	}

	if s.notifier != nil {
		s.notifier.MessageCreated(models.MessageCreatedEvent{
			ConversationID: conversationID,
			MessageID:      msg.ID,
			SenderID:       actor.UserID,
			Body:           msg.Body,
			CreatedAt:      msg.CreatedAt.Format(time.RFC3339),
		})
	}

	return row, nil
}

// List retorna as mensagens da conversa com anexos, requisições embutidas
// e o estado de leitura do ator.
func (s *MessageService) List(actor models.Actor, conversationID int64, limit, offset int) ([]models.MessageRow, error) {
	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, models.NewNotFoundError("Conversa não encontrada.")
	}
	if !canAccessConversation(actor, conv) {
		return nil, models.NewForbiddenError("Acesso negado.")
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.msgRepo.ListRows(conversationID, limit, offset)
	if err != nil {
		return nil, err
	}

	messageIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		messageIDs = append(messageIDs, row.Message.ID)
	}

	filesByMessage, err := s.msgRepo.ListFilesByMessageIDs(messageIDs)
	if err != nil {
		return nil, err
	}
	requestsByMessage, err := s.requestRepo.GetByMessageIDs(messageIDs)
	if err != nil {
		return nil, err
	}

	var lastRead int64
	participant, err := s.convRepo.GetParticipant(conversationID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if participant != nil && participant.LastReadMessageID != nil {
		lastRead = *participant.LastReadMessageID
	}

	for i := range rows {
		id := rows[i].Message.ID
		rows[i].Files = filesByMessage[id]
		rows[i].Request = requestsByMessage[id]
		rows[i].IsRead = rows[i].Message.SenderID == actor.UserID || id <= lastRead
	}

	return rows, nil
}

// Delete remove (soft) uma mensagem com seus anexos. Quando a mensagem
// carrega uma requisição, a requisição é removida junto, sujeita às
// próprias regras (itens travados barram tudo).
func (s *MessageService) Delete(actor models.Actor, messageID int64) error {
	msg, err := s.msgRepo.GetByID(messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return models.NewNotFoundError("Mensagem não encontrada.")
	}
	if msg.SenderID != actor.UserID && !actor.Role.IsReviewer() {
		return models.NewForbiddenError("Acesso negado.")
	}

	req, err := s.requestRepo.GetByMessageID(messageID)
	if err != nil {
		return err
	}
	if req != nil {
		if err := s.requestSvc.Delete(actor, req.ID); err != nil {
			return err
		}
	}

	if err := s.msgRepo.SoftDelete(messageID); err != nil {
		return err
	}
	if err := s.convRepo.Touch(msg.ConversationID); err != nil {
		s.logger.WithError(err).Warn("Could not touch conversation")
	}
	return nil
}

// MarkRead avança o marcador de leitura do ator até a maior mensagem
// informada e emite o evento de leitura.
func (s *MessageService) MarkRead(actor models.Actor, conversationID int64, payload *models.MarkReadRequest) error {
	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return models.NewNotFoundError("Conversa não encontrada.")
	}
	if !canAccessConversation(actor, conv) {
		return models.NewForbiddenError("Acesso negado.")
	}

	var maxID int64
	for _, id := range payload.MessageIDs {
		if id > maxID {
			maxID = id
		}
	}
	if maxID == 0 {
		return nil
	}

	if err := s.convRepo.EnsureParticipant(conversationID, actor.UserID); err != nil {
		return err
	}
	if err := s.convRepo.SetLastRead(conversationID, actor.UserID, maxID); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.MessageRead(models.MessageReadEvent{
			ConversationID:    conversationID,
			UserID:            actor.UserID,
			LastReadMessageID: maxID,
		})
	}
	return nil
}
