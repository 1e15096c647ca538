package services

import (
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/database"
	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// ConversationService concentra a lógica de negócio das conversas
type ConversationService struct {
	convRepo *database.ConversationRepository
	userRepo UserStore
	audit    AuditSink
	notifier Notifier
	logger   *logrus.Logger
}

// NewConversationService cria uma nova instância do serviço
func NewConversationService(convRepo *database.ConversationRepository, userRepo UserStore, audit AuditSink, notifier Notifier, logger *logrus.Logger) *ConversationService {
	return &ConversationService{
		convRepo: convRepo,
		userRepo: userRepo,
		audit:    audit,
		notifier: notifier,
		logger:   logger,
	}
}

// canAccessConversation indica se o ator enxerga a conversa
func canAccessConversation(actor models.Actor, conv *models.Conversation) bool {
	return actor.Role.IsReviewer() || conv.CreatedBy == actor.UserID
}

// Create registra uma nova conversa; o criador (e o responsável, quando
// informado) entram como participantes.
func (s *ConversationService) Create(actor models.Actor, payload *models.CreateConversationRequest) (*models.ConversationRow, error) {
	if payload.AssignedTo != nil {
		assignee, err := s.userRepo.GetByID(*payload.AssignedTo)
		if err != nil {
			return nil, err
		}
		if assignee == nil {
			return nil, models.NewNotFoundError("Responsável não encontrado.")
		}
		if !assignee.RoleID.IsReviewer() {
			return nil, models.NewConflictError("O responsável precisa ser ANALYST ou ADMIN.")
		}
	}

	conv := &models.Conversation{
		Title:      payload.Title,
		CreatedBy:  actor.UserID,
		AssignedTo: payload.AssignedTo,
		HasFlag:    payload.HasFlag,
	}
	if _, err := s.convRepo.Create(conv); err != nil {
		return nil, err
	}

	if err := s.convRepo.EnsureParticipant(conv.ID, actor.UserID); err != nil {
		s.logger.WithError(err).Warn("Could not register creator as participant")
	}
	if conv.AssignedTo != nil {
		if err := s.convRepo.EnsureParticipant(conv.ID, *conv.AssignedTo); err != nil {
			s.logger.WithError(err).Warn("Could not register assignee as participant")
		}
	}

	row, err := s.convRepo.GetRowByID(conv.ID)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditEntityConversation, conv.ID, models.AuditActionCreate, conv.Title)
	}
	if s.notifier != nil {
		s.notifier.ConversationCreated(models.ConversationCreatedEvent{
			ConversationID: conv.ID,
			Title:          conv.Title,
			CreatedBy:      conv.CreatedBy,
			AssignedTo:     conv.AssignedTo,
			CreatedAt:      conv.CreatedAt.Format(time.RFC3339),
			Conversation:   row,
		})
	}

	return row, nil
}

// Get retorna a conversa com criador e responsável carregados
func (s *ConversationService) Get(actor models.Actor, id int64) (*models.ConversationRow, error) {
	row, err := s.convRepo.GetRowByID(id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, models.NewNotFoundError("Conversa não encontrada.")
	}
	if !canAccessConversation(actor, row.Conversation) {
		return nil, models.NewForbiddenError("Acesso negado.")
	}
	return row, nil
}

// List retorna as conversas visíveis: todas para revisores, as próprias
// para usuários comuns.
func (s *ConversationService) List(actor models.Actor) ([]models.ConversationRow, error) {
	if actor.Role.IsReviewer() {
		return s.convRepo.ListRows(nil)
	}
	return s.convRepo.ListRows(&actor.UserID)
}

// Update altera título, flag e responsável da conversa
func (s *ConversationService) Update(actor models.Actor, id int64, payload *models.UpdateConversationRequest) (*models.ConversationRow, error) {
	conv, err := s.convRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, models.NewNotFoundError("Conversa não encontrada.")
	}
	if !canAccessConversation(actor, conv) {
		return nil, models.NewForbiddenError("Acesso negado.")
	}

	if payload.Title != nil {
		conv.Title = *payload.Title
	}
	if payload.HasFlag != nil {
		conv.HasFlag = *payload.HasFlag
	}
	if payload.AssignedTo != nil {
		if !actor.Role.IsReviewer() {
			return nil, models.NewForbiddenError("Apenas ANALYST/ADMIN podem atribuir conversas.")
		}
		assignee, err := s.userRepo.GetByID(*payload.AssignedTo)
		if err != nil {
			return nil, err
		}
		if assignee == nil {
			return nil, models.NewNotFoundError("Responsável não encontrado.")
		}
		conv.AssignedTo = payload.AssignedTo
		if err := s.convRepo.EnsureParticipant(id, *payload.AssignedTo); err != nil {
			s.logger.WithError(err).Warn("Could not register assignee as participant")
		}
	}

	if err := s.convRepo.Update(conv); err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditEntityConversation, id, models.AuditActionUpdate, "")
	}
	return s.convRepo.GetRowByID(id)
}

// Delete remove (soft) a conversa. Só o criador ou um ADMIN.
func (s *ConversationService) Delete(actor models.Actor, id int64) error {
	conv, err := s.convRepo.GetByID(id)
	if err != nil {
		return err
	}
	if conv == nil {
		return models.NewNotFoundError("Conversa não encontrada.")
	}
	if actor.Role != models.RoleAdmin && conv.CreatedBy != actor.UserID {
		return models.NewForbiddenError("Acesso negado.")
	}

	if err := s.convRepo.SoftDelete(id); err != nil {
		return err
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditEntityConversation, id, models.AuditActionDelete, conv.Title)
	}
	return nil
}
