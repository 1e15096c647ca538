package services

import (
	"github.com/hypernova-labs/cadastro-service/internal/database"
	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// AuditService grava e consulta a trilha de auditoria. A gravação é
// best-effort: falha vira log, nunca erro para o chamador.
type AuditService struct {
	auditRepo *database.AuditRepository
	logger    *logrus.Logger
}

// NewAuditService cria uma nova instância do serviço
func NewAuditService(auditRepo *database.AuditRepository, logger *logrus.Logger) *AuditService {
	return &AuditService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Record implementa AuditSink
func (s *AuditService) Record(actor models.Actor, entityName string, entityID int64, actionName, details string) {
	entry := &models.AuditLog{
		EntityName: entityName,
		ActionName: actionName,
		UserID:     &actor.UserID,
	}
	if entityID != 0 {
		entry.EntityID = &entityID
	}
	if details != "" {
		entry.Details = &details
	}

	if err := s.auditRepo.Create(entry); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"entity": entityName,
			"action": actionName,
		}).Error("Could not write audit log")
	}
}

// List retorna a página de auditoria (só revisores)
func (s *AuditService) List(actor models.Actor, entityName string, entityID, userID *int64, limit, offset int) (*models.AuditListResponse, error) {
	if !actor.Role.IsReviewer() {
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

	items, total, err := s.auditRepo.ListPage(entityName, entityID, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return &models.AuditListResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}
