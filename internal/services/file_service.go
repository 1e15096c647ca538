package services

import (
	"io"
	"os"

	"github.com/hypernova-labs/cadastro-service/internal/database"
	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/hypernova-labs/cadastro-service/internal/storage"
	"github.com/sirupsen/logrus"
)

// FileService cuida do upload e do download de anexos
type FileService struct {
	store    *storage.LocalFileStorage
	msgRepo  *database.MessageRepository
	convRepo *database.ConversationRepository
	audit    AuditSink
	logger   *logrus.Logger
}

// NewFileService cria uma nova instância do serviço
func NewFileService(store *storage.LocalFileStorage, msgRepo *database.MessageRepository, convRepo *database.ConversationRepository, audit AuditSink, logger *logrus.Logger) *FileService {
	return &FileService{
		store:    store,
		msgRepo:  msgRepo,
		convRepo: convRepo,
		audit:    audit,
		logger:   logger,
	}
}

// Upload grava o conteúdo no storage e devolve os metadados para serem
// referenciados na criação da mensagem.
func (s *FileService) Upload(actor models.Actor, originalName string, content io.Reader) (*models.MessageFilePayload, error) {
	stored, err := s.store.Save(originalName, content)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditEntityFile, 0, models.AuditActionCreate, stored.StoredName)
	}

	return &models.MessageFilePayload{
		OriginalName: stored.OriginalName,
		StoredName:   stored.StoredName,
		ContentType:  &stored.ContentType,
		SizeBytes:    &stored.SizeBytes,
		SHA256:       &stored.SHA256,
	}, nil
}

// Download abre o anexo para leitura depois de checar o acesso do ator à
// conversa dona da mensagem.
func (s *FileService) Download(actor models.Actor, fileID int64) (*models.MessageFile, *os.File, error) {
	file, msg, err := s.msgRepo.GetFileWithMessage(fileID)
	if err != nil {
		return nil, nil, err
	}
	if file == nil || msg == nil {
		return nil, nil, models.NewNotFoundError("Arquivo não encontrado.")
	}

	conv, err := s.convRepo.GetByID(msg.ConversationID)
	if err != nil {
		return nil, nil, err
	}
	if conv == nil {
		return nil, nil, models.NewNotFoundError("Conversa não encontrada.")
	}
	if !canAccessConversation(actor, conv) {
		return nil, nil, models.NewForbiddenError("Acesso negado.")
	}

	f, err := s.store.Open(file.StoredName)
	if err != nil {
		return nil, nil, err
	}
	return file, f, nil
}
