package services

import (
	"strings"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/hypernova-labs/cadastro-service/internal/security"
	"github.com/sirupsen/logrus"
)

// UserService concentra a lógica de negócio de usuários
type UserService struct {
	userRepo UserStore
	audit    AuditSink
	logger   *logrus.Logger
}

// NewUserService cria uma nova instância do serviço
func NewUserService(userRepo UserStore, audit AuditSink, logger *logrus.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		audit:    audit,
		logger:   logger,
	}
}

// Create registra um novo usuário (só ADMIN)
func (s *UserService) Create(actor models.Actor, payload *models.CreateUserRequest) (*models.User, error) {
	if actor.Role != models.RoleAdmin {
		return nil, models.NewForbiddenError("Apenas ADMIN pode criar usuários.")
	}
	role := models.Role(payload.RoleID)
	if !role.Valid() {
		return nil, models.NewConflictError("Papel de usuário inválido.")
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	existing, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Já existe um usuário com este email.")
	}

	hashed, err := security.HashPassword(payload.Password)
	if err != nil {
		return nil, models.NewConflictError(err.Error())
	}

	user := &models.User{
		FullName:           strings.TrimSpace(payload.FullName),
		Email:              email,
		RoleID:             role,
		PasswordAlgo:       hashed.Algo,
		PasswordIterations: hashed.Iterations,
		PasswordHash:       hashed.Hash,
		PasswordSalt:       hashed.Salt,
	}
	if _, err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditEntityUser, user.ID, models.AuditActionCreate, user.Email)
	}
	return user, nil
}

// Get retorna um usuário por ID
func (s *UserService) Get(actor models.Actor, id int64) (*models.User, error) {
	if !actor.Role.IsReviewer() && actor.UserID != id {
		return nil, models.NewForbiddenError("Acesso negado.")
	}

	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("Usuário não encontrado.")
	}
	return user, nil
}

// List retorna todos os usuários (só revisores)
func (s *UserService) List(actor models.Actor) ([]models.User, error) {
	if !actor.Role.IsReviewer() {
		return nil, models.NewForbiddenError("Acesso negado.")
	}
	return s.userRepo.List()
}

// Update altera os dados de um usuário. ADMIN altera qualquer um; os demais
// só a si mesmos, sem mudar o próprio papel.
func (s *UserService) Update(actor models.Actor, id int64, payload *models.UpdateUserRequest) (*models.User, error) {
	if actor.Role != models.RoleAdmin && actor.UserID != id {
		return nil, models.NewForbiddenError("Acesso negado.")
	}

	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("Usuário não encontrado.")
	}

	if payload.FullName != nil {
		user.FullName = strings.TrimSpace(*payload.FullName)
	}
	if payload.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*payload.Email))
		if email != user.Email {
			existing, err := s.userRepo.GetByEmail(email)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != id {
				return nil, models.NewConflictError("Já existe um usuário com este email.")
			}
			user.Email = email
		}
	}
	if payload.RoleID != nil {
		if actor.Role != models.RoleAdmin {
			return nil, models.NewForbiddenError("Apenas ADMIN pode alterar o papel.")
		}
		role := models.Role(*payload.RoleID)
		if !role.Valid() {
			return nil, models.NewConflictError("Papel de usuário inválido.")
		}
		user.RoleID = role
	}
	if payload.Password != nil {
		hashed, err := security.HashPassword(*payload.Password)
		if err != nil {
			return nil, models.NewConflictError(err.Error())
		}
		user.PasswordAlgo = hashed.Algo
		user.PasswordIterations = hashed.Iterations
		user.PasswordHash = hashed.Hash
		user.PasswordSalt = hashed.Salt
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditEntityUser, user.ID, models.AuditActionUpdate, "")
	}
	return user, nil
}

// Delete remove (soft) um usuário (só ADMIN, nunca a si mesmo)
func (s *UserService) Delete(actor models.Actor, id int64) error {
	if actor.Role != models.RoleAdmin {
		return models.NewForbiddenError("Apenas ADMIN pode remover usuários.")
	}
	if actor.UserID == id {
		return models.NewConflictError("Não é possível remover o próprio usuário.")
	}

	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewNotFoundError("Usuário não encontrado.")
	}

	if err := s.userRepo.SoftDelete(id); err != nil {
		return err
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditEntityUser, id, models.AuditActionDelete, user.Email)
	}
	return nil
}
