package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// UserRepository cuida das operações de banco para User
type UserRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewUserRepository cria uma nova instância do repositório
func NewUserRepository(db *DB, logger *logrus.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `
	id, full_name, email, role_id, password_algo, password_iterations,
	password_hash, password_salt, created_at, updated_at, last_login
`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.FullName, &user.Email, &user.RoleID,
		&user.PasswordAlgo, &user.PasswordIterations,
		&user.PasswordHash, &user.PasswordSalt,
		&user.CreatedAt, &user.UpdatedAt, &user.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create insere um novo usuário
func (r *UserRepository) Create(user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (
			full_name, email, role_id, password_algo, password_iterations,
			password_hash, password_salt, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	user.CreatedAt = time.Now()
	err := r.db.QueryRowWithTimeout(query,
		user.FullName, user.Email, user.RoleID, user.PasswordAlgo,
		user.PasswordIterations, user.PasswordHash, user.PasswordSalt,
		user.CreatedAt,
	).Scan(&user.ID)

	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

// GetByID busca um usuário por ID; retorna nil quando não existe
func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_deleted = false`

	user, err := scanUser(r.db.QueryRowWithTimeout(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying user: %w", err)
	}

	return user, nil
}

// GetByEmail busca um usuário por email; retorna nil quando não existe
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) AND is_deleted = false`

	user, err := scanUser(r.db.QueryRowWithTimeout(query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying user by email: %w", err)
	}

	return user, nil
}

// List retorna todos os usuários ativos
func (r *UserRepository) List() ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_deleted = false ORDER BY full_name`

	rows, err := r.db.QueryWithTimeout(query)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, *user)
	}

	return users, nil
}

// Update atualiza os dados mutáveis do usuário
func (r *UserRepository) Update(user *models.User) error {
	query := `
		UPDATE users
		SET full_name = $1, email = $2, role_id = $3, password_algo = $4,
		    password_iterations = $5, password_hash = $6, password_salt = $7,
		    updated_at = $8
		WHERE id = $9 AND is_deleted = false
	`

	now := time.Now()
	result, err := r.db.ExecWithTimeout(query,
		user.FullName, user.Email, user.RoleID, user.PasswordAlgo,
		user.PasswordIterations, user.PasswordHash, user.PasswordSalt,
		now, user.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	user.UpdatedAt = &now
	return nil
}

// TouchLastLogin registra o momento do último login
func (r *UserRepository) TouchLastLogin(id int64) error {
	query := `UPDATE users SET last_login = $1 WHERE id = $2`

	if _, err := r.db.ExecWithTimeout(query, time.Now(), id); err != nil {
		return fmt.Errorf("error updating last_login: %w", err)
	}
	return nil
}

// SoftDelete marca o usuário como removido
func (r *UserRepository) SoftDelete(id int64) error {
	query := `UPDATE users SET is_deleted = true, updated_at = $1 WHERE id = $2 AND is_deleted = false`

	result, err := r.db.ExecWithTimeout(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
