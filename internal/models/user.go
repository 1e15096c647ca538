package models

import "time"

// User representa um usuário do sistema
type User struct {
	ID                 int64      `json:"id"`
	FullName           string     `json:"full_name"`
	Email              string     `json:"email"`
	RoleID             Role       `json:"role_id"`
	PasswordAlgo       string     `json:"-"`
	PasswordIterations int        `json:"-"`
	PasswordHash       string     `json:"-"`
	PasswordSalt       string     `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at"`
	LastLogin          *time.Time `json:"last_login"`
	IsDeleted          bool       `json:"-"`
}

// UserMini é a projeção mínima de usuário embutida em outros payloads
type UserMini struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	RoleID   Role   `json:"role_id"`
}

// Mini retorna a projeção mínima do usuário
func (u *User) Mini() *UserMini {
	if u == nil {
		return nil
	}
	return &UserMini{
		ID:       u.ID,
		FullName: u.FullName,
		Email:    u.Email,
		RoleID:   u.RoleID,
	}
}

// CreateUserRequest representa o payload de criação de usuário
type CreateUserRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	RoleID   int64  `json:"role_id" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// UpdateUserRequest representa o payload de atualização de usuário
type UpdateUserRequest struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
	RoleID   *int64  `json:"role_id"`
	Password *string `json:"password"`
}

// LoginRequest representa o payload de login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest representa o payload de refresh/logout
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenPairResponse representa o par de tokens retornado no login/refresh
type TokenPairResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	User         *UserMini `json:"user,omitempty"`
}

// RefreshToken representa um refresh token persistido (rotação)
type RefreshToken struct {
	ID            int64
	UserID        int64
	TokenHash     string
	JTI           string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	RevokedAt     *time.Time
	ReplacedByJTI *string
	Reason        *string
	IsDeleted     bool
}

// RevokedToken representa um access token revogado (blacklist por jti)
type RevokedToken struct {
	ID        int64
	JTI       string
	UserID    int64
	RevokedAt time.Time
	ExpiresAt time.Time
	Reason    *string
	IsDeleted bool
}
