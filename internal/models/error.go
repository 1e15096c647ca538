package models

import "errors"

// ErrorCode representa o código de erro
type ErrorCode string

const (
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrorCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrorCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrorCodeConflict       ErrorCode = "CONFLICT"
	ErrorCodeInternal       ErrorCode = "INTERNAL"
)

// AppError é o erro tipado carregado pelos serviços. Os handlers mapeiam
// Code para o status HTTP sem inspecionar strings.
type AppError struct {
	Code    ErrorCode
	Message string
}

// Error implementa a interface error
func (e *AppError) Error() string {
	return e.Message
}

// Response converte o erro na resposta padronizada da API
func (e *AppError) Response() ErrorResponse {
	return NewErrorResponse(e.Code, e.Message)
}

// NewNotFoundError cria um erro de recurso não encontrado
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: ErrorCodeNotFound, Message: message}
}

// NewForbiddenError cria um erro de permissão
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: ErrorCodeForbidden, Message: message}
}

// NewUnauthorizedError cria um erro de autenticação
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: ErrorCodeUnauthorized, Message: message}
}

// NewConflictError cria um erro de conflito (regra de negócio violada)
func NewConflictError(message string) *AppError {
	return &AppError{Code: ErrorCodeConflict, Message: message}
}

// CodeOf extrai o ErrorCode de um erro (INTERNAL quando não é AppError)
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrorCodeInternal
}

// IsNotFound indica se o erro é NOT_FOUND
func IsNotFound(err error) bool { return CodeOf(err) == ErrorCodeNotFound }

// IsForbidden indica se o erro é FORBIDDEN
func IsForbidden(err error) bool { return CodeOf(err) == ErrorCodeForbidden }

// IsConflict indica se o erro é CONFLICT
func IsConflict(err error) bool { return CodeOf(err) == ErrorCodeConflict }

// IsUnauthorized indica se o erro é UNAUTHORIZED
func IsUnauthorized(err error) bool { return CodeOf(err) == ErrorCodeUnauthorized }

// ErrorDetail representa um detalhe específico do erro
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ErrorResponse representa a resposta de erro padronizada
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

// ErrorInfo representa a informação do erro
type ErrorInfo struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// NewErrorResponse cria uma nova resposta de erro
func NewErrorResponse(code ErrorCode, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(code),
			Message: message,
		},
	}
}

// NewValidationError cria um erro de validação com detalhes
func NewValidationError(message string, details []ErrorDetail) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(ErrorCodeInvalidRequest),
			Message: message,
			Details: details,
		},
	}
}

// NewInternalError cria um erro interno do servidor
func NewInternalError(message string) ErrorResponse {
	return NewErrorResponse(ErrorCodeInternal, message)
}
