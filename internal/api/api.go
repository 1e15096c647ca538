package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/hypernova-labs/cadastro-service/internal/realtime"
	"github.com/hypernova-labs/cadastro-service/internal/security"
	"github.com/hypernova-labs/cadastro-service/internal/services"
	"github.com/sirupsen/logrus"
)

// API concentra os handlers HTTP do serviço
type API struct {
	authService    *services.AuthService
	userService    *services.UserService
	convService    *services.ConversationService
	messageService *services.MessageService
	requestService *services.RequestService
	productQuery   *services.ProductQueryService
	fileService    *services.FileService
	auditService   *services.AuditService
	jwt            *security.JwtProvider
	hub            *realtime.Hub
	logger         *logrus.Logger
}

// NewAPI cria uma nova instância da API
func NewAPI(
	authService *services.AuthService,
	userService *services.UserService,
	convService *services.ConversationService,
	messageService *services.MessageService,
	requestService *services.RequestService,
	productQuery *services.ProductQueryService,
	fileService *services.FileService,
	auditService *services.AuditService,
	jwt *security.JwtProvider,
	hub *realtime.Hub,
	logger *logrus.Logger,
) *API {
	return &API{
		authService:    authService,
		userService:    userService,
		convService:    convService,
		messageService: messageService,
		requestService: requestService,
		productQuery:   productQuery,
		fileService:    fileService,
		auditService:   auditService,
		jwt:            jwt,
		hub:            hub,
		logger:         logger,
	}
}

// respondError converte o erro do serviço na resposta HTTP padronizada
func (api *API) respondError(c *gin.Context, err error) {
	code := models.CodeOf(err)

	var status int
	switch code {
	case models.ErrorCodeNotFound:
		status = http.StatusNotFound
	case models.ErrorCodeForbidden:
		status = http.StatusForbidden
	case models.ErrorCodeUnauthorized:
		status = http.StatusUnauthorized
	case models.ErrorCodeConflict:
		status = http.StatusConflict
	case models.ErrorCodeInvalidRequest:
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
		api.logger.WithError(err).WithField("path", c.FullPath()).Error("Unhandled service error")
		c.JSON(status, models.NewInternalError("Erro interno."))
		return
	}

	c.JSON(status, models.NewErrorResponse(code, err.Error()))
}

// bindError responde o erro de binding do gin
func (api *API) bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.NewValidationError("Payload inválido.", []models.ErrorDetail{
		{Field: "body", Issue: err.Error()},
	}))
}

// paramID extrai um ID numérico do path
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, models.NewValidationError("ID inválido.", []models.ErrorDetail{
			{Field: name, Issue: "deve ser um inteiro positivo"},
		}))
		return 0, false
	}
	return id, true
}

// queryInt extrai um inteiro opcional da query string
func queryInt(c *gin.Context, name string, def int) int {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return def
}

// queryInt64Ptr extrai um int64 opcional da query string
func queryInt64Ptr(c *gin.Context, name string) *int64 {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return &v
		}
	}
	return nil
}
