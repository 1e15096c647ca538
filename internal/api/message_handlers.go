package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/cadastro-service/internal/models"
)

// CreateMessage registra uma mensagem na conversa (texto, anexos e/ou
// requisição embutida)
func (api *API) CreateMessage(c *gin.Context) {
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	row, err := api.messageService.Create(actorFrom(c), conversationID, &req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, row)
}

// ListMessages retorna as mensagens da conversa
func (api *API) ListMessages(c *gin.Context) {
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	rows, err := api.messageService.List(actorFrom(c), conversationID, limit, offset)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": rows})
}

// DeleteMessage remove (soft) uma mensagem com anexos e requisição embutida
func (api *API) DeleteMessage(c *gin.Context) {
	messageID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := api.messageService.Delete(actorFrom(c), messageID); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Mensagem removida."})
}

// MarkMessagesRead avança o marcador de leitura do ator na conversa
func (api *API) MarkMessagesRead(c *gin.Context) {
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	if err := api.messageService.MarkRead(actorFrom(c), conversationID, &req); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Mensagens marcadas como lidas."})
}
