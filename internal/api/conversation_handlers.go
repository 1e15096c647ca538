package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/cadastro-service/internal/models"
)

// CreateConversation registra uma nova conversa
func (api *API) CreateConversation(c *gin.Context) {
	var req models.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	row, err := api.convService.Create(actorFrom(c), &req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, row)
}

// ListConversations retorna as conversas visíveis ao ator
func (api *API) ListConversations(c *gin.Context) {
	rows, err := api.convService.List(actorFrom(c))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": rows})
}

// GetConversation retorna uma conversa por ID
func (api *API) GetConversation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	row, err := api.convService.Get(actorFrom(c), id)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, row)
}

// UpdateConversation altera título, flag e responsável
func (api *API) UpdateConversation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	row, err := api.convService.Update(actorFrom(c), id, &req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, row)
}

// DeleteConversation remove (soft) uma conversa
func (api *API) DeleteConversation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := api.convService.Delete(actorFrom(c), id); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversa removida."})
}
