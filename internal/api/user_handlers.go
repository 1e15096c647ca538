package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/cadastro-service/internal/models"
)

// CreateUser registra um novo usuário (só ADMIN)
func (api *API) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	user, err := api.userService.Create(actorFrom(c), &req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// GetUser retorna um usuário por ID
func (api *API) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	user, err := api.userService.Get(actorFrom(c), id)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers retorna todos os usuários (só revisores)
func (api *API) ListUsers(c *gin.Context) {
	users, err := api.userService.List(actorFrom(c))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": users})
}

// UpdateUser altera os dados de um usuário
func (api *API) UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	user, err := api.userService.Update(actorFrom(c), id, &req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser remove (soft) um usuário (só ADMIN)
func (api *API) DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := api.userService.Delete(actorFrom(c), id); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Usuário removido."})
}
