package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/cadastro-service/internal/models"
)

// Login autentica o usuário e devolve o par de tokens
func (api *API) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	pair, err := api.authService.Login(&req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Refresh troca um refresh token válido por um novo par
func (api *API) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	pair, err := api.authService.Refresh(&req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Logout revoga o access token corrente e o refresh token enviado
func (api *API) Logout(c *gin.Context) {
	actor := actorFrom(c)
	claims := claimsFrom(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, models.NewErrorResponse(
			models.ErrorCodeUnauthorized, "Token de acesso ausente."))
		return
	}

	// O refresh token no corpo é opcional no logout
	var req models.RefreshRequest
	_ = c.ShouldBindJSON(&req)

	if err := api.authService.Logout(actor, claims, &req); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Sessão encerrada."})
}

// Me retorna o usuário autenticado
func (api *API) Me(c *gin.Context) {
	actor := actorFrom(c)

	user, err := api.userService.Get(actor, actor.UserID)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
