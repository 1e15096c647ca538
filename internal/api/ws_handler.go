package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/cadastro-service/internal/models"
)

// ServeWebsocket autentica e conecta o cliente ao hub de tempo real.
// Browsers não mandam header em upgrade, então o token vem na query.
func (api *API) ServeWebsocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, models.NewErrorResponse(
			models.ErrorCodeUnauthorized, "Token de acesso ausente."))
		return
	}

	claims, err := api.authenticate(token)
	if err != nil {
		api.respondError(c, err)
		return
	}
	actor, err := actorFromClaims(claims)
	if err != nil {
		api.respondError(c, err)
		return
	}

	if err := api.hub.Serve(c.Writer, c.Request, actor); err != nil {
		api.logger.WithError(err).Warn("Websocket upgrade failed")
	}
}
