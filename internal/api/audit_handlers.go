package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ListAuditLogs retorna a página da trilha de auditoria (só revisores)
func (api *API) ListAuditLogs(c *gin.Context) {
	page, err := api.auditService.List(
		actorFrom(c),
		strings.TrimSpace(c.Query("entity")),
		queryInt64Ptr(c, "entity_id"),
		queryInt64Ptr(c, "user_id"),
		queryInt(c, "limit", 50),
		queryInt(c, "offset", 0),
	)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
