package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/cadastro-service/internal/models"
)

// ListProducts retorna a página de produtos materializados
func (api *API) ListProducts(c *gin.Context) {
	page, err := api.productQuery.List(
		strings.TrimSpace(c.Query("q")),
		queryInt(c, "limit", 20),
		queryInt(c, "offset", 0),
	)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetProduct retorna o produto com todos os campos
func (api *API) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	detail, err := api.productQuery.Get(id)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// GetTotvsProduct busca um produto no catálogo TOTVS pelo código exato
func (api *API) GetTotvsProduct(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Código inválido.", []models.ErrorDetail{
			{Field: "code", Issue: "obrigatório"},
		}))
		return
	}

	product, err := api.productQuery.TotvsGet(code)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// SearchTotvsProducts lista produtos do catálogo TOTVS por trecho de
// código ou descrição
func (api *API) SearchTotvsProducts(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Termo de busca inválido.", []models.ErrorDetail{
			{Field: "q", Issue: "obrigatório"},
		}))
		return
	}

	products, err := api.productQuery.TotvsSearch(term, queryInt(c, "limit", 20))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": products})
}
