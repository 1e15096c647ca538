package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/cadastro-service/internal/models"
)

// CreateRequest registra uma requisição de cadastro vinculada a uma mensagem
func (api *API) CreateRequest(c *gin.Context) {
	var req models.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	view, err := api.requestService.Create(actorFrom(c), &req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// GetRequest retorna a requisição completa
func (api *API) GetRequest(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	view, err := api.requestService.Get(actorFrom(c), id)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetRequestByMessage retorna a requisição vinculada a uma mensagem
func (api *API) GetRequestByMessage(c *gin.Context) {
	messageID, ok := paramID(c, "id")
	if !ok {
		return
	}

	view, err := api.requestService.GetByMessageID(actorFrom(c), messageID)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// DeleteRequest remove (soft) a requisição com itens e campos
func (api *API) DeleteRequest(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := api.requestService.Delete(actorFrom(c), id); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Requisição removida."})
}

// AddRequestItem acrescenta um item à requisição
func (api *API) AddRequestItem(c *gin.Context) {
	requestID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.RequestItemPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	view, err := api.requestService.AddItem(actorFrom(c), requestID, &req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// UpdateRequestItem altera tipo e/ou produto alvo do item
func (api *API) UpdateRequestItem(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateRequestItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	item, err := api.requestService.UpdateItem(actorFrom(c), itemID, &req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// DeleteRequestItem remove (soft) um item
func (api *API) DeleteRequestItem(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := api.requestService.DeleteItem(actorFrom(c), itemID); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item removido."})
}

// AddRequestItemField acrescenta um campo ao item
func (api *API) AddRequestItemField(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.RequestItemFieldPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	field, err := api.requestService.AddField(actorFrom(c), itemID, &req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, field)
}

// UpdateRequestItemField altera valor e/ou flag de um campo
func (api *API) UpdateRequestItemField(c *gin.Context) {
	fieldID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateRequestItemFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	field, err := api.requestService.UpdateField(actorFrom(c), fieldID, &req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, field)
}

// SetRequestItemFieldFlag marca/desmarca a flag de revisão de um campo
func (api *API) SetRequestItemFieldFlag(c *gin.Context) {
	fieldID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.SetFieldFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	field, err := api.requestService.SetFieldFlag(actorFrom(c), fieldID, &req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, field)
}

// DeleteRequestItemField remove (soft) um campo
func (api *API) DeleteRequestItemField(c *gin.Context) {
	fieldID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := api.requestService.DeleteField(actorFrom(c), fieldID); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Campo removido."})
}

// ChangeRequestItemStatus move o item na máquina de estados
func (api *API) ChangeRequestItemStatus(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.ChangeItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.bindError(c, err)
		return
	}

	item, err := api.requestService.ChangeItemStatus(actorFrom(c), itemID, &req)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// ResubmitRequestItem devolve um item RETURNED para CREATED
func (api *API) ResubmitRequestItem(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}

	item, err := api.requestService.ResubmitReturnedItem(actorFrom(c), itemID)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// ListRequestItems retorna a página de itens segundo os filtros
func (api *API) ListRequestItems(c *gin.Context) {
	filter := &models.RequestItemListFilter{
		Limit:           queryInt(c, "limit", 20),
		Offset:          queryInt(c, "offset", 0),
		StatusID:        queryInt64Ptr(c, "status_id"),
		TypeID:          queryInt64Ptr(c, "type_id"),
		TypeQuery:       strings.TrimSpace(c.Query("type_q")),
		ItemID:          queryInt64Ptr(c, "item_id"),
		CreatedByUserID: queryInt64Ptr(c, "created_by_id"),
		CreatedByName:   strings.TrimSpace(c.Query("created_by")),
		DateMode:        parseDateMode(c.Query("date_mode")),
	}

	var ok bool
	if filter.DateFrom, ok = parseDateParam(c, "date_from", false); !ok {
		return
	}
	if filter.DateTo, ok = parseDateParam(c, "date_to", true); !ok {
		return
	}

	page, err := api.requestService.ListItems(actorFrom(c), filter)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// parseDateMode normaliza o modo de data (AUTO por padrão)
func parseDateMode(raw string) models.DateMode {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(models.DateModeCreated):
		return models.DateModeCreated
	case string(models.DateModeUpdated):
		return models.DateModeUpdated
	}
	return models.DateModeAuto
}

// parseDateParam aceita RFC3339 ou data simples (YYYY-MM-DD). Datas
// simples em date_to fecham o dia (23:59:59).
func parseDateParam(c *gin.Context, name string, endOfDay bool) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Second)
		}
		return &t, true
	}

	c.JSON(http.StatusBadRequest, models.NewValidationError("Data inválida.", []models.ErrorDetail{
		{Field: name, Issue: "use RFC3339 ou YYYY-MM-DD"},
	}))
	return nil, false
}
