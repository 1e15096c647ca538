package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/cadastro-service/internal/models"
)

// UploadFile grava um anexo no storage e devolve os metadados para serem
// referenciados na criação da mensagem
func (api *API) UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Arquivo ausente.", []models.ErrorDetail{
			{Field: "file", Issue: "campo multipart obrigatório"},
		}))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		api.logger.WithError(err).Error("Error opening multipart file")
		c.JSON(http.StatusInternalServerError, models.NewInternalError("Erro interno."))
		return
	}
	defer src.Close()

	payload, err := api.fileService.Upload(actorFrom(c), fileHeader.Filename, src)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payload)
}

// DownloadFile devolve o conteúdo de um anexo
func (api *API) DownloadFile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	meta, file, err := api.fileService.Download(actorFrom(c), id)
	if err != nil {
		api.respondError(c, err)
		return
	}
	defer file.Close()

	contentType := "application/octet-stream"
	if meta.ContentType != nil {
		contentType = *meta.ContentType
	}
	c.Header("Content-Disposition", `attachment; filename="`+meta.OriginalName+`"`)
	c.Header("Content-Type", contentType)

	http.ServeContent(c.Writer, c.Request, meta.OriginalName, meta.CreatedAt, file)
}
