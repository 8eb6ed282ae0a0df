package handler

import (
	"net/http"

	"atkform/internal/model"
	"atkform/internal/service"
	"atkform/pkg/response"

	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	settingsService service.SettingsService
}

func NewSettingsHandler(settingsService service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

func (h *SettingsHandler) RegisterRoutes(router *gin.RouterGroup) {
	settings := router.Group("/api/settings")
	{
		settings.GET("", h.GetSettings)
		settings.PUT("", h.SaveSettings)
		settings.GET("/preview", h.PreviewDocumentNumber)
	}
}

// GetSettings returns the current settings
// @Summary      Get settings
// @Tags         settings
// @Produce      json
// @Success      200  {object}  response.Response{data=model.Settings}
// @Router       /api/settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.settingsService.Get(c.Request.Context())))
}

// SaveSettings replaces the settings
// @Summary      Save settings
// @Description  Overwrites the settings wholesale; empty fields fall back to defaults
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        payload  body      model.Settings  true  "Settings"
// @Success      200      {object}  response.Response{data=model.Settings}
// @Failure      400      {object}  response.Response
// @Router       /api/settings [put]
func (h *SettingsHandler) SaveSettings(c *gin.Context) {
	var req model.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	saved, err := h.settingsService.Save(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, saved))
}

// PreviewDocumentNumber renders an example document number
// @Summary      Preview document number
// @Tags         settings
// @Produce      json
// @Param        doc_format  query     string  false  "Template, defaults to the saved one"
// @Param        doc_prefix  query     string  false  "Starting number, defaults to the saved one"
// @Success      200         {object}  response.Response{data=service.SettingsPreview}
// @Failure      400         {object}  response.Response
// @Router       /api/settings/preview [get]
func (h *SettingsHandler) PreviewDocumentNumber(c *gin.Context) {
	preview, err := h.settingsService.Preview(c.Request.Context(), c.Query("doc_format"), c.Query("doc_prefix"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, preview))
}
