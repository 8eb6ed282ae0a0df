package handler

import (
	"net/http"
	"strconv"

	"atkform/internal/model"
	"atkform/internal/service"
	"atkform/pkg/pagination"
	"atkform/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
	exportService  service.ExportService
}

func NewRequestHandler(requestService service.RequestService, exportService service.ExportService) *RequestHandler {
	return &RequestHandler{requestService: requestService, exportService: exportService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	{
		requests.GET("", h.ListRequests)
		requests.POST("", h.SubmitRequest)
		requests.GET("/export", h.ExportRequests)
		requests.GET("/:id", h.GetRequest)
		requests.PUT("/:id/verify", h.VerifyRequest)
		requests.PUT("/:id/approve", h.ApproveRequest)
		requests.DELETE("/:id", h.DeleteRequest)
	}
}

// ListRequests returns the current records, filtered and paginated
// @Summary      List requests
// @Description  Lists requests from the latest store snapshot, newest first
// @Tags         requests
// @Produce      json
// @Param        status  query     string  false  "pending, verified or approved"
// @Param        year    query     int     false  "Year of submission date"
// @Param        month   query     int     false  "Month of submission date (1-12)"
// @Param        page    query     int     false  "Page number"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  map[string]interface{}
// @Failure      400     {object}  response.Response
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", model.StatusPending, model.StatusVerified, model.StatusApproved:
	default:
		badRequest(c, "status must be pending, verified or approved")
		return
	}
	year, month, ok := parsePeriod(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	records, total, err := h.requestService.List(c.Request.Context(), service.RequestFilter{
		Status: status,
		Year:   year,
		Month:  month,
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   records,
		"total":  total,
		"page":   p.Page,
		"limit":  p.Limit,
	})
}

// GetRequest returns one request
// @Summary      Get request
// @Tags         requests
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=model.Request}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	rec, err := h.requestService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// SubmitRequest creates a pending request with the next document number
// @Summary      Submit request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SubmitRequestDTO  true  "Request form"
// @Success      201      {object}  response.Response{data=model.Request}
// @Failure      400      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) SubmitRequest(c *gin.Context) {
	var req service.SubmitRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rec, err := h.requestService.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rec))
}

// VerifyRequest moves a pending request to verified
// @Summary      Verify request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "Request ID"
// @Param        payload  body      service.VerifyDTO  true  "Verifier"
// @Success      200      {object}  response.Response{data=model.Request}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/verify [put]
func (h *RequestHandler) VerifyRequest(c *gin.Context) {
	var req service.VerifyDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rec, err := h.requestService.Verify(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// ApproveRequest moves a verified request to approved and records goods release
// @Summary      Approve request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "Request ID"
// @Param        payload  body      service.ApproveDTO  true  "Supervisor and goods release"
// @Success      200      {object}  response.Response{data=model.Request}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/approve [put]
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	var req service.ApproveDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rec, err := h.requestService.Approve(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// DeleteRequest removes a request in any state
// @Summary      Delete request
// @Tags         requests
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [delete]
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	if err := h.requestService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": c.Param("id")}))
}

// ExportRequests downloads the filtered requests as an xlsx workbook
// @Summary      Export requests
// @Tags         requests
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        year   query     int  false  "Year of submission date"
// @Param        month  query     int  false  "Month of submission date (1-12)"
// @Success      200    {file}    file
// @Failure      400    {object}  response.Response
// @Router       /api/requests/export [get]
func (h *RequestHandler) ExportRequests(c *gin.Context) {
	year, month, ok := parsePeriod(c)
	if !ok {
		return
	}

	f, filename, err := h.exportService.Export(c.Request.Context(), year, month)
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// parsePeriod reads the optional year and month query parameters, writing a 400 when invalid.
func parsePeriod(c *gin.Context) (year, month int, ok bool) {
	if v := c.Query("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(c, "year must be a positive number")
			return 0, 0, false
		}
		year = n
	}
	if v := c.Query("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			badRequest(c, "month must be between 1 and 12")
			return 0, 0, false
		}
		month = n
	}
	return year, month, true
}
