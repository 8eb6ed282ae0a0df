package handler

import (
	"errors"
	"net/http"

	"atkform/internal/repository"
	"atkform/internal/service"
	"atkform/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps a service or store error onto an HTTP status and error kind.
func statusFor(err error) (int, string) {
	var vErr *service.ValidationError
	var sErr *service.StateError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, response.KindValidation
	case errors.As(err, &sErr):
		return http.StatusConflict, response.KindState
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, response.KindNotFound
	case errors.Is(err, repository.ErrAuth):
		return http.StatusUnauthorized, response.KindAuth
	case errors.Is(err, repository.ErrSchema):
		return http.StatusInternalServerError, response.KindSchema
	case errors.Is(err, repository.ErrConnection):
		return http.StatusServiceUnavailable, response.KindConnection
	default:
		return http.StatusInternalServerError, response.KindInternal
	}
}

func respondError(c *gin.Context, err error) {
	status, kind := statusFor(err)
	_ = c.Error(err)
	c.JSON(status, response.ErrorKind(status, kind, err.Error()))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.ErrorKind(http.StatusBadRequest, response.KindValidation, msg))
}
