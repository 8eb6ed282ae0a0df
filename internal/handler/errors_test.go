package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"atkform/internal/repository"
	"atkform/internal/service"
	"atkform/pkg/response"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantKind   string
	}{
		{&service.ValidationError{Field: "x", Message: "bad"}, http.StatusBadRequest, response.KindValidation},
		{&service.StateError{Op: "verify", Current: "approved", Required: "pending"}, http.StatusConflict, response.KindState},
		{fmt.Errorf("%w: id 1", repository.ErrNotFound), http.StatusNotFound, response.KindNotFound},
		{fmt.Errorf("%w: denied", repository.ErrAuth), http.StatusUnauthorized, response.KindAuth},
		{fmt.Errorf("%w: header", repository.ErrSchema), http.StatusInternalServerError, response.KindSchema},
		{fmt.Errorf("%w: down", repository.ErrConnection), http.StatusServiceUnavailable, response.KindConnection},
		{errors.New("boom"), http.StatusInternalServerError, response.KindInternal},
	}
	for _, tt := range tests {
		status, kind := statusFor(tt.err)
		if status != tt.wantStatus || kind != tt.wantKind {
			t.Errorf("statusFor(%v) = %d %q, want %d %q", tt.err, status, kind, tt.wantStatus, tt.wantKind)
		}
	}
}
