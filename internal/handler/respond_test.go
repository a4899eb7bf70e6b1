package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"traffichub/internal/domain"
	"traffichub/internal/service"
	"traffichub/pkg/logs"
)

func TestFailStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"forbidden", fmt.Errorf("%w: not yours", service.ErrForbidden), http.StatusForbidden},
		{"invalid input", fmt.Errorf("%w: empty message", service.ErrInvalidInput), http.StatusBadRequest},
		{"filter foreign to scope", fmt.Errorf("%w: ticket", domain.ErrFilterNotApplicable), http.StatusBadRequest},
		{"unexpected", errors.New("db gone"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			fail(c, logs.Discard(), "count unread", tt.err)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
