package serverutils

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func newTestApp(handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/", handler)
	return app
}

func TestErrorHandlerMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "app error maps to its code",
			err:         NewAppError(fiber.StatusConflict, "conversation already exists", nil),
			wantStatus:  fiber.StatusConflict,
			wantMessage: "conversation already exists",
		},
		{
			name:        "wrapped app error still detected",
			err:         fmt.Errorf("handler: %w", NewAppError(fiber.StatusNotFound, "conversation not found", errors.New("db"))),
			wantStatus:  fiber.StatusNotFound,
			wantMessage: "conversation not found",
		},
		{
			name:        "fiber error passes through",
			err:         fiber.NewError(fiber.StatusRequestEntityTooLarge, "file too large"),
			wantStatus:  fiber.StatusRequestEntityTooLarge,
			wantMessage: "file too large",
		},
		{
			name:        "unknown error becomes 500",
			err:         errors.New("boom"),
			wantStatus:  fiber.StatusInternalServerError,
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(func(c *fiber.Ctx) error {
				return tt.err
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(body), tt.wantMessage)
			assert.Contains(t, string(body), `"success":false`)
		})
	}
}

func TestErrorHandlerPassesSuccessThrough(t *testing.T) {
	app := newTestApp(func(c *fiber.Ctx) error {
		return c.JSON(SuccessResponse("ok", "data"))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), `"success":true`))
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("no rows")
	appErr := NewAppError(fiber.StatusNotFound, "not found", cause)

	assert.ErrorIs(t, appErr, cause)
	assert.Equal(t, "not found: no rows", appErr.Error())
}
