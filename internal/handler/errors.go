package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-sales/internal/purchase"
	"github.com/iliyamo/ticket-sales/internal/repository"
)

// Error codes that are not purchase kinds.
const (
	codeDuplicate = "duplicate"
)

// statusOf maps an error kind to its HTTP status.
func statusOf(k purchase.Kind) int {
	switch k {
	case purchase.KindNotFound:
		return http.StatusNotFound
	case purchase.KindInsufficientInventory, purchase.KindInvalidStatus,
		purchase.KindAlreadyUsed, purchase.KindInvalidInput:
		return http.StatusBadRequest
	case purchase.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error", "code"}. Manager errors keep their kind;
// repository sentinels map to 404 and 409; anything else is logged and
// reported as an internal error without details.
func fail(c echo.Context, err error) error {
	var pe *purchase.Error
	switch {
	case errors.As(err, &pe):
		if pe.Kind == purchase.KindInternal {
			slog.ErrorContext(c.Request().Context(), "request failed",
				"path", c.Path(), "error", err)
		}
		body := echo.Map{"error": pe.Message, "code": pe.Kind}
		if pe.Kind == purchase.KindAlreadyUsed {
			body["used_at"] = formatTime(pe.UsedAt)
		}
		return c.JSON(statusOf(pe.Kind), body)
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found", "code": purchase.KindNotFound})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "resource already exists", "code": codeDuplicate})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "resource is referenced by other records", "code": purchase.KindConflict})
	}
	slog.ErrorContext(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error", "code": purchase.KindInternal})
}

// notFound writes a 404 naming the missing resource.
func notFound(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": resource + " not found", "code": purchase.KindNotFound})
}

// badRequest writes a 400 invalid_input response.
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": purchase.KindInvalidInput})
}

// lookup is fail for single-resource reads, naming the resource on 404.
func lookup(c echo.Context, resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, resource)
	}
	return fail(c, err)
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
