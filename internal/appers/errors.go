package appers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

var (
	// ErrConcurrencyConflict means the expected version did not match the
	// stream head. The caller must reload the aggregate and retry the command.
	ErrConcurrencyConflict = errors.New("concurrency conflict: aggregate was modified concurrently")
	// ErrAggregateNotFound means no event stream exists for the aggregate id.
	ErrAggregateNotFound = errors.New("aggregate not found")

	// ErrFormat group covers parsing of decimal amount strings.
	ErrFormat    = errors.New("invalid decimal format")
	ErrScale     = errors.New("too many fractional digits (max 2)")
	ErrPrecision = errors.New("too many integer digits (max 16)")
)

type ErrorResp struct {
	StatusCode int    `json:"statusCode,omitempty"`
	StatusDesc string `json:"statusDesc,omitempty"`
}

func (e ErrorResp) Error() string {
	return e.StatusDesc
}

var (
	ErrPaymentNotFound = ErrorResp{
		http.StatusNotFound,
		"payment not found",
	}
	ErrPaymentRemoved = ErrorResp{
		http.StatusGone,
		"payment was removed",
	}
	ErrUnknownStatus = ErrorResp{
		http.StatusBadRequest,
		"unknown payment status",
	}
	ErrPaymentAlreadyExists = ErrorResp{
		http.StatusForbidden,
		"payment already exists",
	}
)

func SanitizeError(c *fiber.Ctx, err error) error {
	var errResp ErrorResp
	if ok := errors.As(err, &errResp); ok {
		return c.Status(errResp.StatusCode).JSON(fiber.Map{
			"message": errResp.StatusDesc,
		})
	}

	switch {
	case errors.Is(err, ErrConcurrencyConflict):
		return NewErr(c, http.StatusConflict, err)
	case errors.Is(err, ErrAggregateNotFound):
		return NewErr(c, http.StatusNotFound, err)
	default:
		return NewErr(c, http.StatusInternalServerError, err)
	}
}

func NewErr(ctx *fiber.Ctx, status int, err error) error {
	return ctx.Status(status).JSON(fiber.Map{
		"message": err.Error(),
	})
}
