package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payments/internal/appers"
	"payments/internal/application/common"
	"payments/internal/application/entity"
	use_cases "payments/internal/application/use-cases"
	"payments/pkg/validator"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Handler interface {
	CreatePayment(c *fiber.Ctx) error
	ChangePaymentStatus(c *fiber.Ctx) error
	NotifyPayment(c *fiber.Ctx) error
	RemovePayment(c *fiber.Ctx) error
	GetPayment(c *fiber.Ctx) error
	GetPayments(c *fiber.Ctx) error
	HealthCheck(c *fiber.Ctx) error
}

type HandlerImpl struct {
	usecase use_cases.UseCaser
	logger  *zap.SugaredLogger
}

func NewPaymentHandler(usecase use_cases.UseCaser, logger *zap.SugaredLogger) *HandlerImpl {
	return &HandlerImpl{
		usecase: usecase,
		logger:  logger,
	}
}

// formatValidationErrors turns validator errors into a client-readable body.
func formatValidationErrors(err error) fiber.Map {
	var errors []string
	if validationErrors, ok := err.(playgroundvalidator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := e.Field()
			tag := e.Tag()
			var message string
			switch tag {
			case "required":
				message = fmt.Sprintf("field '%s' is required", field)
			case "uuid4":
				message = fmt.Sprintf("field '%s' must be a valid UUID", field)
			case "currency":
				message = fmt.Sprintf("field '%s' must be a three-letter currency code (e.g. USD)", field)
			case "amount":
				message = fmt.Sprintf("field '%s' must be a positive decimal with at most 2 fraction digits (e.g. 12.50)", field)
			case "min":
				message = fmt.Sprintf("field '%s' must be at least %s characters", field, e.Param())
			case "max":
				message = fmt.Sprintf("field '%s' must be at most %s characters", field, e.Param())
			default:
				message = fmt.Sprintf("field '%s' failed validation: %s", field, tag)
			}
			errors = append(errors, message)
		}
	} else {
		errors = append(errors, err.Error())
	}
	return fiber.Map{
		"error":   "validation failed",
		"details": errors,
	}
}

func (h *HandlerImpl) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	outboxHealthy, kafkaHealthy, _ := h.usecase.HealthCheck(ctx)

	health := entity.HealthCheckResponse{
		Status:  outboxHealthy && kafkaHealthy,
		Message: "success",
		Version: common.Version,
		Checks: entity.HealthCheckResponseData{
			Outbox: entity.HealthCheckItem{Status: outboxHealthy, Type: "outbox-store"},
			Kafka:  entity.HealthCheckItem{Status: kafkaHealthy, Type: "kafka"},
		},
	}
	if !outboxHealthy {
		health.Checks.Outbox.Error = "Outbox store unavailable"
		health.Message = "Some services are unavailable"
	}
	if !kafkaHealthy {
		health.Checks.Kafka.Error = "Kafka connection failed"
		health.Message = "Some services are unavailable"
	}

	if !outboxHealthy || !kafkaHealthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(health)
	}

	return c.Status(fiber.StatusOK).JSON(health)
}

// CreatePayment places a new payment and returns its id. The payment is
// persisted as an event stream; the read model catches up through CDC, so a
// GET right after the 201 may briefly miss it.
func (h *HandlerImpl) CreatePayment(c *fiber.Ctx) error {
	var req entity.CreatePaymentRequest
	err := c.BodyParser(&req)
	if err != nil {
		h.logger.Errorf("error parsing body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err = validator.Validate.Struct(&req); err != nil {
		h.logger.Warnf("validation error: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(formatValidationErrors(err))
	}

	id, err := h.usecase.CreatePayment(c.Context(), req)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"paymentId": id})
}

func (h *HandlerImpl) ChangePaymentStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	var req entity.ChangeStatusRequest
	err := c.BodyParser(&req)
	if err != nil {
		h.logger.Errorf("error parsing body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err = validator.Validate.Struct(&req); err != nil {
		h.logger.Warnf("validation error: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(formatValidationErrors(err))
	}

	status := entity.PaymentStatus(req.Status)
	if !status.Valid() {
		return appers.SanitizeError(c, appers.ErrUnknownStatus)
	}

	err = h.usecase.ChangePaymentStatus(c.Context(), id, status)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"description": "ok"})
}

func (h *HandlerImpl) NotifyPayment(c *fiber.Ctx) error {
	id := c.Params("id")
	err := h.usecase.MarkEmailNotified(c.Context(), id)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"description": "ok"})
}

func (h *HandlerImpl) RemovePayment(c *fiber.Ctx) error {
	id := c.Params("id")
	err := h.usecase.RemovePayment(c.Context(), id)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"description": "ok"})
}

// GetPayment reads a single payment from the read model.
func (h *HandlerImpl) GetPayment(c *fiber.Ctx) error {
	id := c.Params("id")
	model, err := h.usecase.GetPayment(c.Context(), id)
	switch {
	case errors.Is(err, appers.ErrPaymentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"description": err.Error()})
	case err != nil:
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(model)
}

// GetPayments lists payments, optionally filtered by ?status=.
func (h *HandlerImpl) GetPayments(c *fiber.Ctx) error {
	statusStr := c.Query("status")
	if statusStr == "" {
		return c.Status(fiber.StatusOK).JSON(h.usecase.GetPayments(c.Context()))
	}

	status := entity.PaymentStatus(statusStr)
	if !status.Valid() {
		return appers.SanitizeError(c, appers.ErrUnknownStatus)
	}
	return c.Status(fiber.StatusOK).JSON(h.usecase.FindPaymentsByStatus(c.Context(), status))
}
