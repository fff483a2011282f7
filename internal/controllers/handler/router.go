package handler

import (
	"payments/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

type Router struct {
	handler Handler
	app     *fiber.App
	conf    *config.Config
	logger  *zap.SugaredLogger
}

func NewRouter(handler Handler, app *fiber.App, conf *config.Config, logger *zap.SugaredLogger) *Router {
	return &Router{
		logger:  logger,
		app:     app,
		conf:    conf,
		handler: handler,
	}
}

func (r *Router) RegisterRouter() {
	r.app.Get("/health", r.handler.HealthCheck)

	r.app.Use(
		recover.New(recover.Config{
			EnableStackTrace: true,
		}),
		logger.New(),
	)

	r.app.Route("/payments", func(router fiber.Router) {
		api := router.Group("/api")

		v1 := api.Group("/v1")

		v1.Post("/payment", r.handler.CreatePayment)
		v1.Get("/payment", r.handler.GetPayments)
		v1.Get("/payment/:id", r.handler.GetPayment)
		v1.Patch("/payment/:id/status", r.handler.ChangePaymentStatus)
		v1.Post("/payment/:id/notify", r.handler.NotifyPayment)
		v1.Delete("/payment/:id", r.handler.RemovePayment)
	})
}
