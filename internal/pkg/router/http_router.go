package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/RuanOosthuizen/StagePass/app/controllers"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/constants"
)

type HttpRouter struct {
}

// InstallRouter wires the payment lifecycle routes. The webhook endpoints
// stay outside the rate limiter: the provider's retry traffic must never be
// throttled into a delivery failure.
func (h HttpRouter) InstallRouter(app *fiber.App) {
	pay := app.Group(constants.PaymentsRoute)

	pay.Get(constants.WebhookRoute, controllers.HandleWebhookProbe)
	pay.Post(constants.WebhookRoute, controllers.HandleWebhook)

	limited := pay.Group("", limiter.New(limiter.Config{Max: 60}))
	limited.Post(constants.InitiateRoute, controllers.HandleInitiatePayment)
	limited.Post(constants.ProcessEntriesRoute, controllers.HandleProcessEntries)
	limited.Get(constants.ProcessEntriesRoute, controllers.HandleGetProcessedEntries)
	limited.Get(constants.StatusRoute, controllers.HandleGetPaymentStatus)
	limited.Post(constants.StatusRoute, controllers.HandlePostPaymentStatus)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
