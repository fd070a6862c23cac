package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/RuanOosthuizen/StagePass/internal/pkg/constants"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/middleware"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/statistics"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	api.Get(constants.StatsRoute, middleware.APIKeyAuthMiddleware(), func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(statistics.GetStatisticsData())
	})
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
