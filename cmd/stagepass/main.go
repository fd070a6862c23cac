package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"

	"github.com/RuanOosthuizen/StagePass/app/repository"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/cache"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/database"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/env"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/metrics/counter"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// Drain buffered webhook delivery counters to the database periodically.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if err := counter.FlushAll(); err != nil {
				log.Printf("failed to flush webhook counters: %v", err)
			}
		}
	}()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/stagepass to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "views"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	// init fiber app
	appCfg := fiber.Config{
		Views: html.New(basePath+"views", ".html"),
	}
	// Behind a reverse proxy c.IP() must resolve the forwarded client
	// address, but only for proxies we operate. The webhook origin check
	// reads c.IP(), so forwarding headers from anyone else stay untrusted.
	if proxies := env.GetEnv("TRUSTED_PROXIES", ""); proxies != "" {
		appCfg.EnableTrustedProxyCheck = true
		appCfg.ProxyHeader = fiber.HeaderXForwardedFor
		for _, proxy := range strings.Split(proxies, ",") {
			if proxy = strings.TrimSpace(proxy); proxy != "" {
				appCfg.TrustedProxies = append(appCfg.TrustedProxies, proxy)
			}
		}
	}
	app := fiber.New(appCfg)

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
