package router

import (
	"context"
	"time"

	"github.com/OrbitDeskHQ/OrbitDesk/app/controllers"
	"github.com/OrbitDeskHQ/OrbitDesk/app/repository"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/archive"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/billing"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/cache"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/constants"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/database"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/jobqueue"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/metrics/counter"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	counters := counter.NewRegistry()
	provider := billing.NewStripeProviderFromEnv()
	queue := jobqueue.GetManager().GetQueue()

	svc := billing.NewServiceFromDB(database.GetDB(), provider, queue, counters)
	jobqueue.SetBillingService(svc)
	jobqueue.SetCounters(counters)
	jobqueue.SetWebhookEventLedger(repos.WebhookEvent)

	if cfg, err := archive.LoadConfig(); err != nil {
		log.Errorf("[Router] Invalid archive config: %v", err)
	} else if cfg.IsEnabled() {
		client, err := archive.NewClient(cfg)
		if err != nil {
			log.Errorf("[Router] Archive client init failed: %v", err)
		} else {
			jobqueue.SetArchiver(client, cfg)
		}
	}

	controllers.InitializeBillingController(svc, provider, queue, queue, counters)
	controllers.InitializeOrganizationController(repos.Organization, repos.User)

	app.Get(constants.HealthRoute, handleHealthz)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func handleHealthz(c *fiber.Ctx) error {
	status := fiber.Map{"status": "ok"}
	code := fiber.StatusOK

	if db := database.GetDB(); db != nil {
		if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
			status["database"] = "down"
			code = fiber.StatusServiceUnavailable
		} else {
			status["database"] = "up"
		}
	} else {
		status["database"] = "down"
		code = fiber.StatusServiceUnavailable
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cache.GetClient().Ping(ctx).Err(); err != nil {
		status["cache"] = "down"
	} else {
		status["cache"] = "up"
	}

	return c.Status(code).JSON(status)
}
