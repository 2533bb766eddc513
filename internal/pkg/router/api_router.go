package router

import (
	"net"
	"strconv"
	"time"

	apiv1 "github.com/OrbitDeskHQ/OrbitDesk/internal/api/v1"
	"github.com/OrbitDeskHQ/OrbitDesk/app/controllers"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/cache"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/constants"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/env"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// The webhook ingress is deliberately outside the rate limiter: the
	// provider's delivery bursts must not be throttled, the idempotency
	// ledger absorbs redelivery storms.
	app.Post(constants.StripeWebhookRoute, controllers.HandleStripeWebhook)

	// Billing portal return lands here via provider redirect; it only flags
	// the organization for reconciliation, so it stays outside the limiter.
	app.Get(constants.BillingPortalReturnRoute, controllers.HandleBillingPortalReturn)

	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		Storage:    newLimiterStorage(),
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer()
	apiv1.RegisterHandlers(v1, apiServer)

	// Ops endpoints, admin key protected
	admin := api.Group("/admin", middleware.AdminAPIKeyMiddleware())
	admin.Get("/billing/counters", controllers.HandleBillingCounters)
	admin.Get("/billing/events", controllers.HandleListWebhookEvents)
	admin.Get("/billing/events/:event_id", controllers.HandleGetWebhookEvent)
	admin.Post("/organizations", controllers.HandleCreateOrganization)
	admin.Post("/organizations/:id/members", controllers.HandleAddOrganizationMember)
	admin.Get("/organizations/:id/subscription", controllers.HandleGetOrganizationSubscription)
	admin.Post("/organizations/:id/reconcile", controllers.HandleTriggerReconcile)
	admin.Post("/organizations/:id/reconcile/mark", controllers.HandleMarkReconcile)
	admin.Get("/jobs/stats", controllers.HandleJobQueueStats)
	admin.Post("/jobs/reconcile-sweep", controllers.HandleTriggerReconcileSweep)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

// newLimiterStorage backs the rate limiter with Redis so limits hold across
// process instances. Database 2 keeps limiter keys away from the cache (0)
// and job queue (0) traffic.
func newLimiterStorage() *redisstorage.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient := cache.GetClient(); cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 2,
		Reset:    false,
	})
}
