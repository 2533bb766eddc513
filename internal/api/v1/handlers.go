package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/OrbitDeskHQ/OrbitDesk/app/controllers"
)

// Pong is the ping endpoint response body.
type Pong struct {
	Ping string `json:"ping"`
}

// ServerInterface lists the handlers the v1 API exposes. It mirrors the
// operations documented in public/docs/v1/openapi.yml.
type ServerInterface interface {
	GetPing(c *fiber.Ctx) error
	GetOrganizationEntitlements(c *fiber.Ctx) error
	GetOrganizationSubscription(c *fiber.Ctx) error
}

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetOrganizationEntitlements returns the effective plan and feature gates
// for an organization.
func (s *APIServer) GetOrganizationEntitlements(c *fiber.Ctx) error {
	return controllers.HandleGetOrganizationEntitlements(c)
}

// GetOrganizationSubscription returns the local subscription projection.
func (s *APIServer) GetOrganizationSubscription(c *fiber.Ctx) error {
	return controllers.HandleGetOrganizationSubscription(c)
}

// RegisterHandlers attaches the v1 routes to the given router group.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	router.Get("/ping", si.GetPing)
	router.Get("/organizations/:id/entitlements", si.GetOrganizationEntitlements)
	router.Get("/organizations/:id/subscription", si.GetOrganizationSubscription)
}
