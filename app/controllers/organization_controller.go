package controllers

import (
	"errors"

	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
	"github.com/OrbitDeskHQ/OrbitDesk/app/repository"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var (
	organizationRepo repository.OrganizationRepository
	userRepo         repository.UserRepository
)

// InitializeOrganizationController wires the tenant provisioning surface.
func InitializeOrganizationController(orgs repository.OrganizationRepository, users repository.UserRepository) {
	organizationRepo = orgs
	userRepo = users
}

type createOrganizationRequest struct {
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	OwnerName     string `json:"owner_name"`
	OwnerEmail    string `json:"owner_email"`
	OwnerPassword string `json:"owner_password"`
}

// HandleCreateOrganization provisions a tenant: owner account, organization,
// owner membership and the free-plan subscription row. The repository runs
// the organization side in one transaction so a new tenant always starts
// with a subscription projection.
func HandleCreateOrganization(c *fiber.Ctx) error {
	if organizationRepo == nil || userRepo == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "provisioning_not_configured"})
	}

	var req createOrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}

	if _, err := userRepo.GetByEmail(req.OwnerEmail); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email_taken"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "user_lookup_failed"})
	}
	if _, err := organizationRepo.GetBySlug(req.Slug); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "slug_taken"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "organization_lookup_failed"})
	}

	// The model validates the stored hash, so the raw password length is
	// checked here.
	if len(req.OwnerPassword) < 6 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "password must be at least 6 characters"})
	}

	owner, err := models.CreateUser(req.OwnerName, req.OwnerEmail, req.OwnerPassword)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := userRepo.Create(owner); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "user_create_failed"})
	}

	org := &models.Organization{
		Name:    req.Name,
		Slug:    req.Slug,
		OwnerID: owner.ID,
	}
	if err := org.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := organizationRepo.Create(org); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "organization_create_failed"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"organization": fiber.Map{
			"id":       org.ID,
			"name":     org.Name,
			"slug":     org.Slug,
			"owner_id": org.OwnerID,
		},
		"owner": fiber.Map{
			"id":    owner.ID,
			"email": owner.Email,
		},
	})
}

type addMemberRequest struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

// HandleAddOrganizationMember attaches an existing user to an organization.
// The owner membership is created during provisioning and cannot be added
// here.
func HandleAddOrganizationMember(c *fiber.Ctx) error {
	if organizationRepo == nil || userRepo == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "provisioning_not_configured"})
	}

	orgID, err := parseUintParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid organization id"})
	}

	var req addMemberRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}
	role := req.Role
	if role == "" {
		role = models.MemberRoleMember
	}
	switch role {
	case models.MemberRoleAdmin, models.MemberRoleMember:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "unknown role"})
	}

	if _, err := organizationRepo.GetByID(orgID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "organization_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "organization_lookup_failed"})
	}
	if _, err := userRepo.GetByID(req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "user_lookup_failed"})
	}
	if _, err := organizationRepo.GetMember(orgID, req.UserID); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already_member"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "member_lookup_failed"})
	}

	member := &models.OrganizationMember{
		OrganizationID: orgID,
		UserID:         req.UserID,
		Role:           role,
	}
	if err := organizationRepo.AddMember(member); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "member_create_failed"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"organization_id": member.OrganizationID,
		"user_id":         member.UserID,
		"role":            member.Role,
	})
}
