package models

import "time"

// Membership roles within an organization.
const (
	MemberRoleOwner  = "owner"
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"
)

// OrganizationMember links a user to an organization with a role.
type OrganizationMember struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"not null;index:ux_org_members_org_user,unique,priority:1" json:"organization_id"`
	UserID         uint      `gorm:"not null;index:ux_org_members_org_user,unique,priority:2" json:"user_id"`
	Role           string    `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanManageBilling reports whether the member may touch billing for the org.
func (m *OrganizationMember) CanManageBilling() bool {
	return m.Role == MemberRoleOwner || m.Role == MemberRoleAdmin
}
