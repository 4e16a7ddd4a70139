// Package authz resolves a user's role into the set of operations the user
// may perform. Resolution happens once per request; services receive the
// resulting Principal and never look at raw roles.
package authz

import (
	"context"

	"github.com/SAP-F-2025/marketplace-service/internal/models"
)

type Capability string

const (
	CapPurchase         Capability = "purchase"
	CapReview           Capability = "review"
	CapEnroll           Capability = "enroll"
	CapCreateCourse     Capability = "course:create"
	CapManageOwnCourses Capability = "course:manage_own"
	CapManageAnyCourse  Capability = "course:manage_any"
	CapManageUsers      Capability = "users:manage"
	CapViewAllOrders    Capability = "orders:view_all"
	CapPayAnyOrder      Capability = "orders:pay_any"
	CapReadAnyContent   Capability = "content:read_any"
)

var roleCapabilities = map[models.UserRole][]Capability{
	models.RoleStudent: {
		CapPurchase, CapReview, CapEnroll,
	},
	models.RoleInstructor: {
		CapPurchase, CapReview, CapEnroll,
		CapCreateCourse, CapManageOwnCourses,
	},
}

var adminCapabilities = []Capability{
	CapManageAnyCourse, CapManageUsers, CapViewAllOrders, CapPayAnyOrder, CapReadAnyContent, CapCreateCourse,
}

// Principal is the authenticated caller with its resolved capabilities.
type Principal struct {
	UserID  string          `json:"user_id"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Role    models.UserRole `json:"role"`
	IsAdmin bool            `json:"is_admin"`

	caps map[Capability]bool
}

// Resolve builds the principal for a stored user.
func Resolve(user *models.User) *Principal {
	p := &Principal{
		UserID:  user.ID,
		Name:    user.Name,
		Email:   user.Email,
		Role:    user.Role,
		IsAdmin: user.IsAdmin,
		caps:    make(map[Capability]bool),
	}
	for _, c := range roleCapabilities[user.Role] {
		p.caps[c] = true
	}
	if user.IsAdmin {
		for _, c := range adminCapabilities {
			p.caps[c] = true
		}
	}
	return p
}

func (p *Principal) Can(c Capability) bool {
	return p != nil && p.caps[c]
}

// Owns reports whether ownerID is the principal's own user id.
func (p *Principal) Owns(ownerID string) bool {
	return p != nil && p.UserID != "" && p.UserID == ownerID
}

// CanManageCourse reports whether the principal may edit a course owned by instructorID.
func (p *Principal) CanManageCourse(instructorID string) bool {
	return p.Can(CapManageAnyCourse) || (p.Can(CapManageOwnCourses) && p.Owns(instructorID))
}

func (p *Principal) Capabilities() []Capability {
	if p == nil {
		return nil
	}
	out := make([]Capability, 0, len(p.caps))
	for c := range p.caps {
		out = append(out, c)
	}
	return out
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
