package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/marketplace-service/internal/models"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		user    models.User
		allowed []Capability
		denied  []Capability
	}{
		{
			name:    "student",
			user:    models.User{ID: "s", Role: models.RoleStudent},
			allowed: []Capability{CapPurchase, CapReview, CapEnroll},
			denied:  []Capability{CapCreateCourse, CapManageUsers, CapViewAllOrders},
		},
		{
			name:    "instructor",
			user:    models.User{ID: "i", Role: models.RoleInstructor},
			allowed: []Capability{CapCreateCourse, CapManageOwnCourses, CapPurchase},
			denied:  []Capability{CapManageAnyCourse, CapManageUsers},
		},
		{
			name:    "admin student",
			user:    models.User{ID: "a", Role: models.RoleStudent, IsAdmin: true},
			allowed: []Capability{CapManageUsers, CapManageAnyCourse, CapViewAllOrders, CapCreateCourse, CapPurchase},
		},
		{
			name:   "unknown role",
			user:   models.User{ID: "x", Role: "ghost"},
			denied: []Capability{CapPurchase, CapEnroll},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Resolve(&tt.user)
			for _, c := range tt.allowed {
				assert.True(t, p.Can(c), "expected %s", c)
			}
			for _, c := range tt.denied {
				assert.False(t, p.Can(c), "unexpected %s", c)
			}
		})
	}
}

func TestCanManageCourse(t *testing.T) {
	inst := Resolve(&models.User{ID: "i1", Role: models.RoleInstructor})
	other := Resolve(&models.User{ID: "i2", Role: models.RoleInstructor})
	student := Resolve(&models.User{ID: "i1", Role: models.RoleStudent})
	admin := Resolve(&models.User{ID: "a", Role: models.RoleStudent, IsAdmin: true})

	assert.True(t, inst.CanManageCourse("i1"))
	assert.False(t, other.CanManageCourse("i1"))
	assert.False(t, student.CanManageCourse("i1"))
	assert.True(t, admin.CanManageCourse("i1"))
}

func TestNilPrincipal(t *testing.T) {
	var p *Principal
	assert.False(t, p.Can(CapPurchase))
	assert.False(t, p.Owns(""))
	assert.Nil(t, p.Capabilities())
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	p := Resolve(&models.User{ID: "u", Role: models.RoleStudent})
	got, ok := FromContext(WithPrincipal(context.Background(), p))
	assert.True(t, ok)
	assert.Same(t, p, got)
}
