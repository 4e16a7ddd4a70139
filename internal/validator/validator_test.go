package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
)

func fieldsOf(err error) []string {
	var ve ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]string, 0, len(ve))
	for _, e := range ve {
		out = append(out, e.Field)
	}
	return out
}

func TestValidate_CourseCreate(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		req       CourseCreateRequest
		badFields []string
	}{
		{
			name: "valid",
			req:  CourseCreateRequest{Title: "Go", Category: "dev", Price: pricing.MustMoney("19.99")},
		},
		{
			name: "free course is valid",
			req:  CourseCreateRequest{Title: "Go", Category: "dev"},
		},
		{
			name:      "negative price",
			req:       CourseCreateRequest{Title: "Go", Category: "dev", Price: pricing.MustMoney("-1")},
			badFields: []string{"price"},
		},
		{
			name:      "blank title and missing category",
			req:       CourseCreateRequest{Title: "   "},
			badFields: []string{"title", "category"},
		},
		{
			name:      "bad image url",
			req:       CourseCreateRequest{Title: "Go", Category: "dev", ImageURL: "not a url"},
			badFields: []string{"image"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			if len(tt.badFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ElementsMatch(t, tt.badFields, fieldsOf(err))
		})
	}
}

func TestValidate_CourseUpdate(t *testing.T) {
	bv := NewBusinessValidator()

	assert.NotEmpty(t, bv.ValidateCourseUpdate(&CourseUpdateRequest{}))

	blank := ""
	errs := bv.ValidateCourseUpdate(&CourseUpdateRequest{Title: &blank})
	require.Len(t, errs, 1)
	assert.Equal(t, "title", errs[0].Field)

	price := pricing.MustMoney("5")
	assert.Empty(t, bv.ValidateCourseUpdate(&CourseUpdateRequest{Price: &price}))

	negative := pricing.MustMoney("-5")
	assert.NotEmpty(t, bv.ValidateCourseUpdate(&CourseUpdateRequest{Price: &negative}))
}

func TestValidate_Review(t *testing.T) {
	v := New()
	for rating, ok := range map[int]bool{0: false, 1: true, 5: true, 6: false} {
		err := v.Validate(&ReviewCreateRequest{Rating: rating})
		assert.Equal(t, ok, err == nil, "rating %d", rating)
	}
}

func TestValidate_Register(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&RegisterRequest{Name: "A", Email: "a@x.io", Password: "secret"}))
	assert.NoError(t, v.Validate(&RegisterRequest{Name: "A", Email: "a@x.io", Password: "secret", Role: models.RoleInstructor}))

	err := v.Validate(&RegisterRequest{Name: "A", Email: "nope", Password: "123", Role: "wizard"})
	assert.ElementsMatch(t, []string{"email", "password", "role"}, fieldsOf(err))
}

func TestValidateSectionCreate(t *testing.T) {
	bv := NewBusinessValidator()

	ok := &SectionCreateRequest{
		Name: "Intro",
		Videos: []VideoRequest{
			{Title: "one", URL: "https://cdn.example.com/1.mp4"},
			{Title: "two", URL: "https://cdn.example.com/2.mp4"},
		},
	}
	assert.Empty(t, bv.ValidateSectionCreate(ok))

	dup := &SectionCreateRequest{
		Name: "Intro",
		Videos: []VideoRequest{
			{Title: "one", URL: "https://cdn.example.com/1.mp4"},
			{Title: "again", URL: "https://cdn.example.com/1.mp4"},
		},
	}
	errs := bv.ValidateSectionCreate(dup)
	require.Len(t, errs, 1)
	assert.Equal(t, "videos[1].url", errs[0].Field)

	bad := &SectionCreateRequest{Name: "Intro", Videos: []VideoRequest{{Title: "x", URL: "ftp"}}}
	assert.NotEmpty(t, bv.ValidateSectionCreate(bad))
}

func TestValidationErrorsMessage(t *testing.T) {
	assert.Equal(t, "validation failed", ValidationErrors{}.Error())
	assert.Equal(t, "validation failed: title is required", ValidationErrors{{Field: "title", Message: "is required"}}.Error())
	assert.Equal(t, "validation failed: 2 field errors", ValidationErrors{{}, {}}.Error())
}
