package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
)

const maxCoursePrice = 100000

// ValidationError represents a single failed rule
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// BusinessValidator handles struct tags plus the marketplace rules that
// tags cannot express
type BusinessValidator struct {
	validate *validator.Validate
}

func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()
	return bv
}

// Validate runs struct tag validation
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err == nil {
		return nil
	}
	return bv.toValidationErrors(err)
}

func (bv *BusinessValidator) toValidationErrors(err error) ValidationErrors {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	var out ValidationErrors
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: bv.getErrorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

// ValidateCourseCreate validates course creation
func (bv *BusinessValidator) ValidateCourseCreate(req *CourseCreateRequest) ValidationErrors {
	return bv.Validate(req)
}

// ValidateCourseUpdate validates a partial course update
func (bv *BusinessValidator) ValidateCourseUpdate(req *CourseUpdateRequest) ValidationErrors {
	errs := bv.Validate(req)
	if req.Title == nil && req.Description == nil && req.Price == nil && req.Category == nil && req.ImageURL == nil {
		errs = append(errs, ValidationError{Field: "request", Message: "no fields to update", Rule: "business_logic"})
	}
	return errs
}

// ValidateSectionCreate validates a content section and its videos
func (bv *BusinessValidator) ValidateSectionCreate(req *SectionCreateRequest) ValidationErrors {
	errs := bv.Validate(req)

	seen := make(map[string]int, len(req.Videos))
	for i, v := range req.Videos {
		if prev, ok := seen[v.URL]; ok && v.URL != "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("videos[%d].url", i),
				Message: fmt.Sprintf("duplicates videos[%d]", prev),
				Value:   v.URL,
				Rule:    "business_logic",
			})
			continue
		}
		seen[v.URL] = i
	}
	return errs
}

func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if m, ok := field.Interface().(pricing.Money); ok {
			return m.Float64()
		}
		return nil
	}, pricing.Money{})

	bv.validate.RegisterValidation("course_price", func(fl validator.FieldLevel) bool {
		price := fl.Field().Float()
		return price >= 0 && price <= maxCoursePrice
	})

	bv.validate.RegisterValidation("rating", func(fl validator.FieldLevel) bool {
		rating := fl.Field().Int()
		return rating >= 1 && rating <= 5
	})

	bv.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("course_title", func(fl validator.FieldLevel) bool {
		n := len([]rune(strings.TrimSpace(fl.Field().String())))
		return n >= 1 && n <= 200
	})
}

// getErrorMessage returns user-friendly error messages
func (bv *BusinessValidator) getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "course_price":
		return fmt.Sprintf("must be between 0 and %d", maxCoursePrice)
	case "rating":
		return "must be between 1 and 5"
	case "user_role":
		return "must be student or instructor"
	case "course_title":
		return "must be between 1 and 200 characters"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
