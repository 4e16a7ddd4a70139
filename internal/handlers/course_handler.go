package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/marketplace-service/internal/services"
	"github.com/SAP-F-2025/marketplace-service/internal/utils"
)

type CourseHandler struct {
	BaseHandler
	courseService     services.CourseService
	reviewService     services.ReviewService
	enrollmentService services.EnrollmentService
}

func NewCourseHandler(
	courseService services.CourseService,
	reviewService services.ReviewService,
	enrollmentService services.EnrollmentService,
	logger utils.Logger,
) *CourseHandler {
	return &CourseHandler{
		BaseHandler:       NewBaseHandler(logger),
		courseService:     courseService,
		reviewService:     reviewService,
		enrollmentService: enrollmentService,
	}
}

// ListCourses lists the catalog
// @Summary List courses
// @Tags courses
// @Produce json
// @Param keyword query string false "Matches title or description"
// @Param category query string false "Category"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} models.CourseList
// @Router /courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	var params services.CourseListParams
	if !h.bindQuery(c, &params) {
		return
	}

	list, err := h.courseService.List(c.Request.Context(), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// TopCourses returns the best rated courses
// @Summary Top courses
// @Tags courses
// @Produce json
// @Param limit query int false "Number of courses (default: 5, max: 20)"
// @Success 200 {array} models.Course
// @Router /courses/top [get]
func (h *CourseHandler) TopCourses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	courses, err := h.courseService.Top(c.Request.Context(), limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

// GetCourse returns a course with its reviews
// @Summary Get course
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} services.CourseResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	course, err := h.courseService.Get(c.Request.Context(), h.principal(c), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// CreateCourse adds a course owned by the caller
// @Summary Create course
// @Tags courses
// @Accept json
// @Produce json
// @Param course body services.CreateCourseRequest true "Course data"
// @Success 201 {object} models.Course
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	course, err := h.courseService.Create(c.Request.Context(), h.principal(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Course created", "course_id", course.ID)
	c.JSON(http.StatusCreated, course)
}

// UpdateCourse edits a course
// @Summary Update course
// @Tags courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param course body services.UpdateCourseRequest true "Changes"
// @Success 200 {object} models.Course
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [put]
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	var req services.UpdateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	course, err := h.courseService.Update(c.Request.Context(), h.principal(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// DeleteCourse removes a course
// @Summary Delete course
// @Tags courses
// @Param id path string true "Course ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [delete]
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Deleting course", "course_id", id)

	if err := h.courseService.Delete(c.Request.Context(), h.principal(c), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Course removed"})
}

// MyCourses summarizes the caller's own courses
// @Summary Instructor courses
// @Tags courses
// @Produce json
// @Success 200 {array} models.CourseSummary
// @Router /courses/mine [get]
func (h *CourseHandler) MyCourses(c *gin.Context) {
	summaries, err := h.courseService.ListMine(c.Request.Context(), h.principal(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// EnrolledCourses lists courses the caller is enrolled in
// @Summary Enrolled courses
// @Tags courses
// @Produce json
// @Success 200 {array} models.Course
// @Router /courses/enrolled [get]
func (h *CourseHandler) EnrolledCourses(c *gin.Context) {
	courses, err := h.enrollmentService.ListEnrolledCourses(c.Request.Context(), h.principal(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

// ===== CONTENT =====

// AddSection appends a content section to a course
// @Summary Add section
// @Tags content
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param section body services.CreateSectionRequest true "Section data"
// @Success 201 {object} models.ContentSection
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /courses/{id}/sections [post]
func (h *CourseHandler) AddSection(c *gin.Context) {
	var req services.CreateSectionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	section, err := h.courseService.AddSection(c.Request.Context(), h.principal(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, section)
}

// ListSections returns course content to enrolled users
// @Summary List sections
// @Tags content
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {array} models.ContentSection
// @Failure 403 {object} ErrorResponse
// @Router /courses/{id}/sections [get]
func (h *CourseHandler) ListSections(c *gin.Context) {
	sections, err := h.courseService.ListSections(c.Request.Context(), h.principal(c), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sections)
}

// ===== REVIEWS AND ENROLLMENT =====

// CreateReview rates an enrolled course
// @Summary Review course
// @Tags reviews
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param review body services.CreateReviewRequest true "Rating and comment"
// @Success 201 {object} models.Review
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /courses/{id}/reviews [post]
func (h *CourseHandler) CreateReview(c *gin.Context) {
	var req services.CreateReviewRequest
	if !h.bindJSON(c, &req) {
		return
	}

	review, err := h.reviewService.Create(c.Request.Context(), h.principal(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// Enroll adds the caller to a course
// @Summary Enroll
// @Tags enrollment
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} services.EnrollmentResult
// @Failure 402 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/enroll [post]
func (h *CourseHandler) Enroll(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Enrolling", "course_id", id)

	result, err := h.enrollmentService.Enroll(c.Request.Context(), h.principal(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
