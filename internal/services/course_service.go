package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
	"github.com/SAP-F-2025/marketplace-service/internal/validator"
)

const defaultTopCourses = 5

type courseService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCourseService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) CourseService {
	return &courseService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *courseService) Create(ctx context.Context, p *authz.Principal, req *CreateCourseRequest) (*models.Course, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if !p.Can(authz.CapCreateCourse) {
		return nil, NewPermissionError(p.UserID, "", "course", "create", "instructor or administrator only")
	}
	if errs := s.validator.GetBusinessValidator().ValidateCourseCreate(req); len(errs) > 0 {
		return nil, errs
	}

	course := &models.Course{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		InstructorID: p.UserID,
		Price:        req.Price.Round(),
		Category:     strings.TrimSpace(req.Category),
		ImageURL:     req.ImageURL,
	}
	if err := s.repo.Course().Create(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info("Course created", "course_id", course.ID, "instructor_id", p.UserID)
	return course, nil
}

func (s *courseService) Update(ctx context.Context, p *authz.Principal, id string, req *UpdateCourseRequest) (*models.Course, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if errs := s.validator.GetBusinessValidator().ValidateCourseUpdate(req); len(errs) > 0 {
		return nil, errs
	}

	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanManageCourse(course.InstructorID) {
		return nil, NewPermissionError(p.UserID, id, "course", "update", "not the course instructor")
	}

	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Price != nil {
		course.Price = req.Price.Round()
	}
	if req.Category != nil {
		course.Category = strings.TrimSpace(*req.Category)
	}
	if req.ImageURL != nil {
		course.ImageURL = *req.ImageURL
	}

	if err := s.repo.Course().Update(ctx, course); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, &CourseNotFoundError{CourseID: id}
		}
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	s.logger.Info("Course updated", "course_id", id, "user_id", p.UserID)
	return course, nil
}

func (s *courseService) Delete(ctx context.Context, p *authz.Principal, id string) error {
	if p == nil {
		return ErrUnauthenticated
	}
	course, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !p.CanManageCourse(course.InstructorID) {
		return NewPermissionError(p.UserID, id, "course", "delete", "not the course instructor")
	}

	if err := s.repo.Course().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return &CourseNotFoundError{CourseID: id}
		}
		return fmt.Errorf("failed to delete course: %w", err)
	}

	s.logger.Info("Course deleted", "course_id", id, "user_id", p.UserID)
	return nil
}

func (s *courseService) Get(ctx context.Context, p *authz.Principal, id string) (*CourseResponse, error) {
	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &CourseResponse{Course: course}
	if p != nil {
		resp.CanEdit = p.CanManageCourse(course.InstructorID)
		enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, id, p.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
		resp.IsEnrolled = enrolled
	}
	return resp, nil
}

func (s *courseService) List(ctx context.Context, params CourseListParams) (*models.CourseList, error) {
	page := params.ListParams.Normalize()
	courses, total, err := s.repo.Course().List(ctx, repositories.CourseFilters{
		Keyword:   strings.TrimSpace(params.Keyword),
		Category:  strings.TrimSpace(params.Category),
		Limit:     page.Size,
		Offset:    page.Offset(),
		SortBy:    "created_at",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return &models.CourseList{Courses: courses, Page: models.NewPage(page.Page, page.Size, total)}, nil
}

func (s *courseService) Top(ctx context.Context, limit int) ([]*models.Course, error) {
	if limit <= 0 || limit > 20 {
		limit = defaultTopCourses
	}
	courses, err := s.repo.Course().Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top courses: %w", err)
	}
	return courses, nil
}

// ListMine summarizes the caller's own courses with enrollment counts.
func (s *courseService) ListMine(ctx context.Context, p *authz.Principal) ([]*models.CourseSummary, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if !p.Can(authz.CapManageOwnCourses) && !p.Can(authz.CapManageAnyCourse) {
		return nil, NewPermissionError(p.UserID, "", "course", "list_own", "instructor only")
	}

	courses, _, err := s.repo.Course().List(ctx, repositories.CourseFilters{
		InstructorID: p.UserID,
		Limit:        100,
		SortBy:       "created_at",
		SortOrder:    "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list instructor courses: %w", err)
	}

	summaries := make([]*models.CourseSummary, 0, len(courses))
	for _, c := range courses {
		n, err := s.repo.Enrollment().CountByCourse(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count enrollments for %s: %w", c.ID, err)
		}
		summaries = append(summaries, &models.CourseSummary{
			ID:          c.ID,
			Title:       c.Title,
			Category:    c.Category,
			Price:       c.Price.String(),
			Rating:      c.Rating,
			NumReviews:  c.NumReviews,
			NumEnrolled: n,
			CreatedAt:   c.CreatedAt,
		})
	}
	return summaries, nil
}

// ===== CONTENT =====

func (s *courseService) AddSection(ctx context.Context, p *authz.Principal, courseID string, req *CreateSectionRequest) (*models.ContentSection, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if errs := s.validator.GetBusinessValidator().ValidateSectionCreate(req); len(errs) > 0 {
		return nil, errs
	}

	course, err := s.load(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !p.CanManageCourse(course.InstructorID) {
		return nil, NewPermissionError(p.UserID, courseID, "course", "add_section", "not the course instructor")
	}

	position := 0
	if req.Position != nil {
		position = *req.Position
	} else {
		existing, err := s.repo.Section().ListByCourse(ctx, courseID)
		if err != nil {
			return nil, fmt.Errorf("failed to list sections: %w", err)
		}
		position = len(existing)
	}

	videos := make([]models.Video, 0, len(req.Videos))
	for _, v := range req.Videos {
		videos = append(videos, models.Video{Title: v.Title, Description: v.Description, URL: v.URL})
	}

	section := &models.ContentSection{
		CourseID: courseID,
		Name:     strings.TrimSpace(req.Name),
		Position: position,
		Videos:   videos,
	}
	if err := s.repo.Section().Create(ctx, section); err != nil {
		return nil, fmt.Errorf("failed to create section: %w", err)
	}

	s.logger.Info("Section created", "course_id", courseID, "section_id", section.ID, "videos", len(videos))
	return section, nil
}

// ListSections returns course content to enrolled users, the course's
// instructor and administrators.
func (s *courseService) ListSections(ctx context.Context, p *authz.Principal, courseID string) ([]*models.ContentSection, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	course, err := s.load(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if !p.CanManageCourse(course.InstructorID) && !p.Can(authz.CapReadAnyContent) {
		enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, courseID, p.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
		if !enrolled {
			return nil, ErrContentAccessDenied
		}
	}

	sections, err := s.repo.Section().ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	return sections, nil
}

func (s *courseService) load(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, &CourseNotFoundError{CourseID: id}
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}
