package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/marketplace-service/internal/cache"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
)

type CoursePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.CourseRepository {
	return &CoursePostgreSQL{db: db, cacheManager: cacheManager}
}

func (r *CoursePostgreSQL) Create(ctx context.Context, course *models.Course) error {
	if err := r.db.WithContext(ctx).Omit("Sections", "Reviews").Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", translateError(err))
	}
	cache.InvalidateCatalog(ctx, r.cacheManager)
	return nil
}

// GetByID returns the course with its reviews, newest first.
func (r *CoursePostgreSQL) GetByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	err := r.cacheManager.Course.CacheOrExecute(ctx, "id:"+id, &course, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		var c models.Course
		err := r.db.WithContext(ctx).
			Preload("Reviews", func(db *gorm.DB) *gorm.DB {
				return db.Order("created_at DESC")
			}).
			Where("id = ?", id).
			First(&c).Error
		if err != nil {
			return nil, translateError(err)
		}
		return &c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

func (r *CoursePostgreSQL) Update(ctx context.Context, course *models.Course) error {
	result := r.db.WithContext(ctx).Model(&models.Course{}).
		Where("id = ?", course.ID).
		Updates(map[string]interface{}{
			"title":       course.Title,
			"description": course.Description,
			"price":       course.Price,
			"category":    course.Category,
			"image_url":   course.ImageURL,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update course: %w", translateError(result.Error))
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	cache.InvalidateCourse(ctx, r.cacheManager, course.ID)
	return nil
}

// Delete removes the course together with its enrollments, sections and reviews.
func (r *CoursePostgreSQL) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{&models.Enrollment{}, &models.ContentSection{}, &models.Review{}} {
			if err := tx.Where("course_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		result := tx.Where("id = ?", id).Delete(&models.Course{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repositories.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	cache.InvalidateCourse(ctx, r.cacheManager, id)
	return nil
}

func (r *CoursePostgreSQL) List(ctx context.Context, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Course{})

	if filters.Keyword != "" {
		pattern := likePattern(filters.Keyword)
		query = query.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.InstructorID != "" {
		query = query.Where("instructor_id = ?", filters.InstructorID)
	}
	if filters.IDs != nil {
		if len(filters.IDs) == 0 {
			return []*models.Course{}, 0, nil
		}
		query = query.Where("id IN ?", filters.IDs)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	var courses []*models.Course
	query = applyPaginationAndSort(query, courseSortColumns, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, total, nil
}

func (r *CoursePostgreSQL) Top(ctx context.Context, limit int) ([]*models.Course, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = 5
	}

	var courses []*models.Course
	err := r.cacheManager.Catalog.CacheOrExecute(ctx, fmt.Sprintf("top:%d", limit), &courses, cache.CatalogCacheConfig.TTL, func() (interface{}, error) {
		var top []*models.Course
		err := r.db.WithContext(ctx).
			Order("rating DESC").Order("num_reviews DESC").Order("created_at DESC").
			Limit(limit).
			Find(&top).Error
		return top, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get top courses: %w", err)
	}
	return courses, nil
}

func (r *CoursePostgreSQL) UpdateRating(ctx context.Context, id string, rating float64, numReviews int) error {
	result := r.db.WithContext(ctx).Model(&models.Course{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"rating":      rating,
			"num_reviews": numReviews,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update course rating: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	cache.InvalidateCourse(ctx, r.cacheManager, id)
	return nil
}
