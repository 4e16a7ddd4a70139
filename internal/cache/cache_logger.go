package cache

import (
	"context"
	"log/slog"
)

// SafeInvalidatePattern invalidates a pattern and logs instead of failing
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes keys and logs instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateCourse drops the cached course document and every catalog page.
func InvalidateCourse(ctx context.Context, cm *CacheManager, courseID string) {
	cm.invalidate(ctx, func(ctx context.Context, m *CacheManager) {
		SafeDelete(ctx, m.Course, "id:"+courseID)
		SafeInvalidatePattern(ctx, m.Catalog, "*")
	})
}

// InvalidateCatalog drops every cached catalog page.
func InvalidateCatalog(ctx context.Context, cm *CacheManager) {
	cm.invalidate(ctx, func(ctx context.Context, m *CacheManager) {
		SafeInvalidatePattern(ctx, m.Catalog, "*")
	})
}

// InvalidateUser drops a cached user record.
func InvalidateUser(ctx context.Context, cm *CacheManager, userID string) {
	cm.invalidate(ctx, func(ctx context.Context, m *CacheManager) {
		SafeDelete(ctx, m.User, "id:"+userID)
	})
}
