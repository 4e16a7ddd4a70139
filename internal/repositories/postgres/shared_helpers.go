package postgres

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var (
	courseSortColumns = map[string]bool{
		"created_at":  true,
		"updated_at":  true,
		"title":       true,
		"price":       true,
		"rating":      true,
		"num_reviews": true,
	}
	orderSortColumns = map[string]bool{
		"created_at":  true,
		"updated_at":  true,
		"total_price": true,
		"paid_at":     true,
	}
	userSortColumns = map[string]bool{
		"created_at": true,
		"name":       true,
		"email":      true,
	}
)

// applyPaginationAndSort applies whitelisted ordering plus limit/offset.
func applyPaginationAndSort(query *gorm.DB, allowed map[string]bool, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	if sortBy == "" || !allowed[sortBy] {
		sortBy = "created_at"
	}

	if strings.EqualFold(sortOrder, "asc") {
		sortOrder = "ASC"
	} else {
		sortOrder = "DESC"
	}

	query = query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder)).Order("id ASC")

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}

// likePattern builds a case-insensitive LIKE pattern for LOWER(column) comparisons.
func likePattern(keyword string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(strings.TrimSpace(keyword)))
	return "%" + escaped + "%"
}

// translateError maps gorm errors onto repository errors.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", repositories.ErrDuplicate, err)
	default:
		return err
	}
}
