package models

import "time"

// ===== PAGINATION =====

type Page struct {
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

func NewPage(page, size int, total int64) Page {
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Page{Page: page, Size: size, Total: total, Pages: pages}
}

type CourseList struct {
	Courses []*Course `json:"courses"`
	Page
}

type OrderList struct {
	Orders []*Order `json:"orders"`
	Page
}

type UserList struct {
	Users []*User `json:"users"`
	Page
}

// ===== SUMMARIES =====

type CourseSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Price       string    `json:"price"`
	Rating      float64   `json:"rating"`
	NumReviews  int       `json:"num_reviews"`
	NumEnrolled int64     `json:"num_enrolled"`
	CreatedAt   time.Time `json:"created_at"`
}

// ===== ERROR / SUCCESS RESPONSES =====

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
