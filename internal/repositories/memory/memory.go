// Package memory is an in-process Repository that enforces the same
// uniqueness rules as the SQL schema. It backs service tests and local runs
// without a database.
package memory

import (
	"context"
	"maps"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
)

type enrollmentKey struct {
	courseID string
	userID   string
}

type state struct {
	users       map[string]models.User
	courses     map[string]models.Course
	enrollments map[enrollmentKey]time.Time
	sections    map[string]models.ContentSection
	reviews     map[string]models.Review
	orders      map[string]models.Order
}

func (s state) clone() state {
	orders := make(map[string]models.Order, len(s.orders))
	for id, o := range s.orders {
		o.Items = slices.Clone(o.Items)
		orders[id] = o
	}
	return state{
		users:       maps.Clone(s.users),
		courses:     maps.Clone(s.courses),
		enrollments: maps.Clone(s.enrollments),
		sections:    maps.Clone(s.sections),
		reviews:     maps.Clone(s.reviews),
		orders:      orders,
	}
}

// Store implements repositories.Repository.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data state
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{
		data: state{
			users:       map[string]models.User{},
			courses:     map[string]models.Course{},
			enrollments: map[enrollmentKey]time.Time{},
			sections:    map[string]models.ContentSection{},
			reviews:     map[string]models.Review{},
			orders:      map[string]models.Order{},
		},
		now: time.Now,
	}
}

func (s *Store) User() repositories.UserRepository             { return userRepo{s} }
func (s *Store) Course() repositories.CourseRepository         { return courseRepo{s} }
func (s *Store) Section() repositories.SectionRepository       { return sectionRepo{s} }
func (s *Store) Review() repositories.ReviewRepository         { return reviewRepo{s} }
func (s *Store) Enrollment() repositories.EnrollmentRepository { return enrollmentRepo{s} }
func (s *Store) Order() repositories.OrderRepository           { return orderRepo{s} }
func (s *Store) Dashboard() repositories.DashboardRepository   { return dashboardRepo{s} }

// WithTransaction serialises transactions and restores the previous state
// when fn fails. Writes outside a transaction are not isolated from it.
func (s *Store) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }

func newID() string { return uuid.NewString() }

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	if limit <= 0 {
		limit = 20
	}
	end := len(items)
	if limit < end-offset {
		end = offset + limit
	}
	return items[offset:end]
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

// ===== USERS =====

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range r.s.data.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = newID()
	}
	if user.Role == "" {
		user.Role = models.RoleStudent
	}
	now := r.s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.data.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.data.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r userRepo) Update(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.data.users[user.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	for id, u := range r.s.data.users {
		if id != user.ID && u.Email == email {
			return repositories.ErrDuplicate
		}
	}
	existing.Name = user.Name
	existing.Email = email
	existing.Role = user.Role
	existing.IsAdmin = user.IsAdmin
	if user.Password != "" {
		existing.Password = user.Password
	}
	existing.UpdatedAt = r.s.now()
	r.s.data.users[user.ID] = existing
	return nil
}

func (r userRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.data.users, id)
	return nil
}

func (r userRepo) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.User
	for _, u := range r.s.data.users {
		if filters.Role != nil && u.Role != *filters.Role {
			continue
		}
		if filters.IsAdmin != nil && u.IsAdmin != *filters.IsAdmin {
			continue
		}
		if filters.Search != "" && !containsFold(u.Name, filters.Search) && !containsFold(u.Email, filters.Search) {
			continue
		}
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (r userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if repositories.IsNotFoundError(err) {
		return false, nil
	}
	return err == nil, err
}

// ===== COURSES =====

type courseRepo struct{ s *Store }

func (r courseRepo) Create(ctx context.Context, course *models.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if course.ID == "" {
		course.ID = newID()
	}
	now := r.s.now()
	course.CreatedAt, course.UpdatedAt = now, now
	stored := *course
	stored.Sections, stored.Reviews = nil, nil
	r.s.data.courses[course.ID] = stored
	return nil
}

func (r courseRepo) GetByID(ctx context.Context, id string) (*models.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.data.courses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c.Reviews = r.s.reviewsFor(id)
	return &c, nil
}

func (r courseRepo) Update(ctx context.Context, course *models.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.data.courses[course.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	existing.Title = course.Title
	existing.Description = course.Description
	existing.Price = course.Price
	existing.Category = course.Category
	existing.ImageURL = course.ImageURL
	existing.UpdatedAt = r.s.now()
	r.s.data.courses[course.ID] = existing
	return nil
}

func (r courseRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.courses[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.data.courses, id)
	for k := range r.s.data.enrollments {
		if k.courseID == id {
			delete(r.s.data.enrollments, k)
		}
	}
	for sid, sec := range r.s.data.sections {
		if sec.CourseID == id {
			delete(r.s.data.sections, sid)
		}
	}
	for rid, rev := range r.s.data.reviews {
		if rev.CourseID == id {
			delete(r.s.data.reviews, rid)
		}
	}
	return nil
}

func (r courseRepo) List(ctx context.Context, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var ids map[string]bool
	if filters.IDs != nil {
		ids = make(map[string]bool, len(filters.IDs))
		for _, id := range filters.IDs {
			ids[id] = true
		}
	}

	var out []*models.Course
	for _, c := range r.s.data.courses {
		if filters.Keyword != "" && !containsFold(c.Title, filters.Keyword) && !containsFold(c.Description, filters.Keyword) {
			continue
		}
		if filters.Category != "" && c.Category != filters.Category {
			continue
		}
		if filters.InstructorID != "" && c.InstructorID != filters.InstructorID {
			continue
		}
		if ids != nil && !ids[c.ID] {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (r courseRepo) Top(ctx context.Context, limit int) ([]*models.Course, error) {
	all, _, err := r.List(ctx, repositories.CourseFilters{Limit: math.MaxInt})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Rating != all[j].Rating {
			return all[i].Rating > all[j].Rating
		}
		return all[i].NumReviews > all[j].NumReviews
	})
	if limit <= 0 {
		limit = 5
	}
	return paginate(all, limit, 0), nil
}

func (r courseRepo) UpdateRating(ctx context.Context, id string, rating float64, numReviews int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.data.courses[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.Rating = rating
	c.NumReviews = numReviews
	r.s.data.courses[id] = c
	return nil
}

// ===== SECTIONS =====

type sectionRepo struct{ s *Store }

func (r sectionRepo) Create(ctx context.Context, section *models.ContentSection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if section.ID == "" {
		section.ID = newID()
	}
	section.CreatedAt = r.s.now()
	stored := *section
	stored.Videos = slices.Clone(section.Videos)
	r.s.data.sections[section.ID] = stored
	return nil
}

func (r sectionRepo) ListByCourse(ctx context.Context, courseID string) ([]*models.ContentSection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.ContentSection
	for _, sec := range r.s.data.sections {
		if sec.CourseID == courseID {
			sec := sec
			out = append(out, &sec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ===== REVIEWS =====

type reviewRepo struct{ s *Store }

func (s *Store) reviewsFor(courseID string) []models.Review {
	var out []models.Review
	for _, rev := range s.data.reviews {
		if rev.CourseID == courseID {
			out = append(out, rev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r reviewRepo) Create(ctx context.Context, review *models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, rev := range r.s.data.reviews {
		if rev.CourseID == review.CourseID && rev.UserID == review.UserID {
			return repositories.ErrDuplicate
		}
	}
	if review.ID == "" {
		review.ID = newID()
	}
	review.CreatedAt = r.s.now()
	r.s.data.reviews[review.ID] = *review
	return nil
}

func (r reviewRepo) Exists(ctx context.Context, courseID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rev := range r.s.data.reviews {
		if rev.CourseID == courseID && rev.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r reviewRepo) ListByCourse(ctx context.Context, courseID string) ([]*models.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	reviews := r.s.reviewsFor(courseID)
	out := make([]*models.Review, len(reviews))
	for i := range reviews {
		out[i] = &reviews[i]
	}
	return out, nil
}

func (r reviewRepo) Aggregate(ctx context.Context, courseID string) (float64, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sum, count := 0, 0
	for _, rev := range r.s.data.reviews {
		if rev.CourseID == courseID {
			sum += rev.Rating
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

// ===== ENROLLMENTS =====

type enrollmentRepo struct{ s *Store }

func (r enrollmentRepo) Enroll(ctx context.Context, courseID, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := enrollmentKey{courseID, userID}
	if _, ok := r.s.data.enrollments[key]; ok {
		return false, nil
	}
	r.s.data.enrollments[key] = r.s.now()
	return true, nil
}

func (r enrollmentRepo) IsEnrolled(ctx context.Context, courseID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.data.enrollments[enrollmentKey{courseID, userID}]
	return ok, nil
}

func (r enrollmentRepo) ListCourseIDs(ctx context.Context, userID string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	type entry struct {
		id string
		at time.Time
	}
	var entries []entry
	for k, at := range r.s.data.enrollments {
		if k.userID == userID {
			entries = append(entries, entry{k.courseID, at})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids, nil
}

func (r enrollmentRepo) CountByCourse(ctx context.Context, courseID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for k := range r.s.data.enrollments {
		if k.courseID == courseID {
			n++
		}
	}
	return n, nil
}

// ===== ORDERS =====

type orderRepo struct{ s *Store }

func (r orderRepo) Create(ctx context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if order.ID == "" {
		order.ID = newID()
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = newID()
		}
		order.Items[i].OrderID = order.ID
	}
	now := r.s.now()
	order.CreatedAt, order.UpdatedAt = now, now
	stored := *order
	stored.Items = slices.Clone(order.Items)
	r.s.data.orders[order.ID] = stored
	return nil
}

func (r orderRepo) get(id string) (*models.Order, bool) {
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, false
	}
	o.Items = slices.Clone(o.Items)
	return &o, true
}

func (r orderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.get(id)
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return o, nil
}

func (r orderRepo) ListByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	orders, _, err := r.List(ctx, repositories.OrderFilters{UserID: userID, Limit: math.MaxInt})
	return orders, err
}

func (r orderRepo) List(ctx context.Context, filters repositories.OrderFilters) ([]*models.Order, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.Order
	for id, o := range r.s.data.orders {
		if filters.UserID != "" && o.UserID != filters.UserID {
			continue
		}
		if filters.IsPaid != nil && o.IsPaid != *filters.IsPaid {
			continue
		}
		if filters.DateFrom != nil && o.CreatedAt.Before(*filters.DateFrom) {
			continue
		}
		if filters.DateTo != nil && o.CreatedAt.After(*filters.DateTo) {
			continue
		}
		order, _ := r.get(id)
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (r orderRepo) ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.transactionUsed(transactionID, ""), nil
}

func (s *Store) transactionUsed(transactionID, exceptOrderID string) bool {
	for id, o := range s.data.orders {
		if id == exceptOrderID {
			continue
		}
		if o.PaymentResult.TransactionID != nil && *o.PaymentResult.TransactionID == transactionID {
			return true
		}
	}
	return false
}

func (r orderRepo) MarkPaid(ctx context.Context, id string, payment models.PaymentResult, paidAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.data.orders[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if o.IsPaid {
		return repositories.ErrConflict
	}
	if payment.TransactionID != nil && r.s.transactionUsed(*payment.TransactionID, id) {
		return repositories.ErrDuplicate
	}
	o.IsPaid = true
	o.PaidAt = &paidAt
	o.PaymentResult = payment
	o.UpdatedAt = r.s.now()
	r.s.data.orders[id] = o
	return nil
}

func (r orderRepo) HasPaidForCourse(ctx context.Context, userID, courseID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, o := range r.s.data.orders {
		if o.UserID != userID || !o.IsPaid {
			continue
		}
		for _, item := range o.Items {
			if item.CourseID == courseID {
				return true, nil
			}
		}
	}
	return false, nil
}

// ===== DASHBOARD =====

type dashboardRepo struct{ s *Store }

func (r dashboardRepo) CountCourses(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.data.courses)), nil
}

func (r dashboardRepo) CountEnrollments(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.data.enrollments)), nil
}

func (r dashboardRepo) CountOrders(ctx context.Context, isPaid *bool) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, o := range r.s.data.orders {
		if isPaid == nil || o.IsPaid == *isPaid {
			n++
		}
	}
	return n, nil
}

func (r dashboardRepo) SalesBetween(ctx context.Context, from, to time.Time) (repositories.SalesData, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out repositories.SalesData
	buyers := map[string]struct{}{}
	for _, o := range r.s.data.orders {
		if !o.IsPaid || o.PaidAt == nil || o.PaidAt.Before(from) || !o.PaidAt.Before(to) {
			continue
		}
		out.Orders++
		out.Revenue = out.Revenue.Add(o.TotalPrice)
		buyers[o.UserID] = struct{}{}
	}
	out.Buyers = int64(len(buyers))
	out.Revenue = out.Revenue.Round()
	return out, nil
}

func (r dashboardRepo) TopSellingCourses(ctx context.Context, limit int) ([]repositories.CourseSalesData, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byCourse := map[string]*repositories.CourseSalesData{}
	for _, o := range r.s.data.orders {
		if !o.IsPaid {
			continue
		}
		for _, item := range o.Items {
			row, ok := byCourse[item.CourseID]
			if !ok {
				row = &repositories.CourseSalesData{CourseID: item.CourseID, Title: item.Name}
				byCourse[item.CourseID] = row
			}
			row.Sold++
			row.Revenue = row.Revenue.Add(item.Price)
		}
	}

	out := make([]repositories.CourseSalesData, 0, len(byCourse))
	for _, row := range byCourse {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sold != out[j].Sold {
			return out[i].Sold > out[j].Sold
		}
		return out[i].Revenue.Decimal().GreaterThan(out[j].Revenue.Decimal())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
