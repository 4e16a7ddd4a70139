package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestRepo(t *testing.T) repositories.Repository {
	return NewPostgreSQLRepository(RepositoryConfig{DB: newTestDB(t)})
}

func seedUser(t *testing.T, repo repositories.Repository, email string) *models.User {
	t.Helper()
	u := &models.User{Name: strings.Split(email, "@")[0], Email: email, Password: "hash"}
	require.NoError(t, repo.User().Create(context.Background(), u))
	return u
}

func seedCourse(t *testing.T, repo repositories.Repository, instructorID, title, price string) *models.Course {
	t.Helper()
	c := &models.Course{Title: title, Description: title + " description", InstructorID: instructorID, Price: pricing.MustMoney(price), Category: "dev"}
	require.NoError(t, repo.Course().Create(context.Background(), c))
	return c
}

func TestUserRepository_EmailUnique(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := seedUser(t, repo, "Alice@Example.com")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)

	err := repo.User().Create(ctx, &models.User{Name: "dup", Email: "alice@example.com"})
	assert.True(t, repositories.IsDuplicateError(err), "got %v", err)

	found, err := repo.User().GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "hash", found.Password)

	exists, err := repo.User().ExistsByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.User().GetByID(ctx, "missing")
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestUserRepository_ListAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedUser(t, repo, "alice@example.com")
	bob := seedUser(t, repo, "bob@example.com")

	users, total, err := repo.User().List(ctx, repositories.UserFilters{Search: "BOB", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, bob.ID, users[0].ID)

	require.NoError(t, repo.User().Delete(ctx, bob.ID))
	assert.True(t, repositories.IsNotFoundError(repo.User().Delete(ctx, bob.ID)))
}

func TestCourseRepository_CRUDAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	inst := seedUser(t, repo, "inst@example.com")

	goCourse := seedCourse(t, repo, inst.ID, "Go Concurrency", "20.00")
	seedCourse(t, repo, inst.ID, "Rust Basics", "10.00")
	seedCourse(t, repo, "someone-else", "Advanced Go", "15.50")

	got, err := repo.Course().GetByID(ctx, goCourse.ID)
	require.NoError(t, err)
	assert.Equal(t, "20.00", got.Price.String())

	courses, total, err := repo.Course().List(ctx, repositories.CourseFilters{Keyword: "go", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, courses, 1)

	_, total, err = repo.Course().List(ctx, repositories.CourseFilters{InstructorID: inst.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	courses, _, err = repo.Course().List(ctx, repositories.CourseFilters{IDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, courses)

	goCourse.Title = "Go Concurrency Patterns"
	goCourse.Price = pricing.MustMoney("25")
	require.NoError(t, repo.Course().Update(ctx, goCourse))
	got, err = repo.Course().GetByID(ctx, goCourse.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go Concurrency Patterns", got.Title)
	assert.Equal(t, "25.00", got.Price.String())

	_, err = repo.Enrollment().Enroll(ctx, goCourse.ID, inst.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Course().Delete(ctx, goCourse.ID))
	_, err = repo.Course().GetByID(ctx, goCourse.ID)
	assert.True(t, repositories.IsNotFoundError(err))
	enrolled, err := repo.Enrollment().IsEnrolled(ctx, goCourse.ID, inst.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)
}

func TestCourseRepository_CachedReadInvalidatedOnUpdate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := NewPostgreSQLRepository(RepositoryConfig{DB: newTestDB(t), RedisClient: client})
	ctx := context.Background()
	c := seedCourse(t, repo, "inst", "Cached", "9.99")

	_, err := repo.Course().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists("course:id:"+c.ID))

	c.Title = "Cached v2"
	require.NoError(t, repo.Course().Update(ctx, c))
	assert.False(t, mr.Exists("course:id:"+c.ID))

	got, err := repo.Course().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cached v2", got.Title)
	assert.Equal(t, "9.99", got.Price.String())
}

func TestEnrollmentRepository_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	c := seedCourse(t, repo, "inst", "Course", "10.00")

	inserted, err := repo.Enrollment().Enroll(ctx, c.ID, "u1")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Enrollment().Enroll(ctx, c.ID, "u1")
	require.NoError(t, err)
	assert.False(t, inserted)

	count, err := repo.Enrollment().CountByCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	ids, err := repo.Enrollment().ListCourseIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, ids)
}

func TestEnrollmentRepository_ConcurrentEnrollInsertsOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	c := seedCourse(t, repo, "inst", "Course", "10.00")

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Enrollment().Enroll(ctx, c.ID, "u1")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	count, err := repo.Enrollment().CountByCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestReviewRepository_UniquePerUserAndAggregate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	c := seedCourse(t, repo, "inst", "Course", "10.00")

	require.NoError(t, repo.Review().Create(ctx, &models.Review{CourseID: c.ID, UserID: "u1", Rating: 5}))
	require.NoError(t, repo.Review().Create(ctx, &models.Review{CourseID: c.ID, UserID: "u2", Rating: 2}))

	err := repo.Review().Create(ctx, &models.Review{CourseID: c.ID, UserID: "u1", Rating: 1})
	assert.True(t, repositories.IsDuplicateError(err), "got %v", err)

	avg, count, err := repo.Review().Aggregate(ctx, c.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, avg, 0.0001)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.Course().UpdateRating(ctx, c.ID, avg, count))
	got, err := repo.Course().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumReviews)
	assert.Len(t, got.Reviews, 2)

	avg, count, err = repo.Review().Aggregate(ctx, "no-reviews")
	require.NoError(t, err)
	assert.Zero(t, avg)
	assert.Zero(t, count)
}

func TestSectionRepository_OrderedVideos(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	c := seedCourse(t, repo, "inst", "Course", "10.00")

	require.NoError(t, repo.Section().Create(ctx, &models.ContentSection{CourseID: c.ID, Name: "Second", Position: 2}))
	require.NoError(t, repo.Section().Create(ctx, &models.ContentSection{
		CourseID: c.ID, Name: "First", Position: 1,
		Videos: []models.Video{{Title: "Intro", URL: "https://cdn.example.com/intro.mp4"}},
	}))

	sections, err := repo.Section().ListByCourse(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "First", sections[0].Name)
	require.Len(t, sections[0].Videos, 1)
	assert.Equal(t, "Intro", sections[0].Videos[0].Title)
}

func newTestOrder(userID string, courses ...*models.Course) *models.Order {
	prices := make([]pricing.Money, 0, len(courses))
	items := make([]models.OrderItem, 0, len(courses))
	for _, c := range courses {
		prices = append(prices, c.Price)
		items = append(items, models.OrderItem{CourseID: c.ID, Name: c.Title, Price: c.Price})
	}
	totals := pricing.Calculate(prices)
	return &models.Order{
		UserID:     userID,
		Items:      items,
		ItemsPrice: totals.ItemsPrice,
		TaxPrice:   totals.TaxPrice,
		TotalPrice: totals.TotalPrice,
	}
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	c1 := seedCourse(t, repo, "inst", "C1", "20.00")
	c2 := seedCourse(t, repo, "inst", "C2", "10.00")

	order := newTestOrder("u1", c1, c2)
	require.NoError(t, repo.Order().Create(ctx, order))

	got, err := repo.Order().GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, "30.00", got.ItemsPrice.String())
	assert.Equal(t, "4.50", got.TaxPrice.String())
	assert.Equal(t, "34.50", got.TotalPrice.String())
	assert.False(t, got.IsPaid)
	assert.Nil(t, got.PaymentResult.TransactionID)

	mine, err := repo.Order().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = repo.Order().GetByID(ctx, "missing")
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestOrderRepository_MarkPaid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	c := seedCourse(t, repo, "inst", "C1", "20.00")

	first := newTestOrder("u1", c)
	second := newTestOrder("u1", c)
	require.NoError(t, repo.Order().Create(ctx, first))
	require.NoError(t, repo.Order().Create(ctx, second))

	txn := "TXN-1"
	paidAt := time.Now().UTC()
	require.NoError(t, repo.Order().MarkPaid(ctx, first.ID, models.PaymentResult{TransactionID: &txn, Status: "COMPLETED"}, paidAt))

	got, err := repo.Order().GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	require.NotNil(t, got.PaidAt)
	require.NotNil(t, got.PaymentResult.TransactionID)
	assert.Equal(t, txn, *got.PaymentResult.TransactionID)

	exists, err := repo.Order().ExistsByTransactionID(ctx, txn)
	require.NoError(t, err)
	assert.True(t, exists)

	// Same transaction on another order hits the unique index.
	err = repo.Order().MarkPaid(ctx, second.ID, models.PaymentResult{TransactionID: &txn}, paidAt)
	assert.True(t, repositories.IsDuplicateError(err), "got %v", err)

	// Paying an already paid order matches no row.
	other := "TXN-2"
	err = repo.Order().MarkPaid(ctx, first.ID, models.PaymentResult{TransactionID: &other}, paidAt)
	assert.ErrorIs(t, err, repositories.ErrConflict)

	err = repo.Order().MarkPaid(ctx, "missing", models.PaymentResult{TransactionID: &other}, paidAt)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	paid, err := repo.Order().HasPaidForCourse(ctx, "u1", c.ID)
	require.NoError(t, err)
	assert.True(t, paid)
	paid, err = repo.Order().HasPaidForCourse(ctx, "u2", c.ID)
	require.NoError(t, err)
	assert.False(t, paid)

	isPaid := true
	orders, total, err := repo.Order().List(ctx, repositories.OrderFilters{IsPaid: &isPaid})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, orders, 1)
}

func TestWithTransaction_RollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	c := seedCourse(t, repo, "inst", "C1", "20.00")

	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if _, err := tx.Enrollment().Enroll(ctx, c.ID, "u1"); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	enrolled, err := repo.Enrollment().IsEnrolled(ctx, c.ID, "u1")
	require.NoError(t, err)
	assert.False(t, enrolled)
}

func TestWithTransaction_InvalidatesCacheAfterCommit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := NewPostgreSQLRepository(RepositoryConfig{DB: newTestDB(t), RedisClient: client})
	ctx := context.Background()
	c := seedCourse(t, repo, "inst", "Rated", "9.99")
	key := "course:id:" + c.ID

	_, err := repo.Course().GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(key))

	err = repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Course().UpdateRating(ctx, c.ID, 4.5, 2); err != nil {
			return err
		}
		assert.True(t, mr.Exists(key), "cache must survive until commit")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))

	got, err := repo.Course().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.Rating)
	assert.Equal(t, 2, got.NumReviews)

	err = repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Course().UpdateRating(ctx, c.ID, 1, 3); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)
	assert.True(t, mr.Exists(key), "rolled back writes keep the cache")
}
