package repositories

import "context"

// Repository aggregates the per-entity repositories behind one handle.
type Repository interface {
	User() UserRepository

	// Catalog
	Course() CourseRepository
	Section() SectionRepository
	Review() ReviewRepository
	Enrollment() EnrollmentRepository

	// Purchasing
	Order() OrderRepository

	// Analytics
	Dashboard() DashboardRepository

	// WithTransaction runs fn against a repository bound to a single transaction.
	// Returning an error rolls the transaction back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
