package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/marketplace-service/internal/auth"
	"github.com/SAP-F-2025/marketplace-service/internal/events"
	"github.com/SAP-F-2025/marketplace-service/internal/metrics"
	"github.com/SAP-F-2025/marketplace-service/internal/payments"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
	"github.com/SAP-F-2025/marketplace-service/internal/validator"
)

// Dependencies holds everything the services are built from. Issuer,
// Publisher and Metrics may be nil; Currency defaults to USD.
type Dependencies struct {
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *validator.Validator
	Verifier  payments.Verifier
	Issuer    auth.TokenIssuer
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Currency  string
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps Dependencies

	userService       UserService
	courseService     CourseService
	reviewService     ReviewService
	orderService      OrderService
	enrollmentService EnrollmentService
	checkoutService   CheckoutService
	reportService     ReportService
	dashboardService  DashboardService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(deps Dependencies) ServiceManager {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Currency == "" {
		deps.Currency = "USD"
	}
	return &serviceManager{deps: deps}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if sm.deps.Repo == nil {
		return fmt.Errorf("repository is required")
	}
	if sm.deps.Verifier == nil {
		return fmt.Errorf("payment verifier is required")
	}

	d := sm.deps
	d.Logger.Info("Initializing service manager")

	sm.userService = NewUserService(d.Repo, d.Logger, d.Validator, d.Issuer)
	sm.courseService = NewCourseService(d.Repo, d.Logger, d.Validator)
	sm.reviewService = NewReviewService(d.Repo, d.Logger, d.Validator, d.Publisher, d.Metrics)
	sm.orderService = NewOrderService(d.Repo, d.Logger, d.Validator, d.Verifier, d.Publisher, d.Metrics, d.Currency)
	enrollments := newEnrollmentService(d.Repo, d.Logger, d.Publisher, d.Metrics)
	sm.enrollmentService = enrollments
	sm.checkoutService = NewCheckoutService(sm.orderService, enrollments, d.Logger)
	sm.reportService = NewReportService(d.Repo, d.Logger)
	sm.dashboardService = NewDashboardService(d.Repo, d.Logger)

	if err := d.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	sm.initialized = true
	d.Logger.Info("Service manager initialized successfully")
	return nil
}

// Service getters

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.userService
}

func (sm *serviceManager) Course() CourseService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.courseService
}

func (sm *serviceManager) Review() ReviewService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.reviewService
}

func (sm *serviceManager) Order() OrderService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.orderService
}

func (sm *serviceManager) Enrollment() EnrollmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.enrollmentService
}

func (sm *serviceManager) Checkout() CheckoutService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.checkoutService
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.reportService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.dashboardService
}

// mustBeReady panics when a getter is used before Initialize. Callers hold mu.
func (sm *serviceManager) mustBeReady() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}
	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

// Shutdown closes the event publisher. The repository is owned by the caller.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}
	sm.deps.Logger.Info("Shutting down service manager")

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.deps.Logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")
	return nil
}
