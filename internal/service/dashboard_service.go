package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ritmo-app/ritmo-api/internal/models"
	appErrors "github.com/ritmo-app/ritmo-api/pkg/errors"
)

type dashboardLedgerReader interface {
	SumByMonth(ctx context.Context, entryType models.LedgerType, status models.LedgerStatus, month, year int) (int64, error)
}

type dashboardStudentReader interface {
	CountActive(ctx context.Context) (int, error)
}

type dashboardEnrollmentReader interface {
	CountActive(ctx context.Context) (int, error)
}

type dashboardSessionReader interface {
	CountHeldInMonth(ctx context.Context, month, year int) (int, error)
}

// DashboardService assembles the month-at-a-glance summary. Results are
// cached in Redis with a short TTL; cache failures degrade to direct reads.
type DashboardService struct {
	ledger      dashboardLedgerReader
	students    dashboardStudentReader
	enrollments dashboardEnrollmentReader
	sessions    dashboardSessionReader
	redis       *redis.Client
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewDashboardService creates a DashboardService. redisClient may be nil,
// in which case caching is disabled.
func NewDashboardService(
	ledger dashboardLedgerReader,
	students dashboardStudentReader,
	enrollments dashboardEnrollmentReader,
	sessions dashboardSessionReader,
	redisClient *redis.Client,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &DashboardService{
		ledger:      ledger,
		students:    students,
		enrollments: enrollments,
		sessions:    sessions,
		redis:       redisClient,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// Summary returns the dashboard figures for a month. Month and year default
// to the current month.
func (s *DashboardService) Summary(ctx context.Context, month, year int) (*models.DashboardSummary, error) {
	now := time.Now()
	if month < 1 || month > 12 {
		month = int(now.Month())
	}
	if year <= 0 {
		year = now.Year()
	}

	cacheKey := fmt.Sprintf("dashboard:summary:%04d-%02d", year, month)
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var cached models.DashboardSummary
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	summary, err := s.build(ctx, month, year)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if raw, jsonErr := json.Marshal(summary); jsonErr == nil {
			if err := s.redis.Set(ctx, cacheKey, raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("dashboard cache write failed", zap.Error(err))
			}
		}
	}
	return summary, nil
}

func (s *DashboardService) build(ctx context.Context, month, year int) (*models.DashboardSummary, error) {
	incomeSettled, err := s.ledger.SumByMonth(ctx, models.LedgerTypeIncome, models.LedgerStatusSettled, month, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum settled income")
	}
	incomePending, err := s.ledger.SumByMonth(ctx, models.LedgerTypeIncome, models.LedgerStatusPending, month, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum pending income")
	}
	expenses, err := s.ledger.SumByMonth(ctx, models.LedgerTypeExpense, models.LedgerStatusSettled, month, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum expenses")
	}
	activeStudents, err := s.students.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active students")
	}
	activeEnrollments, err := s.enrollments.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active enrollments")
	}
	sessionsHeld, err := s.sessions.CountHeldInMonth(ctx, month, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count held sessions")
	}

	return &models.DashboardSummary{
		Month:             month,
		Year:              year,
		IncomeSettled:     incomeSettled,
		IncomeExpected:    incomeSettled + incomePending,
		Expenses:          expenses,
		ActiveStudents:    activeStudents,
		ActiveEnrollments: activeEnrollments,
		SessionsHeld:      sessionsHeld,
	}, nil
}
