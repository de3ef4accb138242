package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	noop_metric "go.opentelemetry.io/otel/metric/noop"
	noop_trace "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"loanadmin/config"
	"loanadmin/internal/domain"
)

type stubEmiRepository struct {
	sweepCutoff     time.Time
	sweepLateCharge float64
	sweepCalls      int
	sweepErr        error
}

func (s *stubEmiRepository) FindByID(ctx context.Context, id uint64) (*domain.Emi, error) {
	return nil, nil
}

func (s *stubEmiRepository) FindOverduePaginated(ctx context.Context, params domain.Params) ([]domain.OverdueLineItem, int64, error) {
	return nil, 0, nil
}

func (s *stubEmiRepository) MarkOverdueBefore(ctx context.Context, cutoff time.Time, lateCharge float64) (int64, error) {
	s.sweepCalls++
	s.sweepCutoff = cutoff
	s.sweepLateCharge = lateCharge
	if s.sweepErr != nil {
		return 0, s.sweepErr
	}
	return 3, nil
}

func (s *stubEmiRepository) MarkPaid(ctx context.Context, emiID uint64, receiptID string, paidAt time.Time) error {
	return nil
}

func (s *stubEmiRepository) CountUnpaidByLoan(ctx context.Context, loanID uint64) (int64, error) {
	return 0, nil
}

func newTestSweeper(repo *stubEmiRepository, lateCharge string) *Sweeper {
	cfg := &config.Config{
		LATE_CHARGE_FLAT:   lateCharge,
		OVERDUE_SWEEP_SPEC: "0 1 * * *",
	}
	return NewSweeper(
		cfg,
		repo,
		noop_metric.NewMeterProvider().Meter("test-sweeper-meter"),
		noop_trace.NewTracerProvider().Tracer("test-sweeper-tracer"),
		zap.NewNop(),
	)
}

func TestRunOnceUsesLocalMidnightCutoff(t *testing.T) {
	repo := &stubEmiRepository{}
	s := newTestSweeper(repo, "50")

	s.RunOnce(context.Background())

	assert.Equal(t, 1, repo.sweepCalls)
	assert.Equal(t, 50.0, repo.sweepLateCharge)

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	assert.True(t, repo.sweepCutoff.Equal(midnight),
		"cutoff %s should be local midnight %s", repo.sweepCutoff, midnight)
}

func TestRunOnceSurvivesRepositoryFailure(t *testing.T) {
	repo := &stubEmiRepository{sweepErr: errors.New("deadlock")}
	s := newTestSweeper(repo, "50")

	s.RunOnce(context.Background())

	assert.Equal(t, 1, repo.sweepCalls)
}

func TestInvalidLateChargeDefaultsToZero(t *testing.T) {
	repo := &stubEmiRepository{}

	for _, raw := range []string{"not-a-number", "-5", ""} {
		s := newTestSweeper(repo, raw)
		s.RunOnce(context.Background())
		assert.Equal(t, 0.0, repo.sweepLateCharge, "late charge %q", raw)
	}
}
