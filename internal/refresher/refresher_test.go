package refresher

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"captable/internal/finance"
	"captable/internal/models"
	"captable/internal/pagination"
	"captable/internal/services"
)

// sweepRecorder counts sweep calls; only the maturity and refresh
// methods are expected to be invoked by the refresher.
type sweepRecorder struct {
	mu           sync.Mutex
	maturedCalls int
	refreshCalls int
	chunkSizes   []int
	maturedErr   error
	refreshErr   error
	maturedDelay time.Duration
}

func (s *sweepRecorder) MarkMatured(_ time.Time) (int64, error) {
	if s.maturedDelay > 0 {
		time.Sleep(s.maturedDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maturedCalls++
	return 2, s.maturedErr
}

func (s *sweepRecorder) RefreshAccruedInterest(_ time.Time, chunkSize int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	s.chunkSizes = append(s.chunkSizes, chunkSize)
	return 5, s.refreshErr
}

func (s *sweepRecorder) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maturedCalls, s.refreshCalls
}

func (s *sweepRecorder) Create(_, _ string, _ services.CreateInstrumentInput) (*models.ConvertibleInstrument, error) {
	panic("not expected")
}

func (s *sweepRecorder) List(_, _ string, _ services.InstrumentFilter, _ pagination.PageRequest) (*pagination.PageResponse[models.ConvertibleInstrument], *services.InstrumentSummary, error) {
	panic("not expected")
}

func (s *sweepRecorder) GetByID(_, _, _ string) (*services.InstrumentDetail, error) {
	panic("not expected")
}

func (s *sweepRecorder) GetInterestBreakdown(_, _, _ string) (*services.InterestBreakdown, error) {
	panic("not expected")
}

func (s *sweepRecorder) GetScenarios(_, _, _ string, _ []decimal.Decimal) (*finance.ScenarioSet, error) {
	panic("not expected")
}

func (s *sweepRecorder) Update(_, _, _ string, _ services.UpdateInstrumentInput) (*models.ConvertibleInstrument, error) {
	panic("not expected")
}

func (s *sweepRecorder) Redeem(_, _, _ string, _ decimal.Decimal, _ string) (*models.ConvertibleInstrument, error) {
	panic("not expected")
}

func (s *sweepRecorder) Cancel(_, _, _, _ string) (*models.ConvertibleInstrument, error) {
	panic("not expected")
}

func (s *sweepRecorder) Convert(_, _, _, _, _ string, _ decimal.Decimal) (*services.ConversionResult, error) {
	panic("not expected")
}

var _ services.ConvertibleServicer = (*sweepRecorder)(nil)

func TestRunOnceSweepsMaturityThenInterest(t *testing.T) {
	rec := &sweepRecorder{}
	r := New(rec, time.Hour, 25)

	r.RunOnce(time.Now())

	matured, refreshed := rec.calls()
	if matured != 1 || refreshed != 1 {
		t.Fatalf("expected one call each, got matured=%d refreshed=%d", matured, refreshed)
	}
	if rec.chunkSizes[0] != 25 {
		t.Errorf("expected chunk size 25, got %d", rec.chunkSizes[0])
	}
}

func TestRunOnceContinuesAfterMaturityError(t *testing.T) {
	rec := &sweepRecorder{maturedErr: errors.New("db down")}
	r := New(rec, time.Hour, 25)

	r.RunOnce(time.Now())

	_, refreshed := rec.calls()
	if refreshed != 1 {
		t.Fatalf("interest refresh should still run after maturity sweep failure, got %d calls", refreshed)
	}
}

func TestStartRunsInitialSweep(t *testing.T) {
	rec := &sweepRecorder{}
	r := New(rec, time.Hour, 10)

	r.Start()
	defer r.Stop()

	deadline := time.After(2 * time.Second)
	for {
		matured, refreshed := rec.calls()
		if matured >= 1 && refreshed >= 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("initial sweep did not run: matured=%d refreshed=%d", matured, refreshed)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStartTwiceIsNoOp(t *testing.T) {
	rec := &sweepRecorder{}
	r := New(rec, time.Hour, 10)

	r.Start()
	r.Start()
	r.Stop()

	matured, _ := rec.calls()
	if matured != 1 {
		t.Fatalf("expected a single startup sweep, got %d", matured)
	}
}

func TestStopDuringSweepWaitsForCompletion(t *testing.T) {
	rec := &sweepRecorder{maturedDelay: 80 * time.Millisecond}
	r := New(rec, time.Hour, 10)

	r.Start()
	// The startup sweep is now sleeping inside MarkMatured.
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the in-flight sweep finished")
	}

	matured, refreshed := rec.calls()
	if matured != 1 || refreshed != 1 {
		t.Fatalf("in-flight sweep should complete exactly once, got matured=%d refreshed=%d", matured, refreshed)
	}
}

func TestStopWaitsAndIsIdempotent(t *testing.T) {
	rec := &sweepRecorder{}
	r := New(rec, 20*time.Millisecond, 10)

	r.Start()
	time.Sleep(70 * time.Millisecond)
	r.Stop()
	r.Stop()

	maturedAfterStop, _ := rec.calls()
	time.Sleep(60 * time.Millisecond)
	matured, _ := rec.calls()
	if matured != maturedAfterStop {
		t.Fatalf("sweeps continued after Stop: before=%d after=%d", maturedAfterStop, matured)
	}
	if matured < 2 {
		t.Fatalf("expected at least startup plus one ticker sweep, got %d", matured)
	}
}
