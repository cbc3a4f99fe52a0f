// Package conformance checks a bench backend against the behaviour every
// port must share. Backends run it from their own tests:
//
//	func TestConformance(t *testing.T) {
//		conformance.Run(t, conformance.Config{New: newHarness})
//	}
//
// Observations are recorded inside kernel threads and asserted after
// TestInit returns, so no assertion runs on a scheduler goroutine.
package conformance

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rtbench/bench"
)

// Harness is a backend under test.
type Harness interface {
	bench.Port
	bench.Inspector
}

// Config describes the backend under test.
type Config struct {
	// New returns a fresh, idle backend for every test.
	New func() Harness
	// High must be more urgent than the main thread, Low less urgent.
	High, Low bench.Priority
}

// Run executes the suite against cfg.New.
func Run(t *testing.T, cfg Config) {
	t.Helper()
	if cfg.New == nil {
		t.Fatal("conformance: nil New")
	}
	suite.Run(t, &Suite{cfg: cfg})
}

// Suite holds one backend per test.
type Suite struct {
	suite.Suite
	cfg Config
	h   Harness
}

func (s *Suite) SetupTest() {
	s.h = s.cfg.New()
}

// run executes init as the main thread and requires a clean finish.
func (s *Suite) run(init func()) {
	s.Require().NoError(s.h.TestInit(func(any) { init() }))
}

func (s *Suite) TestCreateDoesNotSchedule() {
	ran := 0
	var before bench.ThreadState
	var beforeRuns int
	var startErr error

	s.run(func() {
		_ = s.h.ThreadCreate(0, "a", s.cfg.High, func(any) { ran++ }, nil)
		_ = s.h.Yield()
		before, _ = s.h.ThreadState(0)
		beforeRuns = ran
		startErr = s.h.ThreadStart(0)
	})

	s.Equal(bench.StateCreated, before)
	s.Zero(beforeRuns, "entry ran before start")
	s.NoError(startErr)
	s.Equal(1, ran)
}

func (s *Suite) TestSemaphoreBound() {
	var counts []int
	var takes []error
	s.run(func() {
		_ = s.h.SemCreate(0, 0, 2)
		for i := 0; i < 5; i++ {
			_ = s.h.SemGive(0)
		}
		c, _ := s.h.SemCount(0)
		counts = append(counts, c)
		takes = append(takes, s.h.SemTake(0), s.h.SemTake(0))
		c, _ = s.h.SemCount(0)
		counts = append(counts, c)
	})
	s.Equal([]int{2, 0}, counts)
	for _, err := range takes {
		s.NoError(err)
	}
}

func (s *Suite) TestSemaphoreBlocksAndGives() {
	var pending bench.ThreadState
	var countAfter int
	taken := false

	s.run(func() {
		_ = s.h.SemCreate(0, 0, 1)
		_ = s.h.ThreadCreate(1, "taker", s.cfg.High, func(any) {
			if s.h.SemTake(0) == nil {
				taken = true
			}
		}, nil)
		_ = s.h.ThreadStart(1)
		pending, _ = s.h.ThreadState(1)
		_ = s.h.SemGive(0)
		countAfter, _ = s.h.SemCount(0)
	})

	s.Equal(bench.StatePending, pending)
	s.True(taken, "taker never returned from SemTake")
	s.Zero(countAfter)
}

func (s *Suite) TestMutualExclusion() {
	inside, worst := 0, 0
	var errs []error
	worker := func(any) {
		for i := 0; i < 5; i++ {
			if err := s.h.MutexLock(0); err != nil {
				errs = append(errs, err)
				return
			}
			inside++
			if inside > worst {
				worst = inside
			}
			_ = s.h.Yield()
			inside--
			_ = s.h.MutexUnlock(0)
			_ = s.h.Yield()
		}
		_ = s.h.SemGive(0)
	}

	s.run(func() {
		_ = s.h.MutexCreate(0)
		_ = s.h.SemCreate(0, 0, 2)
		_ = s.h.ThreadCreate(1, "a", s.cfg.Low, worker, nil)
		_ = s.h.ThreadCreate(2, "b", s.cfg.Low, worker, nil)
		_ = s.h.ThreadStart(1)
		_ = s.h.ThreadStart(2)
		_ = s.h.SemTake(0)
		_ = s.h.SemTake(0)
	})

	s.Empty(errs)
	s.Equal(1, worst, "threads inside critical section at once")
}

func (s *Suite) TestMutexOwnership() {
	var foreign error
	var owner bench.ThreadID
	var owned bool

	s.run(func() {
		_ = s.h.MutexCreate(0)
		_ = s.h.SemCreate(0, 0, 1)
		_ = s.h.ThreadCreate(1, "owner", s.cfg.High, func(any) {
			_ = s.h.MutexLock(0)
			_ = s.h.SemTake(0)
			_ = s.h.MutexUnlock(0)
		}, nil)
		_ = s.h.ThreadStart(1)
		foreign = s.h.MutexUnlock(0)
		owner, owned, _ = s.h.MutexOwner(0)
		_ = s.h.SemGive(0)
	})

	s.ErrorIs(foreign, bench.NotOwner)
	s.True(owned)
	s.Equal(bench.ThreadID(1), owner)
}

func (s *Suite) TestTimingMonotonic() {
	h := s.h
	s.Require().NoError(CheckMonotonic(h, 1000))

	prev := h.CounterGet()
	s.Zero(h.CyclesGet(prev, prev))
	s.Zero(h.CyclesToNs(0))

	last := h.CyclesToNs(0)
	for c := bench.Time(1); c < 1<<20; c <<= 1 {
		ns := h.CyclesToNs(c)
		s.GreaterOrEqual(uint64(ns), uint64(last), "CyclesToNs(%d)", c)
		last = ns
	}
}

// monotonicSlack absorbs wall clock granularity when comparing a counter
// delta with the elapsed wall time around it.
const monotonicSlack = 10 * time.Microsecond

// CheckMonotonic takes reads consecutive counter samples and reports an
// error if the counter moved backwards. Each delta goes through CyclesGet,
// so a counter narrower than 64 bits may wrap; a delta longer than the
// wall time bracketing the two reads means the counter went back.
func CheckMonotonic(t bench.Timing, reads int) error {
	if err := t.TimingInit(); err != nil {
		return err
	}
	t.TimingStart()
	defer t.TimingStop()

	prevWall := time.Now()
	prev := t.CounterGet()
	for i := 0; i < reads; i++ {
		wall := time.Now()
		now := t.CounterGet()
		elapsed := time.Since(prevWall)
		ns := t.CyclesToNs(t.CyclesGet(prev, now))
		if uint64(ns) > uint64(elapsed+monotonicSlack) {
			return fmt.Errorf("read %d: counter moved from %d to %d (%d ns) in %s", i, prev, now, ns, elapsed)
		}
		prev, prevWall = now, wall
	}
	return nil
}

func (s *Suite) TestConversionLinearity() {
	h := s.h
	s.Require().NoError(h.TimingInit())
	inputs := []bench.Time{0, 1, 7, 999, 123456, 1 << 24, 1<<31 + 17}
	for _, a := range inputs {
		for _, b := range inputs {
			sum := int64(h.CyclesToNs(a + b))
			parts := int64(h.CyclesToNs(a)) + int64(h.CyclesToNs(b))
			d := sum - parts
			s.True(d >= -1 && d <= 1, "CyclesToNs(%d+%d) off by %d", a, b, d)
		}
	}
}

func (s *Suite) TestOffloadRunsOnWorker() {
	runs := 0
	inISR := true
	var setupErr, submitErr error

	s.run(func() {
		_ = s.h.SemCreate(0, 0, 1)
		setupErr = s.h.OffloadSetup()
		_ = s.h.OffloadCreateWork(func(*bench.Work) {
			runs++
			inISR = s.h.InISR()
			_ = s.h.SemGive(0)
		})
		_ = s.h.IrqOffload(func(isr bench.ISR, _ any) {
			submitErr = isr.OffloadSubmitWork()
		}, nil)
		_ = s.h.SemTake(0)
	})

	s.Require().NoError(setupErr)
	s.NoError(submitErr)
	s.Equal(1, runs)
	s.False(inISR, "work ran in interrupt context")
}

func (s *Suite) TestIrqGiveVisibleOnReturn() {
	var inside bool
	var count int
	var takeErr error

	s.run(func() {
		_ = s.h.SemCreate(0, 0, 1)
		_ = s.h.IrqOffload(func(isr bench.ISR, _ any) {
			inside = s.h.InISR()
			_ = isr.SemGive(0)
			takeErr = s.h.SemTake(0)
		}, nil)
		count, _ = s.h.SemCount(0)
	})

	s.True(inside)
	s.ErrorIs(takeErr, bench.InvalidState)
	s.Equal(1, count)
}

func (s *Suite) TestAbortFreesHandle() {
	h := s.h
	s.Require().NoError(h.ThreadCreate(3, "a", s.cfg.Low, func(any) {}, nil))
	s.Require().NoError(h.ThreadAbort(3))

	st, err := h.ThreadState(3)
	s.NoError(err)
	s.Equal(bench.StateAborted, st)
	s.ErrorIs(h.ThreadStart(3), bench.InvalidState)
	s.ErrorIs(h.ThreadAbort(3), bench.InvalidHandle)
	s.NoError(h.ThreadCreate(3, "b", s.cfg.Low, func(any) {}, nil))
}

func (s *Suite) TestHandleErrors() {
	h := s.h
	entry := func(any) {}
	s.ErrorIs(h.ThreadStart(9), bench.InvalidHandle)
	s.ErrorIs(h.SemGive(9), bench.InvalidHandle)
	s.ErrorIs(h.MutexLock(9), bench.InvalidHandle)
	s.ErrorIs(h.ThreadCreate(-1, "x", s.cfg.Low, entry, nil), bench.InvalidHandle)
	s.ErrorIs(h.ThreadCreate(1, "x", s.cfg.Low, nil, nil), bench.InvalidArgument)
	s.ErrorIs(h.SemCreate(1, 2, 1), bench.InvalidArgument)

	s.Require().NoError(h.SemCreate(1, 0, 1))
	s.ErrorIs(h.SemCreate(1, 0, 1), bench.DuplicateHandle)
	s.Require().NoError(h.MutexCreate(1))
	s.ErrorIs(h.MutexCreate(1), bench.DuplicateHandle)
	s.Require().NoError(h.ThreadCreate(1, "x", s.cfg.Low, entry, nil))
	s.ErrorIs(h.ThreadCreate(1, "x", s.cfg.Low, entry, nil), bench.DuplicateHandle)
}

func (s *Suite) TestBoundaryStatus() {
	b := bench.Boundary{P: s.h}
	s.Equal(bench.Failure, b.ThreadStart(5))
	s.Equal(bench.Success, b.SemCreate(5, 0, 1))
	s.Equal(bench.Success, b.SemGive(5))
	s.Equal(bench.Failure, b.SemCreate(5, 0, 1))
	s.Equal(bench.Failure, b.OffloadSubmitWork())
}
