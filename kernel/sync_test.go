package kernel

import (
	"reflect"
	"testing"

	"rtbench/bench"
)

func TestSemGiveSaturates(t *testing.T) {
	k := newTestKernel(t)
	var counts []int
	var takeErr error
	mustRun(t, k, func() {
		_ = k.SemCreate(0, 0, 1)
		_ = k.SemGive(0)
		_ = k.SemGive(0)
		c, _ := k.SemCount(0)
		counts = append(counts, c)
		takeErr = k.SemTake(0)
		c, _ = k.SemCount(0)
		counts = append(counts, c)
	})
	if takeErr != nil {
		t.Fatalf("SemTake() err = %v", takeErr)
	}
	if !reflect.DeepEqual(counts, []int{1, 0}) {
		t.Fatalf("counts = %v, want [1 0]", counts)
	}
}

func TestSemCreateErrors(t *testing.T) {
	k := newTestKernel(t)
	tests := []struct {
		name         string
		id           bench.SemID
		initial, max int
		want         bench.Kind
	}{
		{name: "negative handle", id: -1, initial: 0, max: 1, want: bench.InvalidHandle},
		{name: "handle out of range", id: MaxHandles, initial: 0, max: 1, want: bench.InvalidHandle},
		{name: "zero max", id: 1, initial: 0, max: 0, want: bench.InvalidArgument},
		{name: "negative initial", id: 1, initial: -1, max: 1, want: bench.InvalidArgument},
		{name: "initial above max", id: 1, initial: 3, max: 2, want: bench.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantKind(t, "SemCreate()", k.SemCreate(tt.id, tt.initial, tt.max), tt.want)
		})
	}

	if err := k.SemCreate(1, 2, 2); err != nil {
		t.Fatalf("SemCreate(1) err = %v", err)
	}
	wantKind(t, "SemCreate(dup)", k.SemCreate(1, 0, 1), bench.DuplicateHandle)
	wantKind(t, "SemGive(unknown)", k.SemGive(2), bench.InvalidHandle)
	if _, err := k.SemCount(2); err == nil {
		t.Fatal("SemCount(unknown) err = nil")
	}
}

func TestSemWakesMostUrgentFirst(t *testing.T) {
	k := newTestKernel(t)
	var log []string
	taker := func(name string) bench.Entry {
		return func(any) {
			_ = k.SemTake(0)
			log = append(log, name)
		}
	}
	mustRun(t, k, func() {
		_ = k.SemCreate(0, 0, 3)
		_ = k.ThreadCreate(1, "a", 7, taker("a"), nil)
		_ = k.ThreadCreate(2, "b", 7, taker("b"), nil)
		_ = k.ThreadCreate(3, "c", 3, taker("c"), nil)
		for id := bench.ThreadID(1); id <= 3; id++ {
			_ = k.ThreadStart(id)
		}
		for i := 0; i < 3; i++ {
			_ = k.SemGive(0)
		}
	})
	want := []string{"c", "a", "b"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("wake order = %v, want %v", log, want)
	}
}

func TestSemTakeOutsideThread(t *testing.T) {
	k := newTestKernel(t)
	_ = k.SemCreate(0, 1, 1)
	wantKind(t, "SemTake()", k.SemTake(0), bench.InvalidState)
	if c, _ := k.SemCount(0); c != 1 {
		t.Fatalf("SemCount() = %d, want 1", c)
	}
}

func TestMutexRecursion(t *testing.T) {
	k := newTestKernel(t)
	type owner struct {
		id bench.ThreadID
		ok bool
	}
	var owners []owner
	var extra error
	record := func() {
		id, ok, _ := k.MutexOwner(0)
		owners = append(owners, owner{id, ok})
	}
	mustRun(t, k, func() {
		_ = k.MutexCreate(0)
		_ = k.ThreadCreate(1, "a", 5, func(any) {
			_ = k.MutexLock(0)
			_ = k.MutexLock(0)
			_ = k.MutexUnlock(0)
			record()
			_ = k.MutexUnlock(0)
			record()
			extra = k.MutexUnlock(0)
		}, nil)
		_ = k.ThreadStart(1)
	})

	want := []owner{{1, true}, {0, false}}
	if !reflect.DeepEqual(owners, want) {
		t.Fatalf("owners = %v, want %v", owners, want)
	}
	wantKind(t, "extra MutexUnlock()", extra, bench.NotOwner)
}

func TestMutexUnlockByNonOwner(t *testing.T) {
	k := newTestKernel(t)
	var err error
	var id bench.ThreadID
	var ok bool
	mustRun(t, k, func() {
		_ = k.MutexCreate(0)
		_ = k.SemCreate(0, 0, 1)
		_ = k.ThreadCreate(1, "owner", 5, func(any) {
			_ = k.MutexLock(0)
			_ = k.SemTake(0)
			_ = k.MutexUnlock(0)
		}, nil)
		_ = k.ThreadStart(1)
		err = k.MutexUnlock(0)
		id, ok, _ = k.MutexOwner(0)
		_ = k.SemGive(0)
	})
	wantKind(t, "MutexUnlock(not owner)", err, bench.NotOwner)
	if !ok || id != 1 {
		t.Fatalf("MutexOwner() = %d, %t, want 1, true", id, ok)
	}
}

func TestMutexErrors(t *testing.T) {
	k := newTestKernel(t)
	wantKind(t, "MutexCreate(-1)", k.MutexCreate(-1), bench.InvalidHandle)
	wantKind(t, "MutexLock(unknown)", k.MutexLock(3), bench.InvalidHandle)
	if err := k.MutexCreate(3); err != nil {
		t.Fatalf("MutexCreate(3) err = %v", err)
	}
	wantKind(t, "MutexCreate(dup)", k.MutexCreate(3), bench.DuplicateHandle)
	wantKind(t, "MutexLock() outside thread", k.MutexLock(3), bench.InvalidState)
}

func TestMutexPriorityInheritance(t *testing.T) {
	k := newTestKernel(t)
	var log []string
	var inherited, restored bench.Priority

	mustRun(t, k, func() {
		_ = k.MutexCreate(0)
		_ = k.SemCreate(0, 0, 1)
		_ = k.ThreadCreate(1, "low", 20, func(any) {
			_ = k.MutexLock(0)
			_ = k.SemGive(0)
			inherited, _ = k.Priority(1)
			_ = k.MutexUnlock(0)
			log = append(log, "low")
		}, nil)
		_ = k.ThreadCreate(2, "high", 5, func(any) {
			_ = k.MutexLock(0)
			log = append(log, "high")
			_ = k.MutexUnlock(0)
		}, nil)

		_ = k.ThreadStart(1)
		_ = k.SemTake(0)
		_ = k.ThreadStart(2)
		restored, _ = k.Priority(1)
		log = append(log, "main")
	})

	if inherited != 5 {
		t.Fatalf("owner priority while contended = %d, want 5", inherited)
	}
	if restored != 20 {
		t.Fatalf("owner priority after unlock = %d, want 20", restored)
	}
	want := []string{"high", "main", "low"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("order = %v, want %v", log, want)
	}
}

func TestMutexTransitiveInheritance(t *testing.T) {
	k := newTestKernel(t)
	var lowPrio bench.Priority
	mustRun(t, k, func() {
		_ = k.MutexCreate(0)
		_ = k.MutexCreate(1)
		_ = k.SemCreate(0, 0, 1)
		// low holds m0 and waits on the semaphore; mid holds m1 and waits
		// for m0; high waits for m1.
		_ = k.ThreadCreate(1, "low", 20, func(any) {
			_ = k.MutexLock(0)
			_ = k.SemTake(0)
			_ = k.MutexUnlock(0)
		}, nil)
		_ = k.ThreadCreate(2, "mid", 8, func(any) {
			_ = k.MutexLock(1)
			_ = k.MutexLock(0)
			_ = k.MutexUnlock(0)
			_ = k.MutexUnlock(1)
		}, nil)
		_ = k.ThreadCreate(3, "high", 2, func(any) {
			_ = k.MutexLock(1)
			_ = k.MutexUnlock(1)
		}, nil)

		_ = k.ThreadSetPriority(25)
		_ = k.ThreadStart(1)
		_ = k.ThreadStart(2)
		_ = k.ThreadStart(3)
		lowPrio, _ = k.Priority(1)
		_ = k.SemGive(0)
	})
	if lowPrio != 2 {
		t.Fatalf("low priority = %d, want 2", lowPrio)
	}
}

func TestAbortOwnerPassesMutex(t *testing.T) {
	k := newTestKernel(t)
	var id bench.ThreadID
	var ok bool
	mustRun(t, k, func() {
		_ = k.MutexCreate(0)
		_ = k.SemCreate(0, 0, 1)
		_ = k.ThreadCreate(1, "owner", 5, func(any) {
			_ = k.MutexLock(0)
			_ = k.SemTake(0)
		}, nil)
		_ = k.ThreadCreate(2, "waiter", 6, func(any) {
			_ = k.MutexLock(0)
			id, ok, _ = k.MutexOwner(0)
			_ = k.MutexUnlock(0)
		}, nil)
		_ = k.ThreadStart(1)
		_ = k.ThreadStart(2)
		_ = k.ThreadAbort(1)
	})
	if !ok || id != 2 {
		t.Fatalf("MutexOwner() after abort = %d, %t, want 2, true", id, ok)
	}
}
