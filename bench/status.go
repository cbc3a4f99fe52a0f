package bench

// Status is the two-valued outcome seen across the contract boundary.
type Status uint8

const (
	Success Status = 0
	Failure Status = 1
)

func (s Status) String() string {
	if s == Success {
		return "success"
	}
	return "error"
}

// StatusOf collapses err into a Status.
func StatusOf(err error) Status {
	if err != nil {
		return Failure
	}
	return Success
}

// Boundary exposes a Port with undifferentiated Status results, the way a
// benchmark driver sees it.
type Boundary struct {
	P Port
}

func (b Boundary) TestInit(init Entry) Status { return StatusOf(b.P.TestInit(init)) }

func (b Boundary) ThreadSetPriority(prio Priority) Status {
	return StatusOf(b.P.ThreadSetPriority(prio))
}

func (b Boundary) ThreadCreate(id ThreadID, name string, prio Priority, entry Entry, arg any) Status {
	return StatusOf(b.P.ThreadCreate(id, name, prio, entry, arg))
}

func (b Boundary) ThreadStart(id ThreadID) Status   { return StatusOf(b.P.ThreadStart(id)) }
func (b Boundary) ThreadResume(id ThreadID) Status  { return StatusOf(b.P.ThreadResume(id)) }
func (b Boundary) ThreadSuspend(id ThreadID) Status { return StatusOf(b.P.ThreadSuspend(id)) }
func (b Boundary) ThreadAbort(id ThreadID) Status   { return StatusOf(b.P.ThreadAbort(id)) }
func (b Boundary) Yield() Status                    { return StatusOf(b.P.Yield()) }

func (b Boundary) OffloadSetup() Status { return StatusOf(b.P.OffloadSetup()) }

func (b Boundary) OffloadCreateWork(fn WorkerFunc) Status {
	return StatusOf(b.P.OffloadCreateWork(fn))
}

func (b Boundary) OffloadSubmitWork() Status { return StatusOf(b.P.OffloadSubmitWork()) }

func (b Boundary) TimingInit() Status { return StatusOf(b.P.TimingInit()) }
func (b Boundary) SyncTicks() Status  { return StatusOf(b.P.SyncTicks()) }
func (b Boundary) TimingStart()       { b.P.TimingStart() }
func (b Boundary) TimingStop()        { b.P.TimingStop() }
func (b Boundary) CounterGet() Time   { return b.P.CounterGet() }

func (b Boundary) CyclesGet(start, end *Time) Time { return b.P.CyclesGet(*start, *end) }
func (b Boundary) CyclesToNs(cycles Time) Time     { return b.P.CyclesToNs(cycles) }

func (b Boundary) SemCreate(id SemID, initial, max int) Status {
	return StatusOf(b.P.SemCreate(id, initial, max))
}

func (b Boundary) SemGive(id SemID) Status { return StatusOf(b.P.SemGive(id)) }
func (b Boundary) SemTake(id SemID) Status { return StatusOf(b.P.SemTake(id)) }

func (b Boundary) MutexCreate(id MutexID) Status { return StatusOf(b.P.MutexCreate(id)) }
func (b Boundary) MutexLock(id MutexID) Status   { return StatusOf(b.P.MutexLock(id)) }
func (b Boundary) MutexUnlock(id MutexID) Status { return StatusOf(b.P.MutexUnlock(id)) }

func (b Boundary) IrqOffload(fn IRQFunc, arg any) Status {
	return StatusOf(b.P.IrqOffload(fn, arg))
}
