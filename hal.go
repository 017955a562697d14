package vcpu

import "sync"

// Hal is the interface the hosting hypervisor or kernel implements to
// support VCpu operations. The lifecycle core uses it to identify the
// calling logical processor; backends use it to fetch and forward host
// interrupts into InjectInterrupt.
type Hal interface {
	// CurrentProcessor returns the id of the calling logical processor.
	// Callers performing VCpu operations are expected to have pinned
	// their goroutine with runtime.LockOSThread and their thread to a
	// processor, so that the id is stable across a bind/run/unbind
	// sequence.
	CurrentProcessor() int

	// FetchIRQ returns the pending host interrupt vector, if any.
	FetchIRQ() uint64

	// DispatchIRQ forwards an interrupt request to the host OS handler.
	DispatchIRQ(vector uint64)
}

var (
	halMu     sync.RWMutex
	activeHal Hal = defaultHal{}
)

// SetHal installs the process-wide Hal. Passing nil restores the default
// implementation.
func SetHal(h Hal) {
	halMu.Lock()
	defer halMu.Unlock()
	if h == nil {
		h = defaultHal{}
	}
	activeHal = h
}

// CurrentHal returns the installed Hal.
func CurrentHal() Hal {
	halMu.RLock()
	defer halMu.RUnlock()
	return activeHal
}

// defaultHal identifies the logical processor via the host scheduler and
// has no interrupt plumbing.
type defaultHal struct{}

func (defaultHal) CurrentProcessor() int     { return hostProcessorID() }
func (defaultHal) FetchIRQ() uint64          { return 0 }
func (defaultHal) DispatchIRQ(vector uint64) {}
