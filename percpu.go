package vcpu

import (
	"fmt"
	"sync"
)

// The per-processor execution context: one slot per logical processor,
// holding a non-owning reference to the VCpu whose setup, bind, run or
// unbind call is in progress there. The slot is occupied on entry to such
// a call and cleared unconditionally on exit, success or failure.
//
// The discipline is single-owner and non-reentrant: entering a sequence
// while the slot is occupied is a programming error in the hypervisor and
// panics. This is what lets backend code reached from deep trap handling
// recover its owning handle without threading it through every call.
var (
	percpuMu     sync.Mutex
	currentVCpus = make(map[int]any)
)

// setCurrentVCpu occupies the slot of the given logical processor. Panics
// if the slot is already occupied.
func setCurrentVCpu(processor int, v any) {
	percpuMu.Lock()
	defer percpuMu.Unlock()
	if _, ok := currentVCpus[processor]; ok {
		logger.WithField("processor", processor).Error("vcpu: nested vcpu operation")
		panic(fmt.Sprintf("vcpu: nested vcpu operation on processor %d", processor))
	}
	currentVCpus[processor] = v
}

// clearCurrentVCpu releases the slot of the given logical processor.
func clearCurrentVCpu(processor int) {
	percpuMu.Lock()
	defer percpuMu.Unlock()
	delete(currentVCpus, processor)
}

// CurrentVCpu returns the VCpu whose operation is in progress on the
// calling logical processor, or nil if there is none or its backend is not
// of type A.
//
// Before any ArchVCpu method is invoked, the handle registers itself here,
// so backend code can always retrieve the handle containing itself.
func CurrentVCpu[A ArchVCpu]() *VCpu[A] {
	processor := CurrentHal().CurrentProcessor()
	percpuMu.Lock()
	defer percpuMu.Unlock()
	v, _ := currentVCpus[processor].(*VCpu[A])
	return v
}
