package vcpu

import (
	"sync/atomic"
	"time"
)

// Performance metrics for monitoring VCpu lifecycle operations
var (
	// Operation counters
	vcpuCreateCount uint64
	setupCount      uint64
	bindCount       uint64
	unbindCount     uint64
	runOperations   uint64
	injectOps       uint64

	// Timing metrics (nanoseconds)
	totalRunTime uint64

	// Error counters
	badStateCount   uint64
	backendFailures uint64
)

// Metrics provides access to performance metrics
type Metrics struct {
	VCpuCreated     uint64 `json:"vcpu_created"`
	SetupOps        uint64 `json:"setup_operations"`
	BindOps         uint64 `json:"bind_operations"`
	UnbindOps       uint64 `json:"unbind_operations"`
	RunOps          uint64 `json:"run_operations"`
	InjectOps       uint64 `json:"inject_operations"`
	AvgRunTimeNs    uint64 `json:"avg_run_time_ns"`
	BadStateErrors  uint64 `json:"bad_state_errors"`
	BackendFailures uint64 `json:"backend_failures"`
}

// GetMetrics returns current performance metrics
func GetMetrics() Metrics {
	runOps := atomic.LoadUint64(&runOperations)

	var avgRun uint64
	if runOps > 0 {
		avgRun = atomic.LoadUint64(&totalRunTime) / runOps
	}

	return Metrics{
		VCpuCreated:     atomic.LoadUint64(&vcpuCreateCount),
		SetupOps:        atomic.LoadUint64(&setupCount),
		BindOps:         atomic.LoadUint64(&bindCount),
		UnbindOps:       atomic.LoadUint64(&unbindCount),
		RunOps:          runOps,
		InjectOps:       atomic.LoadUint64(&injectOps),
		AvgRunTimeNs:    avgRun,
		BadStateErrors:  atomic.LoadUint64(&badStateCount),
		BackendFailures: atomic.LoadUint64(&backendFailures),
	}
}

// ResetMetrics clears all performance metrics
func ResetMetrics() {
	atomic.StoreUint64(&vcpuCreateCount, 0)
	atomic.StoreUint64(&setupCount, 0)
	atomic.StoreUint64(&bindCount, 0)
	atomic.StoreUint64(&unbindCount, 0)
	atomic.StoreUint64(&runOperations, 0)
	atomic.StoreUint64(&injectOps, 0)
	atomic.StoreUint64(&totalRunTime, 0)
	atomic.StoreUint64(&badStateCount, 0)
	atomic.StoreUint64(&backendFailures, 0)
}

// Internal metric recording functions
func recordCreate() {
	atomic.AddUint64(&vcpuCreateCount, 1)
}

func recordSetup() {
	atomic.AddUint64(&setupCount, 1)
}

func recordBind() {
	atomic.AddUint64(&bindCount, 1)
}

func recordUnbind() {
	atomic.AddUint64(&unbindCount, 1)
}

func recordRun(duration time.Duration) {
	atomic.AddUint64(&runOperations, 1)
	atomic.AddUint64(&totalRunTime, uint64(duration.Nanoseconds()))
}

func recordInject() {
	atomic.AddUint64(&injectOps, 1)
}

func recordBadState() {
	atomic.AddUint64(&badStateCount, 1)
}

func recordBackendFailure() {
	atomic.AddUint64(&backendFailures, 1)
}
