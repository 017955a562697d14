package vcpu

// CreateConfig carries architecture-specific configuration for backend
// construction. Its concrete type is defined by each backend.
type CreateConfig = any

// SetupConfig carries architecture-specific configuration for backend
// setup. Its concrete type is defined by each backend.
type SetupConfig = any

// ArchVCpu is the contract every per-architecture VCpu backend must
// satisfy. The architecture-independent VCpu handle drives implementations
// of this interface through the lifecycle state machine; backends never
// call these methods on themselves.
//
// A backend instance is exclusively owned by its VCpu handle and is only
// mutated while the handle performs a validated transition, so
// implementations do not need internal locking.
type ArchVCpu interface {
	// SetEntry sets the guest entry point where execution begins. It is
	// called at most once, before Setup.
	SetEntry(entry GuestPhysAddr) error

	// SetEPTRoot sets the root of the second-level (guest-physical to
	// host-physical) page table. It is called before Setup.
	SetEPTRoot(root HostPhysAddr) error

	// Setup completes architecture-specific initialization. It is called
	// after SetEntry and SetEPTRoot.
	Setup(cfg SetupConfig) error

	// Bind prepares the backend for execution on the calling logical
	// processor. It is called before the first Run there.
	Bind() error

	// Unbind saves any processor-resident state so that a different
	// logical processor may bind afterwards.
	Unbind() error

	// Run transfers control to the guest and blocks the calling logical
	// processor until a trap occurs. It returns exactly one ExitReason,
	// or an error.
	Run() (ExitReason, error)

	// SetGPR sets a general-purpose register by index. Out-of-range
	// indices must be handled defensively; no failure is signaled.
	SetGPR(reg int, val uint64)

	// InjectInterrupt queues an interrupt for the guest. The VCpu is not
	// necessarily running or bound when this is called; backends must
	// buffer the vector for delivery on the next Run if it cannot be
	// delivered immediately.
	InjectInterrupt(vector uint64) error

	// SetReturnValue sets the value the guest observes after a serviced
	// trap or hypercall.
	SetReturnValue(val uint64)
}

// NewArchFn constructs the architecture-specific backend for a VCpu. Each
// backend package provides one, and the hypervisor passes it to New.
type NewArchFn[A ArchVCpu] func(vm VMID, id VCpuID, cfg CreateConfig) (A, error)
