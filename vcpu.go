package vcpu

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the lifecycle state of a VCpu.
//
// The VCpu follows a strict state machine:
//
//	Created -[Setup]-> Free -[Bind]-> Ready -[Run]-> Running -[guest exit]-> Ready -[Unbind]-> Free
//
// Any operation failure forces StateInvalid; no transition leaves it.
type State int32

const (
	// StateInvalid marks a VCpu on which an operation failed. Dead end.
	StateInvalid State = iota
	// StateCreated is the initial state after construction.
	StateCreated
	// StateFree means the VCpu is set up and may be bound to a logical
	// processor.
	StateFree
	// StateReady means the VCpu is bound and may run.
	StateReady
	// StateRunning means the VCpu is executing guest code.
	StateRunning
	// StateBlocked is reserved for future I/O-wait support. No defined
	// transition produces it.
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "Invalid"
	case StateCreated:
		return "Created"
	case StateFree:
		return "Free"
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateBlocked:
		return "Blocked"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config holds the immutable identity of a VCpu.
type Config struct {
	// VM identifies the VM this VCpu belongs to.
	VM VMID
	// ID identifies this VCpu within its VM.
	ID VCpuID
	// FavorProcessor is the logical processor that should preferentially
	// run this VCpu.
	FavorProcessor int
	// ProcessorSet is a bitmask of logical processors eligible to run
	// this VCpu. Zero means unrestricted.
	ProcessorSet uint64
}

// VCpu is an architecture-independent virtual CPU. It composes an
// immutable identity, a lifecycle state cell and an embedded backend of
// type A, and drives the backend through the lifecycle state machine.
//
// The state cell is readable from any goroutine without locking; all
// transitions commit atomically, so no observer ever sees a state mutated
// partway. The handle serializes its own transitions, but the hypervisor
// must prevent two logical processors from driving the same handle
// concurrently (see the package documentation).
type VCpu[A ArchVCpu] struct {
	cfg Config

	// mu is the exclusive-access window of the state machine: the state
	// check, the backend operation and the commit all happen under it.
	mu    sync.Mutex
	state atomic.Int32

	// arch is exclusively owned by this handle and mutated only while a
	// validated transition is in progress.
	arch A
}

// New constructs a VCpu with the given identity, invoking newArch to
// construct the embedded backend. The VCpu starts in StateCreated.
func New[A ArchVCpu](cfg Config, newArch NewArchFn[A], archCfg CreateConfig) (*VCpu[A], error) {
	if newArch == nil {
		return nil, fmt.Errorf("%w: nil backend constructor", ErrInvalidArgument)
	}
	arch, err := newArch(cfg.VM, cfg.ID, archCfg)
	if err != nil {
		recordBackendFailure()
		return nil, opError("construct", err)
	}
	v := &VCpu[A]{cfg: cfg, arch: arch}
	v.state.Store(int32(StateCreated))
	recordCreate()
	return v, nil
}

// ID returns the identifier of this VCpu within its VM.
func (v *VCpu[A]) ID() VCpuID { return v.cfg.ID }

// VM returns the identifier of the VM this VCpu belongs to.
func (v *VCpu[A]) VM() VMID { return v.cfg.VM }

// FavorProcessor returns the logical processor that should preferentially
// run this VCpu.
func (v *VCpu[A]) FavorProcessor() int { return v.cfg.FavorProcessor }

// ProcessorSet returns the bitmask of logical processors eligible to run
// this VCpu. Zero means unrestricted.
func (v *VCpu[A]) ProcessorSet() uint64 { return v.cfg.ProcessorSet }

// IsBSP reports whether this VCpu is the bootstrap processor. By
// convention the VCpu with id 0 boots the VM.
func (v *VCpu[A]) IsBSP() bool { return v.cfg.ID == 0 }

// State returns the current lifecycle state. It never blocks, even while
// the VCpu is running guest code.
func (v *VCpu[A]) State() State { return State(v.state.Load()) }

// Arch returns the embedded backend. Intended for backend and trap-path
// code; mutating the backend outside a validated transition is the
// caller's responsibility.
func (v *VCpu[A]) Arch() A { return v.arch }

// SetStateUnchecked sets the lifecycle state without validation,
// bypassing the state machine entirely. It is reserved for trusted
// restoration code and must never be the default mutation path.
func (v *VCpu[A]) SetStateUnchecked(s State) {
	v.state.Store(int32(s))
}

// TransitionState commits the transition from one state to another with no
// backend operation. Fails, forcing StateInvalid, if the current state is
// not from.
func (v *VCpu[A]) TransitionState(from, to State) error {
	return v.withStateTransition("transition", from, to, nil)
}

// Setup prepares the VCpu for execution: entry point, second-level page
// table root, then architecture-specific setup, in that order. Transitions
// Created to Free.
func (v *VCpu[A]) Setup(entry GuestPhysAddr, eptRoot HostPhysAddr, cfg SetupConfig) error {
	err := v.manipulateArch("setup", StateCreated, StateFree, func(arch A) error {
		if err := arch.SetEntry(entry); err != nil {
			return err
		}
		if err := arch.SetEPTRoot(eptRoot); err != nil {
			return err
		}
		return arch.Setup(cfg)
	})
	if err == nil {
		recordSetup()
	}
	return err
}

// Bind binds the VCpu to the calling logical processor. Transitions Free
// to Ready.
func (v *VCpu[A]) Bind() error {
	err := v.manipulateArch("bind", StateFree, StateReady, func(arch A) error {
		return arch.Bind()
	})
	if err == nil {
		recordBind()
	}
	return err
}

// Unbind unbinds the VCpu from the calling logical processor so that a
// different one may bind it. Transitions Ready to Free.
func (v *VCpu[A]) Unbind() error {
	err := v.manipulateArch("unbind", StateReady, StateFree, func(arch A) error {
		return arch.Unbind()
	})
	if err == nil {
		recordUnbind()
	}
	return err
}

// Run transfers control to the guest and blocks the calling logical
// processor until a trap occurs. Requires StateReady; the state is
// StateRunning for the duration of guest execution and StateReady again
// when Run returns successfully, together with exactly one ExitReason.
func (v *VCpu[A]) Run() (ExitReason, error) {
	if err := v.withStateTransition("run", StateReady, StateRunning, nil); err != nil {
		return nil, err
	}
	var exit ExitReason
	start := time.Now()
	err := v.manipulateArch("run", StateRunning, StateReady, func(arch A) error {
		var err error
		exit, err = arch.Run()
		return err
	})
	if err != nil {
		return nil, err
	}
	recordRun(time.Since(start))
	return exit, nil
}

// SetEntry passes through to the backend's entry setter. The backend
// contract allows it at most once, before Setup.
func (v *VCpu[A]) SetEntry(entry GuestPhysAddr) error {
	return v.arch.SetEntry(entry)
}

// SetGPR sets a general-purpose register of the guest by index.
func (v *VCpu[A]) SetGPR(reg int, val uint64) {
	v.arch.SetGPR(reg, val)
}

// InjectInterrupt queues an interrupt for delivery to the guest. It may be
// called in any lifecycle state once the VCpu is constructed; the backend
// buffers the vector until the next Run if it cannot deliver immediately.
// This decouples injectability from the liveness of Run.
func (v *VCpu[A]) InjectInterrupt(vector uint64) error {
	if err := v.arch.InjectInterrupt(vector); err != nil {
		return err
	}
	recordInject()
	return nil
}

// SetReturnValue sets the value the guest observes after a serviced trap
// or hypercall.
func (v *VCpu[A]) SetReturnValue(val uint64) {
	v.arch.SetReturnValue(val)
}

// withStateTransition is the validated-transition procedure. Under the
// exclusive-access window: if the current state is not from, force
// StateInvalid and report a precondition violation; otherwise execute op
// (if any), force StateInvalid and forward the failure if it fails, or
// commit to and return its result if it succeeds.
func (v *VCpu[A]) withStateTransition(op string, from, to State, f func() error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	cur := State(v.state.Load())
	// No edge leaves StateInvalid, not even a validated transition that
	// names it as the source.
	if cur == StateInvalid || cur != from {
		v.state.Store(int32(StateInvalid))
		recordBadState()
		logger.WithFields(logrus.Fields{
			"vm": v.cfg.VM, "vcpu": v.cfg.ID, "op": op,
			"want": from.String(), "got": cur.String(),
		}).Warn("vcpu: precondition violated, state forced to Invalid")
		return &BadStateError{Op: op, Want: from, Got: cur}
	}
	if f != nil {
		if err := f(); err != nil {
			v.state.Store(int32(StateInvalid))
			recordBackendFailure()
			logger.WithFields(logrus.Fields{
				"vm": v.cfg.VM, "vcpu": v.cfg.ID, "op": op,
			}).WithError(err).Warn("vcpu: backend failure, state forced to Invalid")
			return opError(op, err)
		}
	}
	v.state.Store(int32(to))
	return nil
}

// manipulateArch runs a backend operation under a validated transition
// with the per-processor slot occupied by this VCpu, so that backend code
// reached from the operation can recover its owning handle through
// CurrentVCpu.
//
// The slot is occupied before the state mutex is acquired: a nested
// operation on an occupied processor must fault, not park on the mutex,
// even when it targets the same handle.
func (v *VCpu[A]) manipulateArch(op string, from, to State, f func(arch A) error) error {
	processor := CurrentHal().CurrentProcessor()
	setCurrentVCpu(processor, v)
	defer clearCurrentVCpu(processor)
	return v.withStateTransition(op, from, to, func() error {
		return f(v.arch)
	})
}
