// Package vcpu is the architecture-independent virtual-CPU lifecycle core
// of a hypervisor. It drives per-architecture virtualization backends
// through a uniform contract: a strict lifecycle state machine with atomic
// commit, the ArchVCpu capability interface every backend must satisfy,
// the taxonomy of reasons control returns from guest execution, and a
// single-owner, non-reentrant execution context per logical processor.
//
// # Lifecycle
//
// A VCpu moves through the states
//
//	Created -> Free -> Ready -> Running -> Ready -> Free
//
// via Setup, Bind, Run and Unbind. Every operation validates its
// precondition state; any failure, precondition or backend, forces the
// VCpu to StateInvalid, from which no operation recovers. Discard the
// handle and construct a fresh one.
//
// # Basic Usage
//
// Construct a VCpu over an architecture backend and run it:
//
//	cpu, err := vcpu.New(vcpu.Config{VM: 1, ID: 0}, myarch.NewVCpu, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cpu.Setup(entry, eptRoot, nil); err != nil {
//		log.Fatal(err)
//	}
//	if err := cpu.Bind(); err != nil {
//		log.Fatal(err)
//	}
//	for {
//		exit, err := cpu.Run()
//		if err != nil {
//			log.Fatal(err)
//		}
//		switch e := exit.(type) {
//		case vcpu.ExitHalt:
//			return
//		case vcpu.ExitMMIORead:
//			cpu.SetGPR(e.Reg, devices.Read(e.Addr, e.Width))
//		case vcpu.ExitNothing:
//			// Backend handled the trap; check pending work and loop.
//		default:
//			// The taxonomy is growable; always keep a default arm.
//			log.Printf("unhandled exit: %s", exit)
//		}
//	}
//
// # Concurrency
//
// The core has no scheduler. One logical processor runs at most one VCpu's
// Run invocation at a time; Run blocks its caller for the full duration of
// guest execution while Setup, Bind and Unbind are fast. State is safe
// from any goroutine and never blocks. The handle serializes its own
// transitions, but the hypervisor must keep two logical processors from
// invoking operations on the same handle concurrently.
//
// Callers are expected to pin the driving goroutine with
// runtime.LockOSThread, and the thread to a processor, so that the logical
// processor identity reported by the Hal is stable across a
// bind/run/unbind sequence. Backend code reached from deep trap handling
// can recover its owning handle with CurrentVCpu. Entering a second
// lifecycle operation on a processor whose slot is occupied is a fatal
// programming error and panics.
//
// There is no cancellation of a running VCpu from this layer: deliver an
// interrupt via InjectInterrupt and let the backend surface it as a trap.
//
// # Error Handling
//
// Precondition violations are reported as *BadStateError carrying the
// expected and actual state. Backend failures are forwarded wrapped and
// reachable with errors.Is and errors.As; they are never swallowed. No
// retry happens at this layer.
package vcpu
