package vcpu

import "fmt"

// VMID identifies a virtual machine.
type VMID uint64

// VCpuID identifies a virtual CPU within its VM.
type VCpuID uint64

// GuestPhysAddr is a guest physical address.
type GuestPhysAddr uint64

// HostPhysAddr is a host physical address.
type HostPhysAddr uint64

// Port is the port number of a port-I/O operation.
type Port uint16

// SysRegAddr identifies a system register.
type SysRegAddr uint64

// AccessWidth is the width of a memory, I/O or register access.
//
// Note that the term "word" here refers to 16-bit data, as in the x86
// architecture.
type AccessWidth int

const (
	// WidthByte is an 8-bit access.
	WidthByte AccessWidth = iota
	// WidthWord is a 16-bit access.
	WidthWord
	// WidthDword is a 32-bit access.
	WidthDword
	// WidthQword is a 64-bit access.
	WidthQword
)

// AccessWidthFromBytes converts an access size in bytes to an AccessWidth.
func AccessWidthFromBytes(n int) (AccessWidth, error) {
	switch n {
	case 1:
		return WidthByte, nil
	case 2:
		return WidthWord, nil
	case 4:
		return WidthDword, nil
	case 8:
		return WidthQword, nil
	default:
		return 0, fmt.Errorf("%w: access width %d bytes", ErrInvalidArgument, n)
	}
}

// Bytes returns the access size in bytes.
func (w AccessWidth) Bytes() int {
	switch w {
	case WidthByte:
		return 1
	case WidthWord:
		return 2
	case WidthDword:
		return 4
	case WidthQword:
		return 8
	default:
		return 0
	}
}

func (w AccessWidth) String() string {
	switch w {
	case WidthByte:
		return "byte"
	case WidthWord:
		return "word"
	case WidthDword:
		return "dword"
	case WidthQword:
		return "qword"
	default:
		return fmt.Sprintf("AccessWidth(%d)", int(w))
	}
}

// AccessPerm represents the access rights of a guest memory access.
type AccessPerm uint

const (
	AccessRead  AccessPerm = 1 << 0
	AccessWrite AccessPerm = 1 << 1
	AccessExec  AccessPerm = 1 << 2
)

func (p AccessPerm) String() string {
	buf := [3]byte{'-', '-', '-'}
	if p&AccessRead != 0 {
		buf[0] = 'r'
	}
	if p&AccessWrite != 0 {
		buf[1] = 'w'
	}
	if p&AccessExec != 0 {
		buf[2] = 'x'
	}
	return string(buf[:])
}

// ExitReason is the reason control returned from guest execution to the
// hypervisor, produced exactly once per successful Run.
//
// The set of variants is growable: consumers must type-switch with a
// default arm so that future variants are handled gracefully.
type ExitReason interface {
	fmt.Stringer

	// isExitReason restricts implementations to this package.
	isExitReason()
}

// ExitHalt reports that the guest idled (e.g. executed a halt instruction).
type ExitHalt struct{}

// ExitMMIORead reports a memory-mapped I/O read performed by the guest.
type ExitMMIORead struct {
	// Addr is the guest physical address of the read.
	Addr GuestPhysAddr
	// Width is the width of the read.
	Width AccessWidth
	// Reg is the index of the destination general-purpose register.
	Reg int
	// RegWidth is the width of the destination register.
	RegWidth AccessWidth
	// SignExt reports whether the read result must be sign-extended.
	SignExt bool
}

// ExitMMIOWrite reports a memory-mapped I/O write performed by the guest.
type ExitMMIOWrite struct {
	Addr  GuestPhysAddr
	Width AccessWidth
	Data  uint64
}

// ExitIORead reports a port-I/O read. Only meaningful on architectures with
// a separate I/O address space; the destination is always the accumulator.
type ExitIORead struct {
	Port  Port
	Width AccessWidth
}

// ExitIOWrite reports a port-I/O write.
type ExitIOWrite struct {
	Port  Port
	Width AccessWidth
	Data  uint64
}

// ExitSysRegRead reports a read of a system register (MSR on x86).
type ExitSysRegRead struct {
	// Addr identifies the system register.
	Addr SysRegAddr
	// Reg is the index of the destination general-purpose register.
	Reg int
}

// ExitSysRegWrite reports a write of a system register.
type ExitSysRegWrite struct {
	Addr  SysRegAddr
	Value uint64
}

// ExitExternalInterrupt reports that an external interrupt arrived while
// the guest was running.
type ExitExternalInterrupt struct {
	Vector uint64
}

// ExitNestedPageFault reports that second-level address translation
// rejected a guest access (EPT violation on x86).
type ExitNestedPageFault struct {
	Addr   GuestPhysAddr
	Access AccessPerm
}

// ExitHypercall reports a hypercall issued by the guest.
type ExitHypercall struct {
	// Nr is the hypercall number.
	Nr uint64
	// Args are the hypercall arguments.
	Args [6]uint64
}

// ExitCPUUp reports a guest request to boot another logical processor
// (PSCI CPU_ON on aarch64, SIPI on x86).
type ExitCPUUp struct {
	// TargetCPU identifies the processor to boot, in an architecture
	// specific format (MPIDR on aarch64, APIC ID on x86).
	TargetCPU uint64
	// Entry is the guest physical address the target starts at.
	Entry GuestPhysAddr
	// Arg is the boot argument delivered to the target.
	Arg uint64
}

// ExitCPUDown reports a guest request to power down the current processor.
type ExitCPUDown struct {
	// State is the architecture-specific power state payload.
	State uint64
}

// ExitSystemDown reports a guest request to shut down the whole machine.
type ExitSystemDown struct{}

// ExitSendIPI reports a guest request to send an inter-processor interrupt.
type ExitSendIPI struct {
	// Target identifies the destination processor(s); ignored when
	// Broadcast is set.
	Target uint64
	// Broadcast requests delivery to all processors other than the sender.
	Broadcast bool
	// SelfTarget requests delivery to the sending processor as well.
	SelfTarget bool
	// Vector is the interrupt vector to deliver.
	Vector uint64
}

// ExitFailEntry reports that entering the guest failed. This is fatal for
// the VCpu.
type ExitFailEntry struct {
	// HardwareReason is the failure code reported by the virtualization
	// hardware.
	HardwareReason uint64
}

// ExitNothing reports that the backend resolved the exit internally. It
// gives the hypervisor a chance to check virtual devices and pending
// interrupts before re-entering the guest.
type ExitNothing struct{}

func (ExitHalt) isExitReason()              {}
func (ExitMMIORead) isExitReason()          {}
func (ExitMMIOWrite) isExitReason()         {}
func (ExitIORead) isExitReason()            {}
func (ExitIOWrite) isExitReason()           {}
func (ExitSysRegRead) isExitReason()        {}
func (ExitSysRegWrite) isExitReason()       {}
func (ExitExternalInterrupt) isExitReason() {}
func (ExitNestedPageFault) isExitReason()   {}
func (ExitHypercall) isExitReason()         {}
func (ExitCPUUp) isExitReason()             {}
func (ExitCPUDown) isExitReason()           {}
func (ExitSystemDown) isExitReason()        {}
func (ExitSendIPI) isExitReason()           {}
func (ExitFailEntry) isExitReason()         {}
func (ExitNothing) isExitReason()           {}

func (ExitHalt) String() string { return "Halt" }

func (e ExitMMIORead) String() string {
	return fmt.Sprintf("MMIORead addr=%#x width=%s reg=%d", uint64(e.Addr), e.Width, e.Reg)
}

func (e ExitMMIOWrite) String() string {
	return fmt.Sprintf("MMIOWrite addr=%#x width=%s data=%#x", uint64(e.Addr), e.Width, e.Data)
}

func (e ExitIORead) String() string {
	return fmt.Sprintf("IORead port=%#x width=%s", uint16(e.Port), e.Width)
}

func (e ExitIOWrite) String() string {
	return fmt.Sprintf("IOWrite port=%#x width=%s data=%#x", uint16(e.Port), e.Width, e.Data)
}

func (e ExitSysRegRead) String() string {
	return fmt.Sprintf("SysRegRead addr=%#x reg=%d", uint64(e.Addr), e.Reg)
}

func (e ExitSysRegWrite) String() string {
	return fmt.Sprintf("SysRegWrite addr=%#x value=%#x", uint64(e.Addr), e.Value)
}

func (e ExitExternalInterrupt) String() string {
	return fmt.Sprintf("ExternalInterrupt vector=%d", e.Vector)
}

func (e ExitNestedPageFault) String() string {
	return fmt.Sprintf("NestedPageFault addr=%#x access=%s", uint64(e.Addr), e.Access)
}

func (e ExitHypercall) String() string {
	return fmt.Sprintf("Hypercall nr=%#x args=%#x", e.Nr, e.Args)
}

func (e ExitCPUUp) String() string {
	return fmt.Sprintf("CPUUp target=%#x entry=%#x arg=%#x", e.TargetCPU, uint64(e.Entry), e.Arg)
}

func (e ExitCPUDown) String() string {
	return fmt.Sprintf("CPUDown state=%#x", e.State)
}

func (ExitSystemDown) String() string { return "SystemDown" }

func (e ExitSendIPI) String() string {
	return fmt.Sprintf("SendIPI target=%#x broadcast=%t self=%t vector=%d",
		e.Target, e.Broadcast, e.SelfTarget, e.Vector)
}

func (e ExitFailEntry) String() string {
	return fmt.Sprintf("FailEntry reason=%#x", e.HardwareReason)
}

func (ExitNothing) String() string { return "Nothing" }
