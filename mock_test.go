package vcpu

import (
	"errors"
	"testing"
)

// mockArch is a recording ArchVCpu used across the package tests. It
// mirrors what a real backend does at the contract level: it refuses to
// set up before both setters ran, refuses to run while unbound, and
// buffers injected interrupts until the next Run.
type mockArch struct {
	vm      VMID
	id      VCpuID
	entry   GuestPhysAddr
	eptRoot HostPhysAddr

	entrySet  bool
	rootSet   bool
	setupDone bool
	bound     bool

	regs    [16]uint64
	pending []uint64
	retVal  uint64

	// calls logs every contract method invocation in order.
	calls *[]string

	// exits are returned by Run front to back; when exhausted Run
	// returns ExitHalt.
	exits []ExitReason

	// fail injects an error for the named operation.
	fail map[string]error

	// onRun, if set, is invoked from inside Run, the way trap-path code
	// runs while the guest occupies the processor.
	onRun func()

	// Observations made from inside Run, through the per-processor slot.
	ownerSeen  []bool
	stateAtRun []State

	// deliveredAtRun snapshots the pending interrupt queue at each Run.
	deliveredAtRun [][]uint64
}

func (m *mockArch) record(call string) {
	*m.calls = append(*m.calls, call)
}

func (m *mockArch) SetEntry(entry GuestPhysAddr) error {
	m.record("set_entry")
	if err := m.fail["set_entry"]; err != nil {
		return err
	}
	m.entry = entry
	m.entrySet = true
	return nil
}

func (m *mockArch) SetEPTRoot(root HostPhysAddr) error {
	m.record("set_ept_root")
	if err := m.fail["set_ept_root"]; err != nil {
		return err
	}
	m.eptRoot = root
	m.rootSet = true
	return nil
}

func (m *mockArch) Setup(cfg SetupConfig) error {
	m.record("setup")
	if err := m.fail["setup"]; err != nil {
		return err
	}
	if !m.entrySet || !m.rootSet {
		return errors.New("mock: setup before entry/ept root")
	}
	m.setupDone = true
	return nil
}

func (m *mockArch) Bind() error {
	m.record("bind")
	if err := m.fail["bind"]; err != nil {
		return err
	}
	if !m.setupDone {
		return errors.New("mock: bind before setup")
	}
	m.bound = true
	return nil
}

func (m *mockArch) Unbind() error {
	m.record("unbind")
	if err := m.fail["unbind"]; err != nil {
		return err
	}
	m.bound = false
	return nil
}

func (m *mockArch) Run() (ExitReason, error) {
	m.record("run")
	if err := m.fail["run"]; err != nil {
		return nil, err
	}
	if !m.bound {
		return nil, errors.New("mock: run while unbound")
	}

	// A real backend reaches back for its owning handle from the trap
	// path; do the same and record what it saw.
	cur := CurrentVCpu[*mockArch]()
	m.ownerSeen = append(m.ownerSeen, cur != nil && cur.Arch() == m)
	if cur != nil {
		m.stateAtRun = append(m.stateAtRun, cur.State())
	}

	m.deliveredAtRun = append(m.deliveredAtRun, append([]uint64(nil), m.pending...))
	m.pending = nil

	if m.onRun != nil {
		m.onRun()
	}

	if len(m.exits) > 0 {
		exit := m.exits[0]
		m.exits = m.exits[1:]
		return exit, nil
	}
	return ExitHalt{}, nil
}

func (m *mockArch) SetGPR(reg int, val uint64) {
	m.record("set_gpr")
	if reg >= 0 && reg < len(m.regs) {
		m.regs[reg] = val
	}
}

func (m *mockArch) InjectInterrupt(vector uint64) error {
	m.record("inject_interrupt")
	if err := m.fail["inject_interrupt"]; err != nil {
		return err
	}
	m.pending = append(m.pending, vector)
	return nil
}

func (m *mockArch) SetReturnValue(val uint64) {
	m.record("set_return_value")
	m.retVal = val
}

// newMockFactory returns a backend constructor sharing the given call log.
func newMockFactory(calls *[]string, fail map[string]error) NewArchFn[*mockArch] {
	return func(vm VMID, id VCpuID, cfg CreateConfig) (*mockArch, error) {
		*calls = append(*calls, "new")
		if err := fail["new"]; err != nil {
			return nil, err
		}
		return &mockArch{vm: vm, id: id, calls: calls, fail: fail}, nil
	}
}

// testHal pins the reported logical processor so tests are independent of
// where the test goroutine is scheduled.
type testHal struct {
	processor int
	irq       uint64
}

func (h *testHal) CurrentProcessor() int     { return h.processor }
func (h *testHal) FetchIRQ() uint64          { return h.irq }
func (h *testHal) DispatchIRQ(vector uint64) { h.irq = vector }

// newTestVCpu builds a fresh VCpu over a mock backend with a pinned Hal.
func newTestVCpu(t *testing.T, cfg Config) (*VCpu[*mockArch], *[]string) {
	t.Helper()
	SetHal(&testHal{processor: 0})
	t.Cleanup(func() { SetHal(nil) })
	calls := &[]string{}
	v, err := New(cfg, newMockFactory(calls, nil), nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return v, calls
}

// setupReady walks a fresh VCpu to StateReady.
func setupReady(t *testing.T, v *VCpu[*mockArch]) {
	t.Helper()
	if err := v.Setup(0x1000, 0x2000, nil); err != nil {
		t.Fatalf("Setup() failed: %v", err)
	}
	if err := v.Bind(); err != nil {
		t.Fatalf("Bind() failed: %v", err)
	}
}
