package vcpu

import (
	"errors"
	"fmt"
	"testing"
)

func TestBadStateError(t *testing.T) {
	tests := []struct {
		name string
		err  *BadStateError
		want string
	}{
		{
			name: "run from created",
			err:  &BadStateError{Op: "run", Want: StateReady, Got: StateCreated},
			want: "vcpu: run requires state Ready, but state is Created",
		},
		{
			name: "bind from ready",
			err:  &BadStateError{Op: "bind", Want: StateFree, Got: StateReady},
			want: "vcpu: bind requires state Free, but state is Ready",
		},
		{
			name: "anything from invalid",
			err:  &BadStateError{Op: "setup", Want: StateCreated, Got: StateInvalid},
			want: "vcpu: setup requires state Created, but state is Invalid",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBadStateErrorAs(t *testing.T) {
	var err error = &BadStateError{Op: "unbind", Want: StateReady, Got: StateFree}
	err = fmt.Errorf("driving vcpu: %w", err)

	var bad *BadStateError
	if !errors.As(err, &bad) {
		t.Fatal("errors.As failed to unwrap *BadStateError")
	}
	if bad.Op != "unbind" {
		t.Errorf("Op = %q, want %q", bad.Op, "unbind")
	}
}

func TestOpErrorForwardsBackendError(t *testing.T) {
	backend := errors.New("vmlaunch failed")
	err := opError("run", backend)

	if !errors.Is(err, backend) {
		t.Error("opError does not forward the backend error")
	}
	want := "vcpu: run: vmlaunch failed"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
