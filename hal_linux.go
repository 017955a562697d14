//go:build linux

package vcpu

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// hostProcessorID returns the processor the calling thread is executing
// on. Only stable if the thread is locked and pinned.
func hostProcessorID() int {
	var cpu uint32
	_, _, errno := unix.Syscall(unix.SYS_GETCPU, uintptr(unsafe.Pointer(&cpu)), 0, 0)
	if errno != 0 {
		return 0
	}
	return int(cpu)
}
