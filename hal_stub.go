//go:build !linux

package vcpu

// hostProcessorID has no portable implementation off Linux; hosts on other
// platforms install a Hal that knows their processor topology.
func hostProcessorID() int {
	return 0
}
