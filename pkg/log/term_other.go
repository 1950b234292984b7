//go:build !linux && !darwin

package log

// isTerminal always reports false; console colour is opt-in elsewhere.
func isTerminal(fd uintptr) bool {
	return false
}
