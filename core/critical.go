package core

// free runs fn with interrupts disabled. fn must be short and must not call
// any other entry point of this package that enters the critical section.
func free(fn func()) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	fn()
}
