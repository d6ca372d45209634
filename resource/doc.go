// Package resource bounds access to scarce execution resources.
//
// SlotPool is a counting semaphore of fixed size N. Accelerator-backed index
// operations draw one slot per call so that at most N of them execute at any
// instant. IOLimiter throttles blob transfer throughput.
package resource
