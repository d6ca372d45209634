// Package device provides accelerator execution contexts.
//
// A Context is owned by exactly one index node. Work is submitted as kernels
// with Launch and runs serialized on the context's stream goroutine. The
// default build emulates the device on the host CPU.
package device
