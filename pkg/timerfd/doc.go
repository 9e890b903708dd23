// Package timerfd provides an owned handle over a kernel timer file descriptor.
//
// A Handle is created against one clock source and is either armed (a pending
// deadline) or disarmed. Arm replaces the deadline and repeat interval in one
// kernel call and reports the values it replaced; Query reports the remaining
// time and interval without changing them. Reading expirations is left to the
// consumer of the descriptor.
//
// Only Linux provides timerfd. On other platforms the package compiles but
// Create and Now fail with ENOSYS.
package timerfd
