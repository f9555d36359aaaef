//go:build !linux

package kcfake

// ThreadScoped is true where error slots are kept per OS thread.
const ThreadScoped = false

func threadID() int { return 0 }
