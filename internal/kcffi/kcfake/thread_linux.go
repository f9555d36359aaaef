package kcfake

import "golang.org/x/sys/unix"

// ThreadScoped is true where error slots are kept per OS thread.
const ThreadScoped = true

func threadID() int { return unix.Gettid() }
