//go:build linux || darwin || freebsd

package main

import (
	"time"

	"golang.org/x/sys/unix"
)

// cpuUsage is a snapshot of process CPU time, summed over all threads.
type cpuUsage struct {
	user, sys time.Duration
}

func (u cpuUsage) total() time.Duration { return u.user + u.sys }

func (u cpuUsage) sub(prev cpuUsage) cpuUsage {
	return cpuUsage{user: u.user - prev.user, sys: u.sys - prev.sys}
}

func readCPUUsage() cpuUsage {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return cpuUsage{}
	}
	return cpuUsage{
		user: time.Duration(ru.Utime.Nano()),
		sys:  time.Duration(ru.Stime.Nano()),
	}
}
