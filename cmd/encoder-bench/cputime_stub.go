//go:build !linux && !darwin && !freebsd

package main

import "time"

type cpuUsage struct {
	user, sys time.Duration
}

func (u cpuUsage) total() time.Duration { return 0 }

func (u cpuUsage) sub(prev cpuUsage) cpuUsage { return cpuUsage{} }

// readCPUUsage is unavailable here; CPU reporting is skipped.
func readCPUUsage() cpuUsage { return cpuUsage{} }
