package sched

//go:noescape
func rdtsc() uint64
