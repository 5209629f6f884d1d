package slurm

import "time"

// UsageRecord holds one day's accumulated accounting for one user within one account.  The three
// metric groups (memory, time limit, cpu) are optional: the Have flag for a group is false when no
// completed job contributed to it, and the persister stores NULL for the whole group.  Sums are
// kept as float64 while accumulating so that fractional seconds reported by sacct are not lost.
//
// A record is meaningful only when JobCount > 0; empty records are discarded, never persisted.

type UsageRecord struct {
	Username string
	Account  string
	Date     time.Time // UTC midnight of the accounted day

	HaveMemory bool
	MemReq     float64 // megabytes, as reported by sacct
	MemUsed    float64

	HaveTimelimit bool
	TimelimitReq  float64 // seconds
	TimelimitUsed float64

	HaveCpu      bool
	IdealCpuTime float64 // seconds, requested cores x elapsed wall time
	CpuTime      float64 // seconds

	JobCount int
}
