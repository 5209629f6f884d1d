package slurm

import (
	"github.com/chance-nelson/jobstats-db/common"
)

// UsageJSON is the json representation of a usage record, shared by the kafka stream, the
// report verb and the daemon.  Field names are the column names of the usage table; a metric
// pair from a group no job contributed to is null.
type UsageJSON struct {
	Username      string   `json:"username"`
	Account       string   `json:"account"`
	Date          string   `json:"date"`
	MemReq        *float64 `json:"mem_req"`
	MemUsed       *float64 `json:"mem_used"`
	TimelimitReq  *int64   `json:"timelimit_req"`
	TimelimitUsed *int64   `json:"timelimit_used"`
	IdealCpuTime  *float64 `json:"ideal_cpu_time"`
	CpuTime       *float64 `json:"cpu_time"`
	Jobs          int      `json:"jobs"`
}

func (r *UsageRecord) JSON() *UsageJSON {
	m := &UsageJSON{
		Username: r.Username,
		Account:  r.Account,
		Date:     common.DateString(r.Date),
		Jobs:     r.JobCount,
	}
	if r.HaveMemory {
		m.MemReq = &r.MemReq
		m.MemUsed = &r.MemUsed
	}
	if r.HaveTimelimit {
		req := int64(r.TimelimitReq)
		used := int64(r.TimelimitUsed)
		m.TimelimitReq = &req
		m.TimelimitUsed = &used
	}
	if r.HaveCpu {
		m.IdealCpuTime = &r.IdealCpuTime
		m.CpuTime = &r.CpuTime
	}
	return m
}
