// Per-user usage collection.
//
// For one (user, account, day) we ask sacct for the completed jobs in the window [day, day+1) and
// fold the job lines into a single UsageRecord.  `-X` restricts the output to allocations so there
// is exactly one line per job; the batch and extern steps never appear.
//
// Parsing is deliberately forgiving.  Every nonblank line starts out counting as a job; a line
// with the wrong field count or a state other than COMPLETED is disqualified and decrements the
// count.  For a qualifying line the three metric groups accumulate independently of each other: a
// malformed field spoils only its own group for that one job, reported at debug level and
// otherwise ignored.

package slurm

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chance-nelson/jobstats-db/common"
	"github.com/chance-nelson/jobstats-db/process"
)

// The capitalization is as in the sacct man page, though sacct ignores capitalization.
var sacctFieldNames = []string{
	"JobID",
	"JobName",
	"ReqMem",
	"MaxRSS",
	"ReqCPUS",
	"TotalCPU",
	"Timelimit",
	"Elapsed",
	"State",
	"ExitCode",
}

// Indexes into a split job line.  KEEP THIS IN SYNC with sacctFieldNames above.
const (
	fieldReqMem = iota + 2
	fieldMaxRSS
	fieldReqCpus
	fieldTotalCpu
	fieldTimelimit
	fieldElapsed
	fieldState
)

const (
	numSacctFields = 10
	stateCompleted = "COMPLETED"
)

// CollectUsage runs sacct for the user and account over the one-day window starting at date and
// returns the accumulated record.  The record may be empty (JobCount == 0); that is not an error.
func (t *Tools) CollectUsage(
	ctx context.Context,
	user, account string,
	date time.Time,
) (*UsageRecord, error) {
	arguments := []string{
		"-u", user,
		"-A", account,
		"-S", common.DateString(date),
		"-E", common.DateString(common.NextDay(date)),
		"-s", stateCompleted,
		"-X",
		"-P",
		"--noheader",
		"-o", strings.Join(sacctFieldNames, ","),
	}
	stdout, stderr, err := process.RunSubprocess(ctx, t.Sacct, arguments, t.Timeout)
	if err != nil {
		return nil, err
	}
	if stderr != "" {
		common.Log.Warningf("sacct: %s", strings.TrimSpace(stderr))
	}
	return parseUsage(user, account, date, stdout), nil
}

func parseUsage(user, account string, date time.Time, output string) *UsageRecord {
	r := &UsageRecord{
		Username: user,
		Account:  account,
		Date:     date,
	}

	lines := make([]string, 0)
	scan := bufio.NewScanner(strings.NewReader(output))
	for scan.Scan() {
		if line := scan.Text(); line != "" {
			lines = append(lines, line)
		}
	}

	// Every line starts out counting as a job; disqualified lines decrement.
	r.JobCount = len(lines)

	for _, line := range lines {
		fields := strings.Split(line, "|")
		if len(fields) != numSacctFields || fields[fieldState] != stateCompleted {
			r.JobCount--
			continue
		}
		if err := addMemory(r, fields); err != nil {
			common.Log.Debugf("%s/%s: memory not accumulated: %v", account, user, err)
		}
		if err := addTimelimit(r, fields); err != nil {
			common.Log.Debugf("%s/%s: time limit not accumulated: %v", account, user, err)
		}
		if err := addCpu(r, fields); err != nil {
			common.Log.Debugf("%s/%s: cpu time not accumulated: %v", account, user, err)
		}
	}

	return r
}

func addMemory(r *UsageRecord, fields []string) error {
	req, err := parseSize([]byte(fields[fieldReqMem]))
	if err != nil {
		return fmt.Errorf("ReqMem %q: %w", fields[fieldReqMem], err)
	}
	used, err := parseSize([]byte(fields[fieldMaxRSS]))
	if err != nil {
		return fmt.Errorf("MaxRSS %q: %w", fields[fieldMaxRSS], err)
	}
	// Jobs that requested no memory contribute to neither sum.
	if req > 0 {
		r.MemReq += req
		r.MemUsed += used
		r.HaveMemory = true
	}
	return nil
}

func addTimelimit(r *UsageRecord, fields []string) error {
	req, err := parseElapsed([]byte(fields[fieldTimelimit]))
	if err != nil {
		return fmt.Errorf("Timelimit %q: %w", fields[fieldTimelimit], err)
	}
	used, err := parseElapsed([]byte(fields[fieldElapsed]))
	if err != nil {
		return fmt.Errorf("Elapsed %q: %w", fields[fieldElapsed], err)
	}
	r.TimelimitReq += req
	r.TimelimitUsed += used
	r.HaveTimelimit = true
	return nil
}

func addCpu(r *UsageRecord, fields []string) error {
	cores, err := parseUint64([]byte(fields[fieldReqCpus]))
	if err != nil {
		return fmt.Errorf("ReqCPUS %q: %w", fields[fieldReqCpus], err)
	}
	cpuTime, err := parseElapsed([]byte(fields[fieldTotalCpu]))
	if err != nil {
		return fmt.Errorf("TotalCPU %q: %w", fields[fieldTotalCpu], err)
	}
	elapsed, err := parseElapsed([]byte(fields[fieldElapsed]))
	if err != nil {
		return fmt.Errorf("Elapsed %q: %w", fields[fieldElapsed], err)
	}
	// Single-core jobs say nothing about parallel utilization; only multi-core jobs contribute.
	if cores > 1 {
		r.IdealCpuTime += float64(cores) * elapsed
		r.CpuTime += cpuTime
		r.HaveCpu = true
	}
	return nil
}
