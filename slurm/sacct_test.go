package slurm

import (
	"testing"
	"time"
)

var testDate = time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

func TestParseUsageSingleJob(t *testing.T) {
	output := "1234|simulate|1024M|512M|4|01:00:00|02:00:00|01:30:00|COMPLETED|0:0\n"
	r := parseUsage("alice", "phys", testDate, output)
	if r.Username != "alice" || r.Account != "phys" || !r.Date.Equal(testDate) {
		t.Fatalf("Bad identity: %+v", r)
	}
	if r.JobCount != 1 {
		t.Fatal(r.JobCount)
	}
	if !r.HaveMemory || r.MemReq != 1024 || r.MemUsed != 512 {
		t.Fatalf("Memory: %+v", r)
	}
	if !r.HaveTimelimit || r.TimelimitReq != 7200 || r.TimelimitUsed != 5400 {
		t.Fatalf("Time limit: %+v", r)
	}
	if !r.HaveCpu || r.IdealCpuTime != 21600 || r.CpuTime != 3600 {
		t.Fatalf("Cpu: %+v", r)
	}
}

func TestParseUsageAccumulates(t *testing.T) {
	output := `1|a|1024M|512M|4|01:00:00|02:00:00|01:30:00|COMPLETED|0:0
2|b|2048M|100M|2|00:30:00|01:00:00|00:45:00|COMPLETED|0:0
`
	r := parseUsage("alice", "phys", testDate, output)
	if r.JobCount != 2 {
		t.Fatal(r.JobCount)
	}
	if r.MemReq != 3072 || r.MemUsed != 612 {
		t.Fatalf("Memory: %+v", r)
	}
	if r.TimelimitReq != 10800 || r.TimelimitUsed != 8100 {
		t.Fatalf("Time limit: %+v", r)
	}
	// 4*5400 + 2*2700 ideal, 3600 + 1800 actual.
	if r.IdealCpuTime != 27000 || r.CpuTime != 5400 {
		t.Fatalf("Cpu: %+v", r)
	}
}

func TestParseUsageDisqualifies(t *testing.T) {
	// Too few fields, too many fields, wrong state: none of these is a job.
	output := `1|a|1024M|512M|4|01:00:00|02:00:00|01:30:00|COMPLETED
2|b|1024M|512M|4|01:00:00|02:00:00|01:30:00|COMPLETED|0:0|extra
3|c|1024M|512M|4|01:00:00|02:00:00|01:30:00|FAILED|1:0
4|d|1024M|512M|4|01:00:00|02:00:00|01:30:00|COMPLETED|0:0
`
	r := parseUsage("alice", "phys", testDate, output)
	if r.JobCount != 1 {
		t.Fatal(r.JobCount)
	}
	if r.MemReq != 1024 || r.TimelimitReq != 7200 || r.IdealCpuTime != 21600 {
		t.Fatalf("Disqualified line accumulated: %+v", r)
	}
}

func TestParseUsageNoMemoryRequest(t *testing.T) {
	// A zero memory request keeps the job out of both memory sums but not out of the
	// other groups.
	output := `1|a|512M|256.0M|4|01:00:00|02:00:00|01:30:00|COMPLETED|0:0
2|b|0M|128M|4|01:00:00|02:00:00|01:30:00|COMPLETED|0:0
`
	r := parseUsage("alice", "phys", testDate, output)
	if r.JobCount != 2 {
		t.Fatal(r.JobCount)
	}
	if r.MemReq != 512 || r.MemUsed != 256 {
		t.Fatalf("Memory: %+v", r)
	}
	if r.TimelimitReq != 14400 {
		t.Fatalf("Time limit: %+v", r)
	}

	r = parseUsage("alice", "phys", testDate, "1|a|0M|128M|4|01:00:00|02:00:00|01:30:00|COMPLETED|0:0\n")
	if r.HaveMemory {
		t.Fatalf("Memory should be absent: %+v", r)
	}
	if !r.HaveTimelimit || !r.HaveCpu || r.JobCount != 1 {
		t.Fatalf("Other groups should be present: %+v", r)
	}
}

func TestParseUsageSingleCore(t *testing.T) {
	output := "1|a|1024M|512M|1|01:00:00|02:00:00|01:30:00|COMPLETED|0:0\n"
	r := parseUsage("alice", "phys", testDate, output)
	if r.HaveCpu || r.IdealCpuTime != 0 || r.CpuTime != 0 {
		t.Fatalf("Single-core job contributed cpu time: %+v", r)
	}
	if !r.HaveMemory || !r.HaveTimelimit || r.JobCount != 1 {
		t.Fatalf("Other groups should be present: %+v", r)
	}
}

func TestParseUsageGroupIndependence(t *testing.T) {
	// An unparseable Timelimit spoils the time limit group for that job and nothing else.
	output := "1|a|1024M|512M|4|01:00:00|UNLIMITED|01:30:00|COMPLETED|0:0\n"
	r := parseUsage("alice", "phys", testDate, output)
	if r.HaveTimelimit {
		t.Fatalf("Time limit should be absent: %+v", r)
	}
	if !r.HaveMemory || !r.HaveCpu || r.JobCount != 1 {
		t.Fatalf("Other groups should be present: %+v", r)
	}

	// An unparseable ReqMem likewise spoils only the memory group.
	output = "1|a|?|512M|4|01:00:00|02:00:00|01:30:00|COMPLETED|0:0\n"
	r = parseUsage("alice", "phys", testDate, output)
	if r.HaveMemory {
		t.Fatalf("Memory should be absent: %+v", r)
	}
	if !r.HaveTimelimit || !r.HaveCpu || r.JobCount != 1 {
		t.Fatalf("Other groups should be present: %+v", r)
	}

	// An unparseable Elapsed spoils both groups that read it.
	output = "1|a|1024M|512M|4|01:00:00|02:00:00|borked|COMPLETED|0:0\n"
	r = parseUsage("alice", "phys", testDate, output)
	if r.HaveTimelimit || r.HaveCpu {
		t.Fatalf("Elapsed readers should be absent: %+v", r)
	}
	if !r.HaveMemory || r.JobCount != 1 {
		t.Fatalf("Memory should be present: %+v", r)
	}
}

func TestParseUsageEmpty(t *testing.T) {
	r := parseUsage("bob", "phys", testDate, "")
	if r.JobCount != 0 {
		t.Fatal(r.JobCount)
	}
	if r.HaveMemory || r.HaveTimelimit || r.HaveCpu {
		t.Fatalf("Empty output produced metrics: %+v", r)
	}

	r = parseUsage("bob", "phys", testDate, "\n\n")
	if r.JobCount != 0 {
		t.Fatal(r.JobCount)
	}
}
