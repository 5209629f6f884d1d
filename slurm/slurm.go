// Interaction with the Slurm accounting commands.
//
// Tools wraps the two external programs as typed operations: sshare enumerates accounts and the
// users within an account, sacct yields the per-job accounting lines for one (user, account, day)
// that are folded into a UsageRecord.  Both programs are opaque text-producing oracles; everything
// in this package is about invoking them safely and parsing their `|`-delimited output.
//
// The parsers are separated from the subprocess plumbing so they can be tested against captured
// output without a Slurm installation; the collect verb additionally consumes Tools through a
// narrow interface so the whole pipeline is testable with fakes.

package slurm

import (
	"time"
)

// Tools locates the Slurm programs and bounds their running time.  A zero Timeout means no bound,
// but every invocation still aborts when the run's context is canceled.
type Tools struct {
	Sshare  string
	Sacct   string
	Timeout time.Duration
}
