// collect - sample slurm job accounting and store daily usage records.
//
// End-user options:
//
//  -config filename
//     The configuration file to read, default $HOME/.jobstats-db.  See the common package for
//     the file format.
//
//  -date date
//     The day to collect, either YYYY-MM-DD or relative: Nd is N days ago, Nw is N weeks ago.
//     Default 1d, ie yesterday, the most recent day whose accounting data are complete.
//
//  -timeout seconds
//     Kill an sshare or sacct invocation that runs longer than this, default 300.  A value of
//     0 disables the timeout.
//
//  -kafka
//     After the database commit, also publish the day's records to the configured kafka topic.
//     Failures here are logged but do not affect the exit code; the database is the source of
//     truth.
//
// Debugging / development options:
//
//  -v
//     Print per-account and per-user progress, and report parse problems in the slurm output
//     at debug level.
//
// Description:
//
// One run collects one day.  The accounts known to the fair-share tree are enumerated, then
// each account's users, then sacct is asked for each (user, account) pair's completed jobs on
// the day, and each pair with at least one completed job becomes one stored record.  All
// records of a run are committed in a single transaction, and the store ignores records whose
// (username, account, date) key is already present, so rerunning a day is harmless.
//
// A failing account or user is logged and skipped and the run carries on with the rest; the
// run fails only if the account enumeration itself fails or the store does.  SIGINT or SIGTERM
// aborts the sampling loop and nothing is committed.

package collect

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chance-nelson/jobstats-db/common"
	"github.com/chance-nelson/jobstats-db/db"
	"github.com/chance-nelson/jobstats-db/process"
	"github.com/chance-nelson/jobstats-db/slurm"
)

var verbose bool

// The sampler is what the slurm oracles look like to the collection loop; tests substitute
// their own.
type sampler interface {
	ListAccounts(ctx context.Context) ([]string, error)
	ListUsers(ctx context.Context, account string) ([]string, error)
	CollectUsage(ctx context.Context, user, account string, date time.Time) (*slurm.UsageRecord, error)
}

// The store is what the record sink looks like to the collection loop.
type store interface {
	Insert(ctx context.Context, r *slurm.UsageRecord) (bool, error)
}

func Collect(progname string, args []string) error {
	configFilename, date, timeout, kafka, err := commandLine(args)
	if err != nil {
		return err
	}

	common.Log.LowerLevelTo(common.LogLevelInfo)
	if verbose {
		common.Log.LowerLevelTo(common.LogLevelDebug)
	}

	config, err := common.ReadConfiguration(configFilename)
	if err != nil {
		return err
	}
	if err := config.CheckDatabase(); err != nil {
		return err
	}

	ctx, cancel := process.SignalContext(context.Background())
	defer cancel()

	tools := &slurm.Tools{
		Sshare:  config.Slurm.Sshare,
		Sacct:   config.Slurm.Sacct,
		Timeout: timeout,
	}

	records, err := collectDay(ctx, tools, date)
	if err != nil {
		return err
	}

	inserted, duplicate, err := storeDay(ctx, config.Database, records)
	if err != nil {
		return err
	}
	common.Log.Infof(
		"Collected %s: %d users with jobs, %d stored, %d already present",
		common.DateString(date), len(records), inserted, duplicate)

	if kafka {
		if err := publishRecords(ctx, config.Kafka, records); err != nil {
			common.Log.Warningf("Kafka publish failed: %v", err)
		}
	}

	return nil
}

// collectDay runs the sampling loop.  Every user of every account is sampled for the date and
// users without completed jobs are dropped.  A failing account or user is logged and skipped;
// only a failed account enumeration or a cancellation aborts the run.
func collectDay(ctx context.Context, smp sampler, date time.Time) ([]*slurm.UsageRecord, error) {
	accounts, err := smp.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if verbose {
		common.Log.Infof("%d accounts", len(accounts))
	}

	records := make([]*slurm.UsageRecord, 0)
	for _, account := range accounts {
		users, err := smp.ListUsers(ctx, account)
		// Cancellation kills the subprocess, so it surfaces as an oracle error; it must win
		// over skip-and-continue or the loop would grind through the remaining accounts.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			common.Log.Warningf("Skipping account %s: %v", account, err)
			continue
		}
		for _, user := range users {
			r, err := smp.CollectUsage(ctx, user, account, date)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err != nil {
				common.Log.Warningf("Skipping user %s in account %s: %v", user, account, err)
				continue
			}
			if r.JobCount == 0 {
				if verbose {
					common.Log.Infof("%s/%s: no completed jobs", account, user)
				}
				continue
			}
			if verbose {
				common.Log.Infof("%s/%s: %d jobs", account, user, r.JobCount)
			}
			records = append(records, r)
		}
	}
	return records, nil
}

// storeDay opens the database only for the duration of the store, inserts every record inside
// one transaction, and commits.
func storeDay(
	ctx context.Context,
	cfg common.DatabaseConfig,
	records []*slurm.UsageRecord,
) (int, int, error) {
	// A day without jobs does not need a connection.
	if len(records) == 0 {
		return 0, 0, nil
	}

	theDB, err := db.Open(ctx, cfg)
	if err != nil {
		return 0, 0, err
	}
	defer theDB.Close(context.Background())

	tx, err := theDB.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(context.Background())

	inserted, duplicate, err := insertRecords(ctx, tx, records)
	if err != nil {
		return inserted, duplicate, err
	}
	if err := tx.Commit(ctx); err != nil {
		return inserted, duplicate, err
	}
	return inserted, duplicate, nil
}

func insertRecords(
	ctx context.Context,
	st store,
	records []*slurm.UsageRecord,
) (int, int, error) {
	inserted := 0
	duplicate := 0
	for _, r := range records {
		ok, err := st.Insert(ctx, r)
		if err != nil {
			return inserted, duplicate, err
		}
		if ok {
			inserted++
		} else {
			duplicate++
		}
	}
	return inserted, duplicate, nil
}

func commandLine(args []string) (
	configFilename string,
	date time.Time,
	timeout time.Duration,
	kafka bool,
	err error,
) {
	opts := flag.NewFlagSet(os.Args[0]+" collect", flag.ContinueOnError)
	opts.StringVar(&configFilename, "config", common.DefaultConfigPath(),
		"Read configuration from `filename`")
	var dateOpt string
	opts.StringVar(&dateOpt, "date", "1d",
		"Collect jobs for `date`, YYYY-MM-DD or relative (1d = yesterday)")
	var timeoutOpt uint
	opts.UintVar(&timeoutOpt, "timeout", 300,
		"Kill a slurm subprocess after `seconds`, 0 to disable")
	opts.BoolVar(&kafka, "kafka", false,
		"Publish the collected records to kafka after the commit")
	opts.BoolVar(&verbose, "v", false, "Verbose (debugging) output")
	err = opts.Parse(args)
	if err == flag.ErrHelp {
		os.Exit(0)
	}
	if err != nil {
		return
	}
	date, err = common.ParseRelativeDate(dateOpt)
	if err != nil {
		err = fmt.Errorf("Argument to -date could not be parsed: %w", err)
		return
	}
	timeout = time.Duration(timeoutOpt) * time.Second
	return
}
