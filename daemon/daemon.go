// daemon - serve stored daily usage records over HTTP.
//
// End-user options:
//
//  -config filename
//     The configuration file to read, default $HOME/.jobstats-db.  See the common package for
//     the file format.
//
//  -port port
//     Listen on this port, overriding the [daemon] section of the configuration.
//
// Debugging / development options:
//
//  -v
//     Log every query handled.
//
// Description:
//
// The daemon is the read-only query API over the usage table, for dashboards and ad-hoc
// scripting:
//
//   GET /usage?date=&from=&to=&account=&user=
//      Usage records, same date selection and filters as the report verb; default yesterday.
//
//   GET /accounts
//      The accounts that have at least one stored record.
//
// Responses are json.  Interactive documentation is served under /docs and the OpenAPI
// description under /openapi.json.  There is no authentication: run this behind a firewall or
// a reverse proxy that provides it.
//
// Logging goes to syslog.  SIGHUP and SIGTERM shut the server down cleanly.

package daemon

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"syscall"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/chance-nelson/jobstats-db/common"
	"github.com/chance-nelson/jobstats-db/db"
	"github.com/chance-nelson/jobstats-db/httpsrv"
	"github.com/chance-nelson/jobstats-db/process"
	"github.com/chance-nelson/jobstats-db/slurm"
)

const logTag = "jobstats-db"

var verbose bool

func Daemon(progname string, args []string) error {
	configFilename, port, err := commandLine(args)
	if err != nil {
		return err
	}

	config, err := common.ReadConfiguration(configFilename)
	if err != nil {
		return err
	}
	if err := config.CheckDatabase(); err != nil {
		return err
	}
	if port == 0 {
		port = config.Daemon.Port
	}

	if err := common.StartSyslog(logTag); err != nil {
		return err
	}
	common.Log.LowerLevelTo(common.LogLevelInfo)
	if verbose {
		common.Log.LowerLevelTo(common.LogLevelDebug)
	}

	ctx := context.Background()
	theDB, err := db.Open(ctx, config.Database)
	if err != nil {
		return err
	}
	defer theDB.Close(ctx)

	mux := http.NewServeMux()
	registerAPI(mux, theDB)

	var programFailed bool
	s := httpsrv.New(port, mux, func(err error) {
		programFailed = true
	})
	go s.Start()

	// Wait here until we're stopped by SIGHUP (manual) or SIGTERM (from OS during shutdown).
	process.WaitForSignal(syscall.SIGHUP, syscall.SIGTERM)
	s.Stop()

	if programFailed {
		return errors.New("HTTP server failed to start, or errored out")
	}
	return nil
}

// The usageReader is what the store looks like to the handlers; tests substitute their own.
type usageReader interface {
	ReadUsage(ctx context.Context, q db.Query) ([]*slurm.UsageRecord, error)
	ReadAccounts(ctx context.Context) ([]string, error)
}

type usageParams struct {
	Date    string `query:"date" doc:"Single day, YYYY-MM-DD or relative (1d = yesterday)"`
	From    string `query:"from" doc:"Start of an inclusive day range"`
	To      string `query:"to" doc:"End of an inclusive day range"`
	Account string `query:"account" doc:"Only records for this slurm account"`
	User    string `query:"user" doc:"Only records for this user"`
}

type usageResponse struct {
	Body []*slurm.UsageJSON
}

type accountsResponse struct {
	Body []string
}

func registerAPI(mux *http.ServeMux, store usageReader) {
	api := humago.New(mux, huma.DefaultConfig("jobstats-db", common.Version))

	huma.Register(api, huma.Operation{
		OperationID: "get-usage",
		Method:      http.MethodGet,
		Path:        "/usage",
		Summary:     "Stored daily usage records",
	}, func(ctx context.Context, in *usageParams) (*usageResponse, error) {
		from, to, err := common.DateRange(in.Date, in.From, in.To)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("Bad date selection", err)
		}
		records, err := store.ReadUsage(ctx, db.Query{
			From:    from,
			To:      to,
			Account: in.Account,
			User:    in.User,
		})
		if err != nil {
			common.Log.Errorf("Usage query failed: %v", err)
			return nil, huma.Error500InternalServerError("Usage query failed")
		}
		if verbose {
			common.Log.Infof("Usage %s..%s: %d records",
				common.DateString(from), common.DateString(to), len(records))
		}
		rows := make([]*slurm.UsageJSON, len(records))
		for i, r := range records {
			rows[i] = r.JSON()
		}
		return &usageResponse{Body: rows}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-accounts",
		Method:      http.MethodGet,
		Path:        "/accounts",
		Summary:     "Accounts with at least one stored record",
	}, func(ctx context.Context, in *struct{}) (*accountsResponse, error) {
		accounts, err := store.ReadAccounts(ctx)
		if err != nil {
			common.Log.Errorf("Accounts query failed: %v", err)
			return nil, huma.Error500InternalServerError("Accounts query failed")
		}
		return &accountsResponse{Body: accounts}, nil
	})
}

func commandLine(args []string) (configFilename string, port int, err error) {
	opts := flag.NewFlagSet(os.Args[0]+" daemon", flag.ContinueOnError)
	opts.StringVar(&configFilename, "config", common.DefaultConfigPath(),
		"Read configuration from `filename`")
	opts.IntVar(&port, "port", 0, "Listen on `port`, overriding the configuration")
	opts.BoolVar(&verbose, "v", false, "Verbose (debugging) output")
	err = opts.Parse(args)
	if err == flag.ErrHelp {
		os.Exit(0)
	}
	if err != nil {
		return
	}
	if port < 0 || port > 65535 {
		err = fmt.Errorf("Bad -port %d", port)
	}
	return
}
