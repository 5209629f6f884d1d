// report - print stored daily usage records.
//
// End-user options:
//
//  -config filename
//     The configuration file to read, default $HOME/.jobstats-db.  See the common package for
//     the file format.
//
//  -date date
//     Report a single day, YYYY-MM-DD or relative (Nd = N days ago, Nw = N weeks ago).
//     Default 1d, ie yesterday.
//
//  -from date
//  -to date
//     Report an inclusive range of days instead of a single day.  If only one endpoint is
//     given the range is that single day.  A range cannot be combined with -date.
//
//  -account name
//     Only records for this slurm account.
//
//  -user name
//     Only records for this user.
//
//  -json
//     Produce json output, not the default fixed-width text.
//
// Debugging / development options:
//
//  -v
//     Report how many records the query matched, on stderr.
//
// Description:
//
// This is the query side of the usage table: one line per stored (user, account, day) triple,
// oldest day first.  Memory is in the unit slurm reported, normally MB; the time columns are
// seconds.  A metric group no job contributed to prints as "-", or as null in json output.

package report

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/chance-nelson/jobstats-db/common"
	"github.com/chance-nelson/jobstats-db/db"
	"github.com/chance-nelson/jobstats-db/slurm"
)

var verbose bool

func Report(progname string, args []string) error {
	configFilename, query, jsonOutput, err := commandLine(args)
	if err != nil {
		return err
	}
	if verbose {
		common.Log.LowerLevelTo(common.LogLevelInfo)
	}

	config, err := common.ReadConfiguration(configFilename)
	if err != nil {
		return err
	}
	if err := config.CheckDatabase(); err != nil {
		return err
	}

	ctx := context.Background()
	theDB, err := db.Open(ctx, config.Database)
	if err != nil {
		return err
	}
	defer theDB.Close(ctx)

	records, err := theDB.ReadUsage(ctx, query)
	if err != nil {
		return err
	}
	if verbose {
		common.Log.Infof("%d records between %s and %s",
			len(records), common.DateString(query.From), common.DateString(query.To))
	}

	if jsonOutput {
		rows := make([]*slurm.UsageJSON, len(records))
		for i, r := range records {
			rows[i] = r.JSON()
		}
		bytes, err := json.Marshal(rows)
		if err != nil {
			return fmt.Errorf("While marshaling usage data: %w", err)
		}
		fmt.Println(string(bytes))
		return nil
	}

	writeUsageReport(os.Stdout, records)
	return nil
}

var reportHeader = []string{
	"date", "account", "user", "jobs", "mem-req", "mem-used",
	"time-req", "time-used", "ideal-cpu", "cpu-time",
}

func writeUsageReport(out io.Writer, records []*slurm.UsageRecord) {
	rows := make([][]string, len(records))
	for i, r := range records {
		memReq, memUsed := "-", "-"
		timeReq, timeUsed := "-", "-"
		idealCpu, cpuTime := "-", "-"
		if r.HaveMemory {
			memReq = formatFloat(r.MemReq)
			memUsed = formatFloat(r.MemUsed)
		}
		if r.HaveTimelimit {
			timeReq = strconv.FormatInt(int64(r.TimelimitReq), 10)
			timeUsed = strconv.FormatInt(int64(r.TimelimitUsed), 10)
		}
		if r.HaveCpu {
			idealCpu = formatFloat(r.IdealCpuTime)
			cpuTime = formatFloat(r.CpuTime)
		}
		rows[i] = []string{
			common.DateString(r.Date),
			r.Account,
			r.Username,
			strconv.Itoa(r.JobCount),
			memReq, memUsed, timeReq, timeUsed, idealCpu, cpuTime,
		}
	}
	writeFixed(out, reportHeader, rows)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// writeFixed prints a fixed-width table: every column as wide as its widest entry including
// the header, two blanks between columns, trailing blanks trimmed.
func writeFixed(out io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for col, h := range header {
		widths[col] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for col, cell := range row {
			widths[col] = max(widths[col], utf8.RuneCountInString(cell))
		}
	}

	var s strings.Builder
	writeRow := func(row []string) {
		s.Reset()
		for col, cell := range row {
			s.WriteString(cell)
			for n := widths[col] - utf8.RuneCountInString(cell) + 2; n > 0; n-- {
				s.WriteByte(' ')
			}
		}
		fmt.Fprintln(out, strings.TrimRight(s.String(), " "))
	}
	writeRow(header)
	for _, row := range rows {
		writeRow(row)
	}
}

func commandLine(args []string) (
	configFilename string,
	query db.Query,
	jsonOutput bool,
	err error,
) {
	opts := flag.NewFlagSet(os.Args[0]+" report", flag.ContinueOnError)
	opts.StringVar(&configFilename, "config", common.DefaultConfigPath(),
		"Read configuration from `filename`")
	var dateOpt, fromOpt, toOpt string
	opts.StringVar(&dateOpt, "date", "",
		"Report a single `date`, YYYY-MM-DD or relative (default 1d)")
	opts.StringVar(&fromOpt, "from", "", "Start of the `date` range, inclusive")
	opts.StringVar(&toOpt, "to", "", "End of the `date` range, inclusive")
	opts.StringVar(&query.Account, "account", "", "Only records for this `account`")
	opts.StringVar(&query.User, "user", "", "Only records for this `user`")
	opts.BoolVar(&jsonOutput, "json", false, "Format output as JSON")
	opts.BoolVar(&verbose, "v", false, "Verbose (debugging) output")
	err = opts.Parse(args)
	if err == flag.ErrHelp {
		os.Exit(0)
	}
	if err != nil {
		return
	}
	query.From, query.To, err = common.DateRange(dateOpt, fromOpt, toOpt)
	if err != nil {
		err = fmt.Errorf("Bad date selection: %w", err)
	}
	return
}
