// Daily slurm job accounting: collect per-user usage into postgres and get it back out.
//
// Run `jobstats-db help` for help.

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/chance-nelson/jobstats-db/collect"
	"github.com/chance-nelson/jobstats-db/common"
	"github.com/chance-nelson/jobstats-db/daemon"
	"github.com/chance-nelson/jobstats-db/report"
)

type command struct {
	help    string
	handler func(arg0 string, args []string) error
}

var commandSummary = "<verb> <option> ..."

var commands = map[string]command{
	"collect": command{
		"Sample slurm accounting data and store a day of usage records",
		collect.Collect,
	},
	"report": command{
		"Print stored usage records",
		report.Report,
	},
	"daemon": command{
		"Serve stored usage records over HTTP",
		daemon.Daemon,
	},
	"version": command{
		"Print the program version",
		version,
	},
}

func main() {
	if len(os.Args) < 2 {
		usage(1)
	}
	if entry, found := commands[os.Args[1]]; found {
		err := entry.handler(os.Args[0], os.Args[2:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "JOBSTATS-DB FAILED\n%v\n\n", err)
			usage(1)
		}
	} else if os.Args[1] == "help" {
		usage(0)
	} else {
		usage(1)
	}
}

func version(arg0 string, args []string) error {
	fmt.Println(common.Version)
	return nil
}

func usage(code int) {
	out := os.Stdout
	if code != 0 {
		out = os.Stderr
	}
	fmt.Fprintf(out, "Usage of %s:\n\n  %s %s\n\n", os.Args[0], os.Args[0], commandSummary)
	fmt.Fprintf(out, "where <verb> is one of\n\n")
	entries := make(sort.StringSlice, 0)
	for name, command := range commands {
		entries = append(entries, "  "+name+"\n    "+command.help)
	}
	sort.Sort(entries)
	for _, e := range entries {
		fmt.Fprintln(out, e)
	}
	fmt.Fprintln(out, "\nAll verbs accept -h to print verb-specific help.")
	os.Exit(code)
}
