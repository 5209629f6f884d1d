// Account and user enumeration.
//
// `sshare -a -P` prints one header line followed by one `|`-delimited record per association,
// account name in field 0 and user name in field 1.  The listing is hierarchical: account rows
// repeat once per member user, rollup rows carry the literal user "parent" or an empty user, and
// unassigned usage is collected under the reserved account "orphan".  Names are trimmed because
// sshare indents the hierarchy even in parsable mode.

package slurm

import (
	"bufio"
	"context"
	"errors"
	"strings"

	"github.com/chance-nelson/jobstats-db/common"
	"github.com/chance-nelson/jobstats-db/process"
)

const (
	orphanAccount = "orphan"
	parentUser    = "parent"
)

// ListAccounts returns the deduplicated account names in first-seen order, the sentinel "orphan"
// excluded.
func (t *Tools) ListAccounts(ctx context.Context) ([]string, error) {
	stdout, stderr, err := process.RunSubprocess(ctx, t.Sshare, []string{"-a", "-P"}, t.Timeout)
	if err != nil {
		return nil, err
	}
	if stderr != "" {
		common.Log.Warningf("sshare: %s", strings.TrimSpace(stderr))
	}
	return parseAccounts(stdout)
}

// ListUsers returns the users belonging to the account, rollup rows excluded.  An account without
// users yields an empty slice, not an error.
func (t *Tools) ListUsers(ctx context.Context, account string) ([]string, error) {
	stdout, stderr, err := process.RunSubprocess(ctx, t.Sshare, []string{"-a", "-P"}, t.Timeout)
	if err != nil {
		return nil, err
	}
	if stderr != "" {
		common.Log.Warningf("sshare: %s", strings.TrimSpace(stderr))
	}
	return parseUsers(stdout, account)
}

func parseAccounts(output string) ([]string, error) {
	scan := bufio.NewScanner(strings.NewReader(output))
	if !scan.Scan() {
		// Not even a header line: the oracle is broken, there is nothing to enumerate.
		return nil, errors.New("Empty sshare output")
	}
	accounts := make([]string, 0)
	seen := make(map[string]bool)
	for scan.Scan() {
		fields := strings.Split(scan.Text(), "|")
		if len(fields) < 2 {
			continue
		}
		account := strings.TrimSpace(fields[0])
		if account == "" || account == orphanAccount {
			continue
		}
		if !seen[account] {
			seen[account] = true
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

func parseUsers(output, account string) ([]string, error) {
	scan := bufio.NewScanner(strings.NewReader(output))
	if !scan.Scan() {
		return nil, errors.New("Empty sshare output")
	}
	users := make([]string, 0)
	for scan.Scan() {
		fields := strings.Split(scan.Text(), "|")
		if len(fields) < 2 {
			continue
		}
		if strings.TrimSpace(fields[0]) != account {
			continue
		}
		user := strings.TrimSpace(fields[1])
		if user == "" || user == parentUser {
			continue
		}
		users = append(users, user)
	}
	return users, nil
}
