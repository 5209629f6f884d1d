// Postgres persistence for daily usage records.
//
// The schema is managed outside this program, typically by the site's provisioning.  Create it
// once with:
//
//   create table daily_usage (
//     username       text not null,
//     account        text not null,
//     date           date not null,
//     mem_req        double precision,
//     mem_used       double precision,
//     timelimit_req  bigint,
//     timelimit_used bigint,
//     ideal_cpu_time double precision,
//     cpu_time       double precision,
//     jobs           integer not null,
//     primary key (username, account, date)
//   )
//
// The metric columns come in pairs and a pair is NULL when no job contributed to that group on
// that day.  Writers insert-or-ignore on the primary key, so the first writer of a (username,
// account, date) wins and rerunning a collection for a day is harmless.
//
// Memory is in whatever unit slurm reported, normally MB; the time columns are seconds, with the
// time limits truncated to whole seconds.

package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/chance-nelson/jobstats-db/common"
	"github.com/chance-nelson/jobstats-db/slurm"
)

type UsageDB struct {
	// The connection is not thread-safe.  Queries go through the query method, which serializes
	// access; the write side runs in a single goroutine and uses the connection directly.
	connection *pgx.Conn
	lock       sync.Mutex
}

// Open connects to the database described by the configuration.  Callers own the connection and
// must Close it; the collector opens it only for the duration of the store phase.
func Open(ctx context.Context, cfg common.DatabaseConfig) (*UsageDB, error) {
	connection, err := pgx.Connect(ctx, connString(cfg))
	if err != nil {
		return nil, errors.Join(errors.New("Unable to connect to database"), err)
	}
	return &UsageDB{connection: connection}, nil
}

func (d *UsageDB) Close(ctx context.Context) error {
	return d.connection.Close(ctx)
}

// connString builds a keyword/value conninfo string, empty settings omitted so that libpq-style
// defaults and the password file still apply.
func connString(cfg common.DatabaseConfig) string {
	settings := make([]string, 0, 6)
	add := func(key, value string) {
		if value != "" {
			settings = append(settings, key+"="+value)
		}
	}
	add("host", cfg.Host)
	add("port", cfg.Port)
	add("user", cfg.User)
	add("password", cfg.Password)
	add("dbname", cfg.Database)
	add("sslmode", cfg.SslMode)
	return strings.Join(settings, " ")
}

func (d *UsageDB) query(ctx context.Context, q string, args ...any) (pgx.Rows, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.connection.Query(ctx, q, args...)
}

// A UsageTx is a transaction inserting usage records.  The caller commits after all records of a
// run have been inserted, so a run hits the table atomically or not at all.
type UsageTx struct {
	tx pgx.Tx
}

func (d *UsageDB) Begin(ctx context.Context) (*UsageTx, error) {
	tx, err := d.connection.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &UsageTx{tx}, nil
}

const insertUsageStmt = `insert into daily_usage(
  username, account, date, mem_req, mem_used, timelimit_req, timelimit_used,
  ideal_cpu_time, cpu_time, jobs)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
on conflict (username, account, date) do nothing`

// Insert adds one record, or does nothing if the day is already recorded for the user and
// account.  Returns whether a row was actually inserted.
func (t *UsageTx) Insert(ctx context.Context, r *slurm.UsageRecord) (bool, error) {
	tag, err := t.tx.Exec(
		ctx,
		insertUsageStmt,
		r.Username,
		r.Account,
		r.Date,
		maybeFloat(r.HaveMemory, r.MemReq),
		maybeFloat(r.HaveMemory, r.MemUsed),
		maybeInt(r.HaveTimelimit, r.TimelimitReq),
		maybeInt(r.HaveTimelimit, r.TimelimitUsed),
		maybeFloat(r.HaveCpu, r.IdealCpuTime),
		maybeFloat(r.HaveCpu, r.CpuTime),
		r.JobCount,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *UsageTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback after a successful Commit is a no-op, so it is always safe to defer.
func (t *UsageTx) Rollback(ctx context.Context) {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		common.Log.Warningf("Transaction rollback failed: %v", err)
	}
}

func maybeFloat(have bool, v float64) any {
	if !have {
		return nil
	}
	return v
}

func maybeInt(have bool, v float64) any {
	if !have {
		return nil
	}
	return int64(v)
}

// A Query selects usage records by inclusive day range with optional account and user filters,
// the empty string meaning "any".
type Query struct {
	From    time.Time
	To      time.Time
	Account string
	User    string
}

func buildUsageQuery(q Query) (string, []any) {
	qstr := "select username, account, date, mem_req, mem_used, timelimit_req, " +
		"timelimit_used, ideal_cpu_time, cpu_time, jobs from daily_usage " +
		"where date >= $1 and date <= $2"
	args := []any{q.From, q.To}
	if q.Account != "" {
		args = append(args, q.Account)
		qstr += fmt.Sprintf(" and account=$%d", len(args))
	}
	if q.User != "" {
		args = append(args, q.User)
		qstr += fmt.Sprintf(" and username=$%d", len(args))
	}
	qstr += " order by date, account, username"
	return qstr, args
}

// ReadUsage returns the stored records matching the query, oldest first.
func (d *UsageDB) ReadUsage(ctx context.Context, q Query) ([]*slurm.UsageRecord, error) {
	var (
		username, account           string
		date                        time.Time
		memReq, memUsed             pgtype.Float8
		timelimitReq, timelimitUsed pgtype.Int8
		idealCpuTime, cpuTime       pgtype.Float8
		jobs                        int
	)

	// Column order as in the schema and KEEP THESE TWO LISTS COMPLETELY IN SYNC OR YOU WILL
	// BE SORRY!  The select list lives in buildUsageQuery.
	boxes := []any{
		&username, &account, &date, &memReq, &memUsed, &timelimitReq,
		&timelimitUsed, &idealCpuTime, &cpuTime, &jobs,
	}

	unbox := func() *slurm.UsageRecord {
		r := &slurm.UsageRecord{
			Username: username,
			Account:  account,
			Date:     date.UTC(),
			JobCount: jobs,
		}
		if memReq.Valid && memUsed.Valid {
			r.HaveMemory = true
			r.MemReq = memReq.Float64
			r.MemUsed = memUsed.Float64
		}
		if timelimitReq.Valid && timelimitUsed.Valid {
			r.HaveTimelimit = true
			r.TimelimitReq = float64(timelimitReq.Int64)
			r.TimelimitUsed = float64(timelimitUsed.Int64)
		}
		if idealCpuTime.Valid && cpuTime.Valid {
			r.HaveCpu = true
			r.IdealCpuTime = idealCpuTime.Float64
			r.CpuTime = cpuTime.Float64
		}
		return r
	}

	qstr, args := buildUsageQuery(q)
	rows, err := d.query(ctx, qstr, args...)
	if err != nil {
		return nil, err
	}
	records := make([]*slurm.UsageRecord, 0)
	_, err = pgx.ForEachRow(rows, boxes, func() error {
		records = append(records, unbox())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReadAccounts returns the accounts that have at least one stored record, sorted.
func (d *UsageDB) ReadAccounts(ctx context.Context) ([]string, error) {
	rows, err := d.query(ctx, "select distinct account from daily_usage order by account")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
