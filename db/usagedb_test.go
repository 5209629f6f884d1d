package db

import (
	"strings"
	"testing"
	"time"

	"github.com/chance-nelson/jobstats-db/common"
)

func TestConnString(t *testing.T) {
	s := connString(common.DatabaseConfig{
		Host:     "db.example.com",
		Port:     "5433",
		User:     "jobstats",
		Password: "hunter2",
		Database: "jobstats",
		SslMode:  "require",
	})
	expect := "host=db.example.com port=5433 user=jobstats password=hunter2 " +
		"dbname=jobstats sslmode=require"
	if s != expect {
		t.Fatal(s)
	}

	// Empty settings are omitted so defaults apply.
	s = connString(common.DatabaseConfig{User: "jobstats", Database: "jobstats"})
	if s != "user=jobstats dbname=jobstats" {
		t.Fatal(s)
	}
}

func TestBuildUsageQuery(t *testing.T) {
	from := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 5, 7, 0, 0, 0, 0, time.UTC)

	qstr, args := buildUsageQuery(Query{From: from, To: to})
	if !strings.Contains(qstr, "date >= $1 and date <= $2") {
		t.Fatal(qstr)
	}
	if strings.Contains(qstr, "account=") || strings.Contains(qstr, "username=") {
		t.Fatal(qstr)
	}
	if len(args) != 2 {
		t.Fatal(args)
	}

	qstr, args = buildUsageQuery(Query{From: from, To: to, Account: "phys"})
	if !strings.Contains(qstr, "account=$3") {
		t.Fatal(qstr)
	}
	if len(args) != 3 || args[2] != "phys" {
		t.Fatal(args)
	}

	qstr, args = buildUsageQuery(Query{From: from, To: to, Account: "phys", User: "alice"})
	if !strings.Contains(qstr, "account=$3") || !strings.Contains(qstr, "username=$4") {
		t.Fatal(qstr)
	}
	if len(args) != 4 || args[3] != "alice" {
		t.Fatal(args)
	}

	// Without an account filter the user filter takes the next placeholder.
	qstr, args = buildUsageQuery(Query{From: from, To: to, User: "alice"})
	if !strings.Contains(qstr, "username=$3") {
		t.Fatal(qstr)
	}
	if len(args) != 3 {
		t.Fatal(args)
	}
}

func TestMaybeBoxes(t *testing.T) {
	if maybeFloat(false, 3.5) != nil {
		t.Fatal("Absent float should box as nil")
	}
	if v, ok := maybeFloat(true, 3.5).(float64); !ok || v != 3.5 {
		t.Fatal("Present float should box as itself")
	}
	if maybeInt(false, 3.5) != nil {
		t.Fatal("Absent int should box as nil")
	}
	// Truncation to whole seconds happens here.
	if v, ok := maybeInt(true, 5400.75).(int64); !ok || v != 5400 {
		t.Fatal("Present int should box as truncated int64")
	}
}
