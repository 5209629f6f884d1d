// Configuration file handling.
//
// The configuration lives in an ini file, by default $HOME/.jobstats-db, overridable per-verb with
// -config.  Values are subject to $VAR environment expansion so that credentials can be kept out of
// the file proper.  Sections and keys, defaults in parentheses:
//
//   [database]
//   host      (localhost)
//   port      (5432)
//   user      required by every verb that touches the database
//   password  empty is allowed for `trust` authentication setups
//   database  (jobstats)
//   sslmode   passed through to the driver
//
//   [slurm]
//   sshare    (sshare, ie PATH lookup)
//   sacct     (sacct)
//
//   [kafka]
//   broker    required only when collect runs with -kafka
//   topic     (jobstats.usage)
//
//   [daemon]
//   port      (8088)

package common

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"

	ini "github.com/lars-t-hansen/ini"
)

// MT: Constant after initialization
var (
	p = ini.NewParser()

	dbSection  = p.AddSection("database")
	dbHost     = dbSection.AddString("host")
	dbPort     = dbSection.AddString("port")
	dbUser     = dbSection.AddString("user")
	dbPassword = dbSection.AddString("password")
	dbDatabase = dbSection.AddString("database")
	dbSslMode  = dbSection.AddString("sslmode")

	slurmSection = p.AddSection("slurm")
	slurmSshare  = slurmSection.AddString("sshare")
	slurmSacct   = slurmSection.AddString("sacct")

	kafkaSection = p.AddSection("kafka")
	kafkaBroker  = kafkaSection.AddString("broker")
	kafkaTopic   = kafkaSection.AddString("topic")

	daemonSection = p.AddSection("daemon")
	daemonPort    = daemonSection.AddString("port")
)

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SslMode  string
}

type SlurmConfig struct {
	Sshare string
	Sacct  string
}

type KafkaConfig struct {
	Broker string
	Topic  string
}

type DaemonConfig struct {
	Port int
}

type Configuration struct {
	Database DatabaseConfig
	Slurm    SlurmConfig
	Kafka    KafkaConfig
	Daemon   DaemonConfig
}

// DefaultConfigPath is the config file read when -config is not given.  Empty if $HOME is not set.
func DefaultConfigPath() string {
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	return path.Join(path.Clean(home), ".jobstats-db")
}

func ReadConfiguration(filename string) (*Configuration, error) {
	if filename == "" {
		return nil, errors.New("No configuration file ($HOME not set and -config not given)")
	}
	input, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("While opening configuration %s: %w", filename, err)
	}
	defer input.Close()
	cfg, err := ParseConfiguration(input)
	if err != nil {
		return nil, fmt.Errorf("While reading configuration %s: %w", filename, err)
	}
	return cfg, nil
}

func ParseConfiguration(input io.Reader) (*Configuration, error) {
	store, err := p.Parse(input)
	if err != nil {
		return nil, err
	}
	cfg := &Configuration{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			Database: "jobstats",
		},
		Slurm: SlurmConfig{
			Sshare: "sshare",
			Sacct:  "sacct",
		},
		Kafka: KafkaConfig{
			Topic: "jobstats.usage",
		},
		Daemon: DaemonConfig{
			Port: 8088,
		},
	}
	applyString(&cfg.Database.Host, dbHost, store)
	applyString(&cfg.Database.Port, dbPort, store)
	applyString(&cfg.Database.User, dbUser, store)
	applyString(&cfg.Database.Password, dbPassword, store)
	applyString(&cfg.Database.Database, dbDatabase, store)
	applyString(&cfg.Database.SslMode, dbSslMode, store)
	applyString(&cfg.Slurm.Sshare, slurmSshare, store)
	applyString(&cfg.Slurm.Sacct, slurmSacct, store)
	applyString(&cfg.Kafka.Broker, kafkaBroker, store)
	applyString(&cfg.Kafka.Topic, kafkaTopic, store)
	if daemonPort.Present(store) {
		port, err := strconv.Atoi(os.ExpandEnv(daemonPort.StringVal(store)))
		if err != nil || port <= 0 || port > 65535 {
			return nil, errors.New("Bad daemon.port in configuration")
		}
		cfg.Daemon.Port = port
	}
	return cfg, nil
}

func applyString(sp *string, f *ini.Field, store *ini.Store) {
	if f.Present(store) {
		*sp = os.ExpandEnv(f.StringVal(store))
	}
}

// CheckDatabase verifies the settings every database-touching verb needs.  The password may
// legitimately be empty only for `trust` authentication setups, so only the user is required.
func (cfg *Configuration) CheckDatabase() error {
	var e1, e2 error
	if cfg.Database.User == "" {
		e1 = errors.New("Missing database.user in configuration")
	}
	if cfg.Database.Database == "" {
		e2 = errors.New("Missing database.database in configuration")
	}
	return errors.Join(e1, e2)
}
