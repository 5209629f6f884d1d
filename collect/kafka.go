// Publishing collected records to kafka.
//
// The stream mirrors what was committed, for downstream consumers that want events rather than
// a table.  The database remains the source of truth: the caller reports publish failures as
// warnings and they never affect the run's exit code.

package collect

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/chance-nelson/jobstats-db/common"
	"github.com/chance-nelson/jobstats-db/slurm"
)

// publishRecords sends every record to the configured topic, one json message per record,
// keyed by account so that one account's records land in one partition.
func publishRecords(
	ctx context.Context,
	cfg common.KafkaConfig,
	records []*slurm.UsageRecord,
) error {
	if len(records) == 0 {
		return nil
	}
	if cfg.Broker == "" {
		return errors.New("No kafka broker configured")
	}

	client, err := kgo.NewClient(kgo.SeedBrokers(cfg.Broker))
	if err != nil {
		return err
	}
	defer client.Close()

	recs := make([]*kgo.Record, 0, len(records))
	for _, r := range records {
		value, err := json.Marshal(r.JSON())
		if err != nil {
			return err
		}
		recs = append(recs, &kgo.Record{
			Topic: cfg.Topic,
			Key:   []byte(r.Account),
			Value: value,
		})
	}
	return client.ProduceSync(ctx, recs...).FirstErr()
}
