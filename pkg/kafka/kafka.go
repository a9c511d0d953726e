package kafka

import (
	"github.com/IBM/sarama"
)

type Config struct {
	Addrs      []string `envconfig:"KAFKA_ADDRS" default:"localhost:9092"`
	AuditTopic string   `envconfig:"KAFKA_AUDIT_TOPIC" default:"circulation-audit"`
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}

// NewAsyncProducer is used for fire-and-forget sinks (audit logging):
// delivery failures surface on Errors() and must never block the caller.
func NewAsyncProducer(cfg Config) (sarama.AsyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForLocal
	defaultCfg.Producer.Return.Errors = true

	return sarama.NewAsyncProducer(cfg.Addrs, defaultCfg)
}
