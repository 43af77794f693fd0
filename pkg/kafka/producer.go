package kafka

import (
	"fmt"
	"log"

	"github.com/IBM/sarama"
)

// ProducerConfig carries the broker list and delivery settings for the
// queue lifecycle event producer.
type ProducerConfig struct {
	Brokers      []string
	RetryMax     int
	RequiredAcks int
}

// NewProducer builds a synchronous producer. Sends block until the broker
// acks, so a failed publish surfaces at the call site and the service can
// log it against the operation that caused it.
func NewProducer(cfg ProducerConfig) (sarama.SyncProducer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.RequiredAcks(cfg.RequiredAcks)
	saramaCfg.Producer.Retry.Max = cfg.RetryMax
	saramaCfg.Producer.Return.Successes = true

	prod, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create lifecycle event producer: %w", err)
	}

	log.Printf("Lifecycle event producer connected to brokers: %v\n", cfg.Brokers)

	return prod, nil
}
