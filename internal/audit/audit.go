// Package audit ships every ledger mutation to the compliance sink.
// The contract is fire-and-forget: a failing sink never fails the
// ledger operation that produced the event.
package audit

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

type Event struct {
	Mutation   string    `json:"mutation"`
	SessionUID string    `json:"sessionUid"`
	ResourceID string    `json:"resourceId"`
	PatronID   string    `json:"patronId"`
	State      string    `json:"state"`
	At         time.Time `json:"at"`
}

type Recorder interface {
	Record(ev Event)
}

type kafkaRecorder struct {
	producer sarama.AsyncProducer
	topic    string
	log      *zap.Logger
}

func NewRecorder(producer sarama.AsyncProducer, topic string, log *zap.Logger) Recorder {
	r := &kafkaRecorder{
		producer: producer,
		topic:    topic,
		log:      log.Named("audit"),
	}
	go r.drainErrors()
	return r
}

func (r *kafkaRecorder) Record(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		r.log.Error("marshal audit event", zap.Error(err))
		return
	}
	msg := &sarama.ProducerMessage{Topic: r.topic, Value: sarama.StringEncoder(data)}
	r.producer.Input() <- msg
}

func (r *kafkaRecorder) drainErrors() {
	for perr := range r.producer.Errors() {
		r.log.Error("audit publish failed", zap.Error(perr.Err))
	}
}

type nopRecorder struct{}

// NewNop is used when the audit broker is unreachable at startup and in
// tests; mutations proceed without compliance logging.
func NewNop() Recorder { return nopRecorder{} }

func (nopRecorder) Record(Event) {}
