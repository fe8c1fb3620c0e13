package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

type kafkaSink struct {
	producer  sarama.AsyncProducer
	topic     string
	service   string
	logChan   chan []byte
	wg        sync.WaitGroup
	quitChan  chan struct{}
	closeOnce sync.Once
}

// KafkaHandler ships JSON log entries to a Kafka topic asynchronously.
type KafkaHandler struct {
	*kafkaSink
	level slog.Leveler
	state attrState
}

// NewKafkaHandler dials the brokers and starts the shipping goroutines.
func NewKafkaHandler(brokers []string, topic, service string, bufferSize int, level slog.Leveler) (*KafkaHandler, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = false
	config.Producer.Return.Errors = true
	config.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create async producer: %w", err)
	}
	return NewKafkaHandlerWithProducer(producer, topic, service, bufferSize, level), nil
}

// NewKafkaHandlerWithProducer wraps an existing producer; the handler owns it from now on.
func NewKafkaHandlerWithProducer(producer sarama.AsyncProducer, topic, service string, bufferSize int, level slog.Leveler) *KafkaHandler {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	sink := &kafkaSink{
		producer: producer,
		topic:    topic,
		service:  service,
		logChan:  make(chan []byte, bufferSize),
		quitChan: make(chan struct{}),
	}

	sink.wg.Add(2)
	go sink.processLogs()
	go sink.handleProducerErrors()

	return &KafkaHandler{kafkaSink: sink, level: level}
}

func (k *kafkaSink) send(payload []byte) {
	k.producer.Input() <- &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(k.service),
		Value: sarama.ByteEncoder(payload),
	}
}

func (k *kafkaSink) processLogs() {
	defer k.wg.Done()
	for {
		select {
		case payload := <-k.logChan:
			k.send(payload)
		case <-k.quitChan:
			for {
				select {
				case payload := <-k.logChan:
					k.send(payload)
				default:
					return
				}
			}
		}
	}
}

func (k *kafkaSink) handleProducerErrors() {
	defer k.wg.Done()
	for {
		select {
		case err, ok := <-k.producer.Errors():
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "failed to write log message to kafka: %v\n", err)
		case <-k.quitChan:
			return
		}
	}
}

func (k *KafkaHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= k.level.Level()
}

// Handle encodes the record right away and queues it; a full queue drops the entry.
func (k *KafkaHandler) Handle(ctx context.Context, record slog.Record) error {
	entry := map[string]any{
		"time":    record.Time.Format(time.RFC3339Nano),
		"level":   record.Level.String(),
		"msg":     record.Message,
		"service": k.service,
	}
	for _, f := range k.state.fields(record) {
		entry[f.Key] = f.Value.String()
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}

	select {
	case k.logChan <- payload:
	default:
		fmt.Fprintln(os.Stderr, "kafka log channel is full, dropping log message")
	}
	return nil
}

func (k *KafkaHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *k
	next.state = k.state.withAttrs(attrs)
	return &next
}

func (k *KafkaHandler) WithGroup(name string) slog.Handler {
	next := *k
	next.state = k.state.withGroup(name)
	return &next
}

// Close flushes queued entries and shuts the producer down.
func (k *KafkaHandler) Close() error {
	var err error
	k.closeOnce.Do(func() {
		close(k.quitChan)
		k.wg.Wait()
		if cerr := k.producer.Close(); cerr != nil {
			err = fmt.Errorf("failed to close producer: %w", cerr)
		}
	})
	return err
}
