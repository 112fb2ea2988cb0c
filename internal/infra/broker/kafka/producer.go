package kafka

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/IBM/sarama"
)

const clientID = "hoteldesk"

// Producer publishes outbox envelopes. Keys are aggregate ids so every change of
// one room or reservation lands on the same partition in order.
type Producer struct {
	sync   sarama.SyncProducer
	logger *slog.Logger
}

func NewProducer(brokers []string, cfg *sarama.Config, logger *slog.Logger) (*Producer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	sync, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Producer{sync: sync, logger: logger}, nil
}

func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Headers:   recordHeaders(headers),
		Timestamp: time.Now().UTC(),
	}
	partition, offset, err := p.sync.SendMessage(msg)
	if err != nil {
		return err
	}
	if p.logger != nil {
		p.logger.Debug("kafka message published", "topic", topic, "key", key, "partition", partition, "offset", offset)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.sync == nil {
		return nil
	}
	return p.sync.Close()
}

func recordHeaders(headers map[string]string) []sarama.RecordHeader {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	hs := make([]sarama.RecordHeader, 0, len(keys))
	for _, k := range keys {
		hs = append(hs, sarama.RecordHeader{Key: []byte(k), Value: []byte(headers[k])})
	}
	return hs
}
