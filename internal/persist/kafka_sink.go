package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/Shaytris/Obsidian/internal/domain"
	"github.com/Shaytris/Obsidian/pkg/log"
)

// KafkaSink publishes accepted chat messages to a topic for downstream
// consumers (archival, search indexing). Keyed by channel so one
// channel's messages stay on one partition.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
}

func NewKafkaSink(brokers, topic string, partitions int) (*KafkaSink, error) {
	if err := ensureTopic(brokers, topic, partitions); err != nil {
		log.L().Warn().Str("topic", topic).Err(err).Msg("failed to ensure topic, it may already exist")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	s := &KafkaSink{
		producer: p,
		topic:    topic,
		doneCh:   make(chan struct{}),
	}

	go s.deliveryReportHandler()

	return s, nil
}

func ensureTopic(brokers, topic string, partitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{
		{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		},
	})
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}

	return nil
}

func (s *KafkaSink) deliveryReportHandler() {
	for e := range s.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				log.L().Error().Err(ev.TopicPartition.Error).Msg("kafka delivery failed")
			}
		}
	}
	close(s.doneCh)
}

func (s *KafkaSink) Save(ctx context.Context, msg *domain.PersistedMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = s.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &s.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(msg.Channel),
		Value: value,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	return nil
}

func (s *KafkaSink) Close() error {
	s.producer.Flush(5000)
	s.producer.Close()
	<-s.doneCh
	return nil
}
