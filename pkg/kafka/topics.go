package kafka

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// EnsureTopics creates the marketplace topics on the cluster if they do not
// exist yet. Creation goes through the controller broker, which is the only
// broker that accepts CreateTopics requests.
func EnsureTopics(ctx context.Context, cfg *Config, topics []TopicConfig) error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("ensure topics: no brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("ensure topics: dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("ensure topics: resolve controller: %w", err)
	}

	controllerConn, err := kafka.DialContext(ctx, "tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("ensure topics: dial controller: %w", err)
	}
	defer controllerConn.Close()

	if err := controllerConn.CreateTopics(brokerTopicConfigs(topics)...); err != nil {
		return fmt.Errorf("ensure topics: create: %w", err)
	}
	return nil
}

func brokerTopicConfigs(topics []TopicConfig) []kafka.TopicConfig {
	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, t := range topics {
		configs = append(configs, kafka.TopicConfig{
			Topic:             t.Name,
			NumPartitions:     t.Partitions,
			ReplicationFactor: t.ReplicationFactor,
			ConfigEntries: []kafka.ConfigEntry{
				{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(t.RetentionMs, 10)},
			},
		})
	}
	return configs
}
