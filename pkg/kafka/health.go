package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// BrokerChecker returns a health check that succeeds when at least one of
// brokers accepts a connection.
func BrokerChecker(brokers []string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if len(brokers) == 0 {
			return errors.New("no kafka brokers configured")
		}
		var errs []error
		for _, b := range brokers {
			conn, err := kafka.DialContext(ctx, "tcp", b)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", b, err))
				continue
			}
			_ = conn.Close()
			return nil
		}
		return fmt.Errorf("kafka unreachable: %w", errors.Join(errs...))
	}
}
