package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"condo/internal/condominium/models"
	"condo/internal/events"
	"condo/internal/platform/redis"
)

func eventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect published governance events",
	}
	cmd.AddCommand(tailEventsCommand())
	return cmd
}

func tailEventsCommand() *cobra.Command {
	var source, group string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print events as JSON lines until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd.Context())
			log := commonRun(cfg)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			enc := json.NewEncoder(cmd.OutOrStdout())
			emit := func(e models.Event) {
				if err := enc.Encode(e); err != nil {
					log.Warn("failed to print event", "error", err)
				}
			}

			switch source {
			case "redis":
				rdb, err := redis.New(ctx, cfg.Redis)
				if err != nil {
					return err
				}
				if rdb == nil {
					return errors.New("CONDO_REDIS_URL is not set")
				}
				defer rdb.Close()
				return ignoreCanceled(events.NewRedisPublisher(rdb.Client, events.DefaultRedisChannel).Subscribe(ctx, log, emit))
			case "kafka":
				if len(cfg.Kafka.Brokers) == 0 {
					return errors.New("CONDO_KAFKA_BROKERS is not set")
				}
				return ignoreCanceled(events.ConsumeKafka(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, group, log, emit))
			default:
				return fmt.Errorf("unknown source %q: want redis or kafka", source)
			}
		},
	}
	cmd.Flags().StringVar(&source, "source", "redis", "event source: redis or kafka")
	cmd.Flags().StringVar(&group, "group", "condo-tail", "kafka consumer group")
	return cmd
}

// ignoreCanceled treats an interrupt as a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
