package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"avnotify/internal/constants"
	"avnotify/pkg/bootstrap"
	"avnotify/pkg/metrics"
	"avnotify/pkg/models"
)

func publishCmd() *cobra.Command {
	flags := &resultFlags{}
	var topic string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Enqueue one scan result on the Kafka input topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := flags.result(); err != nil {
				return err
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			if !cfg.Broker.Kafka.Enabled() {
				return fmt.Errorf("no kafka brokers configured, set BROKER_KAFKA_BROKERS")
			}
			if topic == "" {
				topic = cfg.Broker.Kafka.InputTopic
			}

			base := bootstrap.NewBase(cfg, log)
			if err := base.InitProducer(); err != nil {
				return err
			}
			defer base.Shutdown(context.Background(), nil)

			metrics.RegisterBrokerMetrics()

			ctx, cancel := context.WithTimeout(cmd.Context(), constants.KafkaWriteTimeout+5*time.Second)
			defer cancel()

			env := models.NewScanResultEnvelope("avnotify-cli", flags.payload())
			if err := base.Producer.Publish(ctx, topic, env); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "published %s to %s\n", env.ID, topic)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&topic, "topic", "", "Override the input topic")
	return cmd
}
