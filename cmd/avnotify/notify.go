package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"avnotify/internal/scan"
	"avnotify/pkg/bootstrap"
	"avnotify/pkg/metrics"
	"avnotify/pkg/models"
)

type resultFlags struct {
	environment string
	bucket      string
	key         string
	status      string
}

func (f *resultFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.environment, "env", "", "Deployment environment tag (e.g. prod)")
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "S3 bucket of the scanned object")
	cmd.Flags().StringVar(&f.key, "key", "", "S3 key of the scanned object")
	cmd.Flags().StringVar(&f.status, "status", "", "Scan status: CLEAN or INFECTED")
	for _, name := range []string{"env", "bucket", "key", "status"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func (f *resultFlags) payload() models.ScanResultPayload {
	return models.ScanResultPayload{
		Environment: f.environment,
		Bucket:      f.bucket,
		Key:         f.key,
		Status:      f.status,
	}
}

func (f *resultFlags) result() (scan.Result, error) {
	status, err := scan.ParseStatus(f.status)
	if err != nil {
		return scan.Result{}, err
	}
	return scan.Result{
		Environment: f.environment,
		Bucket:      f.bucket,
		ObjectKey:   f.key,
		Status:      status,
	}, nil
}

func notifyCmd() *cobra.Command {
	flags := &resultFlags{}
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Report one scan result to Datadog and Slack and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := flags.result()
			if err != nil {
				return err
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			base := bootstrap.NewBase(cfg, log)
			if err := base.InitTracing("avnotify-cli"); err != nil {
				return err
			}
			defer base.Shutdown(context.Background(), nil)

			metrics.RegisterDispatchMetrics()
			svc, err := base.InitDispatcher()
			if err != nil {
				return err
			}

			outcome, err := svc.Dispatch(ctx, res)
			if err != nil {
				return err
			}

			if outcome.Notified {
				fmt.Fprintf(cmd.OutOrStdout(), "%s s3://%s/%s: slack responded %d\n", res.Status, res.Bucket, res.ObjectKey, outcome.StatusCode)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s s3://%s/%s: no chat notification sent\n", res.Status, res.Bucket, res.ObjectKey)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
