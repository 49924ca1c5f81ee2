package cmd

import (
	"github.com/spf13/cobra"

	"github.com/askiada/splatctl/internal/publish"
)

func (a *app) publishCommand() *cobra.Command {
	var (
		bucket   string
		prefix   string
		endpoint string
		include  []string
	)

	cmd := &cobra.Command{
		Use:   "publish <model dir>",
		Short: "Upload a model output directory to S3-compatible storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Publish
			changed := cmd.Flags().Changed

			if changed("bucket") {
				cfg.Bucket = bucket
			}

			if changed("prefix") {
				cfg.Prefix = prefix
			}

			if changed("endpoint") {
				cfg.Endpoint = endpoint
			}

			if changed("include") {
				cfg.Include = include
			}

			client, err := publish.NewClient(publish.ClientConfig{
				Endpoint:  cfg.Endpoint,
				AccessKey: cfg.AccessKey,
				SecretKey: cfg.SecretKey,
				Region:    cfg.Region,
				Secure:    cfg.Secure,
			})
			if err != nil {
				return err
			}

			report, err := publish.Publish(cmd.Context(), client, publish.Options{
				Dir:     args[0],
				Bucket:  cfg.Bucket,
				Region:  cfg.Region,
				Prefix:  cfg.Prefix,
				Include: cfg.Include,
				Options: a.jobOptions("publish"),
			})
			if err != nil {
				return err
			}

			return a.report(report)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&bucket, "bucket", "", "destination bucket (default from config)")
	flags.StringVar(&prefix, "prefix", "", "object key prefix (default from config)")
	flags.StringVar(&endpoint, "endpoint", "", "storage endpoint host:port (default from config)")
	flags.StringSliceVar(&include, "include", nil, "doublestar patterns of the files to upload (default from config)")

	return cmd
}
