package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oksasatya/bar-occupancy/internal/application"
	"github.com/oksasatya/bar-occupancy/pkg/helpers"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Upload the current bar list as JSON to Google Cloud Storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := a.v.GetString(cfgKeyGCSBucket)
			if bucket == "" {
				return errors.New("snapshot needs --gcs-bucket (or BARWATCH_GCS_BUCKET)")
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			gcs, err := helpers.NewGCSClient(ctx, a.v.GetString(cfgKeyGCSCredentials))
			if err != nil {
				return fmt.Errorf("gcs client: %w", err)
			}
			defer func() { _ = gcs.Close() }()

			svc := &application.SnapshotService{
				Source:   c,
				Uploader: helpers.GCSUploader{Client: gcs, Bucket: bucket},
				Prefix:   a.v.GetString(cfgKeySnapshotPrefix),
			}
			url, err := svc.Export(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("gcs-bucket", "", "destination bucket")
	f.String("gcs-credentials", "", "service account JSON (default: application default credentials)")
	f.String("snapshot-prefix", "snapshots", "object prefix")
	_ = a.v.BindPFlag(cfgKeyGCSBucket, f.Lookup("gcs-bucket"))
	_ = a.v.BindPFlag(cfgKeyGCSCredentials, f.Lookup("gcs-credentials"))
	_ = a.v.BindPFlag(cfgKeySnapshotPrefix, f.Lookup("snapshot-prefix"))
	return cmd
}
