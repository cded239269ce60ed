// Package cli implements the s3download command.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/benms/download-s3-file/errors"
	"github.com/benms/download-s3-file/internal/config"
)

// NewRootCmd builds the root command. run receives the resolved configuration
// and its error becomes the command's error.
func NewRootCmd(run func(config.Config) error) (*cobra.Command, error) {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "s3download [flags]",
		Short: "Download a single object from an S3 bucket to a local file",
		Long: `s3download fetches one object from an S3 (or S3-compatible) bucket and
writes it to a local file, printing a progress line while bytes arrive.

Every flag can also be set through its environment variable; a flag given on
the command line wins. The destination, bucket and key are required.`,
		Args: func(cmd *cobra.Command, args []string) error {
			return usageError(cobra.NoArgs(cmd, args))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	return cmd, nil
}

func usageError(err error) error {
	if err == nil {
		return nil
	}
	return errors.NewError("parseArgs", fmt.Errorf("%w: %w", errors.ErrInvalidInput, err))
}
