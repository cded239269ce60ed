// Command s3download downloads a single S3 object to a local file.
//
// Every setting can be given as a flag or an environment variable:
//
//	s3download -b my-bucket -k path/to/object.bin -o ./object.bin
//	S3_BUCKET_NAME=my-bucket S3_KEY_FILE=path/to/object.bin DOWNLOAD_TO_FILE=./object.bin s3download
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benms/download-s3-file/internal/cli"
	"github.com/benms/download-s3-file/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd, err := cli.NewRootCmd(func(cfg config.Config) error {
		return cli.Download(ctx, cfg, os.Stdout, os.Stderr)
	})
	if err == nil {
		err = cmd.ExecuteContext(ctx)
	}
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}
