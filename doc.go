// Package s3download downloads a single object from an S3 bucket to a local file.
// It wraps AWS SDK v2 (or minio-go for S3-compatible services) behind one
// configurable operation, with optional progress reporting.
//
// Two transfer strategies are available:
//   - stream: one GET, the body is copied to the file as it arrives (default)
//   - managed: the object is split into ranges fetched concurrently
//
// Progress is reported as cumulative byte counts to any s3types.ProgressTracker,
// and WithConsoleProgress renders a single, continuously overwritten line:
//
//	/tmp/report.pdf  1.50 MB/3.00 MB  (50.00%)
//
// Every failure is returned as a *errors.Error wrapping one of the sentinels in
// the errors package, so callers can branch with errors.Is.
//
// Example usage:
//
//	client, err := s3download.New(s3download.WithRegion("eu-west-1"))
//	if err != nil {
//	    return err
//	}
//
//	req, err := s3download.NewDownloadRequest("my-bucket", "reports/q3.pdf", "/tmp/q3.pdf")
//	if err != nil {
//	    return err
//	}
//
//	result, err := client.Download(ctx, req,
//	    s3download.WithStrategy(s3types.StrategyManaged),
//	    s3download.WithConsoleProgress(os.Stdout),
//	)
package s3download
