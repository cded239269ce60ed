// Package internal contains private implementation details of the downloader.
// These packages are not intended for external use and may change without notice.
//
// The internal packages are organized as follows:
//   - operations: The download operation (destination checks, strategies, result)
//   - storage: Backends over the AWS SDK and minio-go
//   - transfer: Concurrent ranged fetches for backends without a managed transfer
//   - progress: Concurrency-safe progress accounting and the console line
//   - validation: Input and destination validation
//   - pool: Reusable copy buffers
//   - config, cli, logger: The command-line front end
package internal
