// Package download writes a single object to a local file.
//
// Two strategies are supported: a single streamed GET, and a managed transfer
// that fetches byte ranges concurrently and writes them in place. Both report
// incremental byte counts to an optional progress tracker, remove the partial
// file on failure and verify the final size against the object metadata.
package download
