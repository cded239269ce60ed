// Package validation provides input and destination checks that run before
// any request is sent to the storage service.
package validation
