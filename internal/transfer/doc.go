// Package transfer holds the concurrent transfer engines used when a storage
// backend has no managed transfer of its own.
package transfer
