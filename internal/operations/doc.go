// Package operations contains the object operations behind the public client.
package operations
