// Package pool provides reusable copy buffers.
//
// Downloads move every byte through a buffer between the response body and
// the destination file. Streaming copies and ranged part workers borrow those
// buffers from here instead of allocating one per request.
package pool
