// Package resource bounds the work archive writers put on their backing stores:
// the number of concurrent uploads and the upload throughput.
package resource
