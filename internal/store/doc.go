// Package store defines the local object store the proxy consults on every
// read and writes through on PUT/DELETE and lazy-load population. Two
// implementations share the Store interface: a file-backed store that keeps
// object bodies next to JSON metadata sidecars (temp file + rename for
// atomicity, per-key locks to serialize same-key writes), and an S3-backed
// store for deployments where the fast path is itself an S3-compatible
// service. Higher layers never touch the filesystem or SDK directly.
package store
