// Package server hosts the Fiber HTTP service and the request middleware
// chain that turns inbound S3-style requests into object operations. The
// router derives an object key from the path and a read/write intent from
// the Host header, the guard gates write paths, and the handler dispatches
// per method: reads go through the lazy-loading resolver, writes and
// deletes hit the local store directly and emit best-effort sync events.
// Errors always leave this package as the minimal S3 XML envelope; keep
// exports narrow and accept explicit dependencies.
package server
