/*
Package observability turns playback lifecycle hooks into Prometheus metrics
and structured logs, and composes several hook sets into one.
*/
package observability
