/*
Package session serialises access to a run's shared memory.

A Manager pairs a MemoryStore with per-run locks: an in-process mutex, reference
counted so idle runs leave nothing behind, plus an optional distributed lock for
deployments with several replicas.
*/
package session
