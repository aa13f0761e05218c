// Package memory contains concrete conversation stores. The store interface
// resides in the core package; depend on core.MemoryStore in your code and
// select an implementation (in-memory here, SQLite in memory/sqlite, Redis
// in memory/redis) at wiring time.
package memory
