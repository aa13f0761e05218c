// Package artifact contains concrete implementations of core.ArtifactStore,
// the publisher used by workflows to turn rendered documents into shareable
// locators.
//
// The interface lives in the core package to avoid dependency cycles.
// Callers should depend on core.ArtifactStore so in-memory (this package)
// and object storage (artifact/minio) backends can be swapped at wiring
// time.
package artifact
