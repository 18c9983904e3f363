package core

// RuntimeConfig holds engine-level limits for a single compiled context.
type RuntimeConfig struct {
	MemoryLimitMB int // heap limit, 0 for the engine default
}
