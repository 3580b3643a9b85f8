package ir

// Version constants recorded alongside persisted runs.
const (
	// IRVersion is the version of the canonical program/trace encoding.
	IRVersion = "1"

	// EngineVersion is the fracmul engine version.
	EngineVersion = "0.1.0"
)
