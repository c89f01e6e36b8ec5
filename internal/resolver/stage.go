package resolver

type Stage int

const (
	StageCached Stage = iota
	StageDedicated
	StageRetrieval
	StageGenerative
	StageResolved
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageCached:
		return "CACHED"
	case StageDedicated:
		return "TRY_DEDICATED"
	case StageRetrieval:
		return "TRY_RETRIEVAL"
	case StageGenerative:
		return "TRY_GENERATIVE"
	case StageResolved:
		return "RESOLVED"
	case StageFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Outcome tells apart the ways a resolution can end. The cache only keeps
// the value, so an empty value read back from it is always OutcomeEmpty.
type Outcome int

const (
	// OutcomeResolved means a source produced a value.
	OutcomeResolved Outcome = iota
	// OutcomeFiltered means every source came back empty and at least one
	// answer was dropped for containing a no-answer marker.
	OutcomeFiltered
	// OutcomeExhausted means every source came back empty.
	OutcomeExhausted
	// OutcomeEmpty is an empty value served from the cache.
	OutcomeEmpty
	// OutcomeFailed means the last source errored. Nothing was cached.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeFiltered:
		return "filtered"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Attempt is one source consulted during a resolution.
type Attempt struct {
	Stage  Stage
	Source string
	Err    error
	// Filtered is set when the answer contained a no-answer marker.
	Filtered bool
	Empty    bool
}
