package metadata

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, reporting).

Rules:
  - ErrorCause MUST NOT influence control flow.
  - ErrorCause MUST NOT be used for install, activation or response decisions.
  - Packages MAY map their local errors to ErrorCause, but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

Meaning:
  - The failure does not map cleanly to any known category.

# CauseNetworkFailure

Meaning:
  - Failure caused by network transport or origin availability.

Examples:
  - TCP timeouts, DNS failures, connection resets
  - Body read aborted mid-stream

# CauseOriginRejected

Meaning:
  - The origin answered, but not with a success status, where one was required.

Examples:
  - A manifest entry answered 404 during precache

# CauseStorageFailure

Meaning:
  - Failure while reading or writing a cache partition.

Examples:
  - SQLite write errors
  - Corrupt stored body

# CauseInvariantViolation

Meaning:
  - A system-level invariant was violated.

Examples:
  - Duplicate manifest entries
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CauseOriginRejected
	CauseStorageFailure
	CauseInvariantViolation
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CauseOriginRejected:
		return "origin_rejected"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// LookupOutcome is the result of a cache-first lookup.
type LookupOutcome string

const (
	LookupHit  LookupOutcome = "hit"
	LookupMiss LookupOutcome = "miss"
)

// PartitionEvent names a partition lifecycle transition.
type PartitionEvent string

const (
	PartitionPopulated PartitionEvent = "populated"
	PartitionDeleted   PartitionEvent = "deleted"
	PartitionKept      PartitionEvent = "kept"
)

// LifecyclePhase names a transition of an agent version in the host.
type LifecyclePhase string

const (
	PhaseInstalled     LifecyclePhase = "installed"
	PhaseInstallFailed LifecyclePhase = "install failed"
	PhaseWaiting       LifecyclePhase = "waiting"
	PhaseActivated     LifecyclePhase = "activated"
)

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL        AttributeKey = "url"
	AttrMethod     AttributeKey = "method"
	AttrPartition  AttributeKey = "partition"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrVersion    AttributeKey = "version"
	AttrMessage    AttributeKey = "message"
)
