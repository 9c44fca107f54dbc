package metadata

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

/*
Metadata Collected
- Fetch timings, HTTP status codes, transferred sizes
- Cache lookups (hit / miss) per partition
- Partition lifecycle (populated, deleted, kept)
- Classified errors

Metadata is write-only.
No component may read metadata to influence install, activation or response decisions.
*/

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		sizeByte uint64,
	)

	RecordCacheLookup(partition string, requestKey string, outcome LookupOutcome)

	RecordPartition(event PartitionEvent, partition string, entries int)

	RecordLifecycle(phase LifecyclePhase, version string)
}

// Recorder writes metadata events as structured log records.
// Fetches and lookups are debug-level, partition transitions are info-level.
type Recorder struct {
	logger *log.Logger
}

func NewRecorder(logger *log.Logger) *Recorder {
	return &Recorder{
		logger: logger,
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	keyvals := []interface{}{
		"observed_at", observedAt.UTC().Format(time.RFC3339Nano),
		"package", packageName,
		"action", action,
		"cause", cause.String(),
		"details", details,
	}
	for _, attr := range attrs {
		keyvals = append(keyvals, string(attr.Key), attr.Value)
	}
	r.logger.Error("operation failed", keyvals...)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	sizeByte uint64,
) {
	r.logger.Debug("fetch",
		"url", fetchUrl,
		"status", httpStatus,
		"duration", duration,
		"content_type", contentType,
		"size", humanize.Bytes(sizeByte),
	)
}

func (r *Recorder) RecordCacheLookup(partition string, requestKey string, outcome LookupOutcome) {
	r.logger.Debug("cache lookup",
		"partition", partition,
		"key", requestKey,
		"outcome", string(outcome),
	)
}

func (r *Recorder) RecordPartition(event PartitionEvent, partition string, entries int) {
	r.logger.Info("partition "+string(event),
		"partition", partition,
		"entries", entries,
	)
}

func (r *Recorder) RecordLifecycle(phase LifecyclePhase, version string) {
	if phase == PhaseInstallFailed {
		r.logger.Warn("agent "+string(phase), "version", version)
		return
	}
	r.logger.Info("agent "+string(phase), "version", version)
}

// NoopSink implements MetadataSink but does nothing.
// Tests inject it to keep metadata orthogonal to the behavior under test.
type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	sizeByte uint64,
) {
}

func (n *NoopSink) RecordCacheLookup(partition string, requestKey string, outcome LookupOutcome) {}

func (n *NoopSink) RecordPartition(event PartitionEvent, partition string, entries int) {}

func (n *NoopSink) RecordLifecycle(phase LifecyclePhase, version string) {}
