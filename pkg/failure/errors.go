package failure

import "errors"

type Severity int

// lifecycle control flow
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeverityRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

type ClassifiedError interface {
	error
	Severity() Severity
}

// SeverityOf reports the severity of the first ClassifiedError in err's chain.
// Unclassified errors are fatal.
func SeverityOf(err error) Severity {
	var classified ClassifiedError
	if errors.As(err, &classified) {
		return classified.Severity()
	}
	return SeverityFatal
}
