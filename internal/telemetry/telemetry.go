package telemetry

import (
	"fmt"
)

// API is how components report problems worth an operator's attention.
// Tests swap in a Recorder to assert on what was reported.
type API interface {
	// ReportBroken reports a failure that should be addressed, such as a
	// source whose page layout changed.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that is not necessarily broken but may
	// be worth a look, such as a defaulted metadata field.
	ReportWarning(id string, params ...any)

	// ReportDebug reports detail that is only useful while diagnosing a run.
	ReportDebug(id string, params ...any)

	// ReportCount reports the current value of a counter. Counts are points
	// of data over time and should not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, like a sub-logger.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	if scoped, ok := inner.(ScopedAPI); ok {
		return ScopedAPI{namespace: scoped.namespace + ":" + namespace, inner: scoped.inner}
	}
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) id(id string) string {
	return fmt.Sprintf("%s:%s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.id(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.id(id), params...)
}

func (s ScopedAPI) ReportDebug(id string, params ...any) {
	s.inner.ReportDebug(s.id(id), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.id(id), count)
}
