package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies orchestration-level failures so callers can
// pattern-match without parsing messages.
type ErrorKind string

const (
	// KindEmptyQuery means the query was empty or whitespace-only.
	KindEmptyQuery ErrorKind = "empty_query"
	// KindQueryTooLong means the query exceeded the length cap.
	KindQueryTooLong ErrorKind = "query_too_long"
	// KindLLMFailure means the model backend failed after its own retries.
	KindLLMFailure ErrorKind = "llm_failure"
	// KindRegistryFailure means the tool registry itself failed, as opposed
	// to a tool reporting an unsuccessful result.
	KindRegistryFailure ErrorKind = "registry_failure"
	// KindInterrupted means the workflow was interrupted mid-query.
	KindInterrupted ErrorKind = "interrupted"
	// KindInternal covers anything else escaping the loop.
	KindInternal ErrorKind = "internal"
)

// OrchestrationError is a structured engine-level failure. Tool execution
// failures are never OrchestrationErrors; they are recorded on the workflow
// and rendered into the conversation instead.
type OrchestrationError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *OrchestrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

func (e *OrchestrationError) Unwrap() error {
	return e.Err
}

// NewOrchestrationError creates a structured engine error.
func NewOrchestrationError(kind ErrorKind, op string, err error) *OrchestrationError {
	return &OrchestrationError{Kind: kind, Op: op, Err: err}
}

// containError classifies an error escaping the loop. Existing structured
// errors pass through unchanged so callers can match on their kind; anything
// else is wrapped with the given kind.
func containError(kind ErrorKind, op string, err error) *OrchestrationError {
	var oerr *OrchestrationError
	if errors.As(err, &oerr) {
		return oerr
	}
	return NewOrchestrationError(kind, op, err)
}
