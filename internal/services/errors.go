// Package services wraps the Kubernetes API calls behind the driver's
// namespace, networking and deployment services.
package services

import (
	"fmt"
	"time"
)

// NotFoundError reports a missing sandbox namespace. It is fatal for the
// deploy workflow: nothing is provisioned without a namespace.
type NotFoundError struct {
	SandboxID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Namespace for sandbox '%s' not found", e.SandboxID)
}

// TimeoutError reports a polling wait that hit its deadline.
type TimeoutError struct {
	What    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.What)
}

// DeleteOutcome tells a caller whether a delete removed the resource or
// found it already gone. Both are success: deletion is idempotent.
type DeleteOutcome int

const (
	Deleted DeleteOutcome = iota
	AlreadyAbsent
)

func (o DeleteOutcome) String() string {
	if o == AlreadyAbsent {
		return "already absent"
	}
	return "deleted"
}
