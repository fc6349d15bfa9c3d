// Package status maps CI build statuses onto commit statuses.
package status

import (
	"fmt"

	"status-relay/src/contracts"
)

// Map returns the commit status for a build. It never fails: statuses it does not
// recognize produce a descriptor that carries only the context label.
func Map(build contracts.Build) contracts.StatusDescriptor {
	desc := contracts.StatusDescriptor{Context: contracts.StatusContext}

	switch build.Status {
	case contracts.BuildFailed:
		desc.State = contracts.StateFailed
		desc.Description = fmt.Sprintf("Build %d has suffered a system error. Please try again.", build.Number)
	case contracts.BuildBroken:
		desc.State = contracts.StateFailed
		desc.Description = fmt.Sprintf("Build %d failed to render.", build.Number)
	case contracts.BuildDenied:
		desc.State = contracts.StateFailed
		desc.Description = fmt.Sprintf("Build %d denied.", build.Number)
	case contracts.BuildPending:
		desc.State = contracts.StatePending
		desc.Description = fmt.Sprintf("Build %d has %d changes that must be accepted", build.Number, build.ChangeCount)
	case contracts.BuildAccepted:
		desc.State = contracts.StateSuccess
		desc.Description = fmt.Sprintf("Build %d accepted.", build.Number)
	case contracts.BuildPassed:
		desc.State = contracts.StateSuccess
		desc.Description = fmt.Sprintf("Build %d passed unchanged.", build.Number)
	}

	return desc
}

// Recognized reports whether the build status maps to a commit state.
func Recognized(buildStatus string) bool {
	switch buildStatus {
	case contracts.BuildFailed, contracts.BuildBroken, contracts.BuildDenied,
		contracts.BuildPending, contracts.BuildAccepted, contracts.BuildPassed:
		return true
	}
	return false
}
