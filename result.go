package shellfish

// ExitCodeUnknown is the sentinel exit code reported when a process never
// started or its exit status could not be read.
const ExitCodeUnknown = -1

// Result is the immutable record of one finished execution. Captured text is
// a collaborator concern layered on via OutputTargets.
type Result struct {
	ExitCode int
}
