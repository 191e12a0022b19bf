package status

type Status struct {
	Code    StatusCode
	Message string
}

type StatusCode int32

const (
	// The operation completed successfully.
	Status_OK StatusCode = 0
	// Unknown error.
	Status_UNKNOWN StatusCode = 2
	// The operation could not be completed within the specified timeout.
	Status_DEADLINE_EXCEEDED StatusCode = 4
	// The requested asset was not found at the specified location.
	Status_NOT_FOUND StatusCode = 5
	// The request was rejected by a remote server, or requested an asset from a disallowed origin.
	Status_PERMISSION_DENIED StatusCode = 7
	// There is insufficient quota of some resource to perform the requested operation.
	Status_RESOURCE_EXHAUSTED StatusCode = 8
	// The operation was rejected because the system is not in a state required for its execution.
	Status_FAILED_PRECONDITION StatusCode = 9
	// The operation could not be completed, typically due to a failed consistency check.
	Status_ABORTED StatusCode = 10
	// Internal errors. Some invariants expected by the underlying system have been broken.
	Status_INTERNAL StatusCode = 13
)
