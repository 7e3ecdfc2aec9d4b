package domain

// Job status constants
const (
	JobStatusQueued     = "QUEUED"
	JobStatusProcessing = "PROCESSING"
	JobStatusDelivered  = "DELIVERED"
	JobStatusFailed     = "FAILED"
)

// MaxResults is the number of entries rendered in a reply
const MaxResults = 10

// IsTerminalStatus reports whether a job in this status will never change again
func IsTerminalStatus(status string) bool {
	return status == JobStatusDelivered || status == JobStatusFailed
}
