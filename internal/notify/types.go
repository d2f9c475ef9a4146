package notify

import "time"

// Success is the message published to the success queue after a completed
// remediation.
type Success struct {
	Status         string    `json:"status"`
	SourceLocation string    `json:"sourceLocation"`
	DestLocation   string    `json:"destLocation"`
	OriginalName   string    `json:"originalName"`
	DerivedName    string    `json:"derivedName"`
	ProcessedAt    time.Time `json:"processedAt"`
}

// Failure is the message published to the failure queue when any pipeline
// stage fails. It carries the triggering error and a diagnostic trace.
type Failure struct {
	Status     string    `json:"status"`
	ObjectName string    `json:"objectName"`
	Error      string    `json:"error"`
	StackTrace string    `json:"stackTrace"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewSuccess builds a success message
func NewSuccess(sourceLocation, destLocation, originalName, derivedName string, processedAt time.Time) Success {
	return Success{
		Status:         "success",
		SourceLocation: sourceLocation,
		DestLocation:   destLocation,
		OriginalName:   originalName,
		DerivedName:    derivedName,
		ProcessedAt:    processedAt,
	}
}

// NewFailure builds a failure message from the triggering error
func NewFailure(objectName string, cause error, stackTrace string, timestamp time.Time) Failure {
	return Failure{
		Status:     "failed",
		ObjectName: objectName,
		Error:      cause.Error(),
		StackTrace: stackTrace,
		Timestamp:  timestamp,
	}
}
