package documents

import "time"

// Document is the metadata row paired with one stored object.
type Document struct {
	ID          string    `db:"id"`
	OwnerID     string    `db:"owner_id"`
	FileName    string    `db:"file_name"`
	StoragePath string    `db:"storage_path"`
	SizeBytes   int64     `db:"size_bytes"`
	MediaType   string    `db:"media_type"`
	CreatedAt   time.Time `db:"created_at"`
}

// Outcome is the terminal result of one ingestion attempt.
type Outcome string

const (
	OutcomeAccepted           Outcome = "accepted"
	OutcomeRejectedValidation Outcome = "rejected-validation"
	OutcomeFailedStorage      Outcome = "failed-storage"
	OutcomeFailedMetadata     Outcome = "failed-metadata"
)

// IngestResult is returned once per Ingest call.
type IngestResult struct {
	Outcome  Outcome
	Document *Document
	// Reason is set for OutcomeRejectedValidation.
	Reason RejectReason
	Err    error
}
