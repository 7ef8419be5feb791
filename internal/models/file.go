package models

import "time"

// Classification identifies which vendor export a CSV file came from.
// It is assigned once at intake and never re-evaluated.
type Classification string

const (
	ClassMetals  Classification = "METALS"
	ClassStocks  Classification = "STOCKS"
	ClassCrypto  Classification = "CRYPTO"
	ClassUnknown Classification = "UNKNOWN"
)

// Status represents a tracked file's position in the upload lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// TrackedFile is one user-selected file under management by the import
// pipeline. Progress is only meaningful while Status is StatusUploading;
// ErrorDetail is set only on StatusError, ResultCount only on StatusSuccess.
type TrackedFile struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Size           int64          `json:"size"`
	SpoolID        string         `json:"-"`
	Classification Classification `json:"classification"`
	Status         Status         `json:"status"`
	Progress       int            `json:"progress"`
	ErrorDetail    string         `json:"errorDetail,omitempty"`
	ResultCount    int            `json:"resultCount,omitempty"`
	AddedAt        time.Time      `json:"addedAt"`
}

// FileOutcome is one per-file result inside the backend's batch response.
// Outcomes are positionally aligned with the submitted file order.
type FileOutcome struct {
	Filename          string   `json:"filename"`
	Status            string   `json:"status"` // "success" | "error"
	FileType          *string  `json:"file_type"`
	Errors            []string `json:"errors"`
	TransactionsCount int      `json:"transactions_count"`
}

// Outcome status values reported by the portfolio backend.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// BatchResponse is the JSON body returned by the portfolio backend's
// batch-upload endpoint.
type BatchResponse struct {
	Files []FileOutcome `json:"files"`
}
