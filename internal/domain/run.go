package domain

import (
	"encoding/json"
	"time"
)

type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusProcessing RunStatus = "processing"
	RunStatusDone       RunStatus = "done"
	RunStatusFailed     RunStatus = "failed"
)

// BatchRun is an asynchronous batch submission processed by the worker.
type BatchRun struct {
	ID           string
	SourceType   string
	Persist      bool
	Payload      json.RawMessage
	Status       RunStatus
	Result       json.RawMessage
	ErrorMessage string
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// QueueMessage is the transport format sent to queue backends.
type QueueMessage struct {
	RunID       string    `json:"run_id"`
	SourceType  string    `json:"source_type"`
	Persist     bool      `json:"persist"`
	Attempt     int       `json:"attempt"`
	RequestedAt time.Time `json:"requested_at"`
}
