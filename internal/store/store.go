// Package store keeps a history of backup runs so operators can see what
// each run copied and why a failed run stopped.
//
// The package uses a single-table DynamoDB design where all runs for a
// profile share a partition key (OWNER#{ownerId}) and each run is one item
// under RUN#{runId}. A TTL attribute (expiresAt) removes old runs.
package store

import (
	"context"
	"time"
)

// RunTTL is how long a run record is kept.
const RunTTL = 30 * 24 * time.Hour

// Run statuses.
const (
	RunStatusComplete = "complete"
	RunStatusError    = "error"
)

// RunStore persists run summaries.
//
// PutRun performs full-item replacement. ListRuns returns the newest runs
// first and an empty slice when the owner has none.
type RunStore interface {
	PutRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, ownerID string, limit int) ([]*Run, error)
}

// Run is the summary of one backup run (DynamoDB SK = RUN#{runId}).
type Run struct {
	ID         string `json:"id" dynamodbav:"runId"`
	OwnerID    string `json:"ownerId" dynamodbav:"-"`
	Folder     string `json:"folder,omitempty" dynamodbav:"folder,omitempty"`
	Status     string `json:"status" dynamodbav:"status"`
	Uploaded   int    `json:"uploaded" dynamodbav:"uploaded"`
	ErrorKind  string `json:"errorKind,omitempty" dynamodbav:"errorKind,omitempty"`
	Error      string `json:"error,omitempty" dynamodbav:"error,omitempty"`
	StartedAt  int64  `json:"startedAt" dynamodbav:"startedAt"`
	FinishedAt int64  `json:"finishedAt" dynamodbav:"finishedAt"`
}
