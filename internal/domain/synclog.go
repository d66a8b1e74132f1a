package domain

import "time"

type SyncType string

const (
	SyncInitial     SyncType = "initial"
	SyncIncremental SyncType = "incremental"
)

type SyncStatus string

const (
	SyncRunning   SyncStatus = "running"
	SyncSuccess   SyncStatus = "success"
	SyncFailed    SyncStatus = "failed"
	SyncSkipped   SyncStatus = "skipped"
	SyncCancelled SyncStatus = "cancelled"
)

// SyncLogEntry is the immutable audit record of one account's sync run.
// Created at run start with status running, finalized exactly once at run
// end, never mutated after completion.
type SyncLogEntry struct {
	ID           string
	AccountID    string
	Type         SyncType
	Status       SyncStatus
	Fetched      int
	Stored       int
	New          int
	Updated      int
	CursorBefore string
	CursorAfter  string
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}
