package model

import "time"

type SnapshotStatus string

const (
	SnapshotPending   SnapshotStatus = "pending"
	SnapshotUploading SnapshotStatus = "uploading"
	SnapshotComplete  SnapshotStatus = "complete"
	SnapshotFailed    SnapshotStatus = "failed"
)

type Snapshot struct {
	ID        int64          `json:"id"`
	Filename  string         `json:"filename"`
	S3Key     string         `json:"s3_key"`
	Status    SnapshotStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	SizeBytes int64          `json:"size_bytes"`
	CreatedAt time.Time      `json:"created_at"`
}
