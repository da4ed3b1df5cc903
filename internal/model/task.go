// Package model contains the plain struct definitions shared across packages:
// generation tasks, their results and the metadata sidecar written next to
// every rendered poster.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus describes the generation lifecycle. Declaring it as a named
// string type keeps the four states strongly typed while still encoding as
// plain JSON strings.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transition is possible from s.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Point is a resolved map center. It encodes as a [lat, lon] pair, the shape
// the web frontend reads from task results.
type Point struct {
	Lat float64
	Lon float64
}

// MarshalJSON encodes the point as [lat, lon].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lon})
}

// UnmarshalJSON decodes a [lat, lon] pair.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode point: %w", err)
	}
	p.Lat, p.Lon = pair[0], pair[1]
	return nil
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f, %.6f", p.Lat, p.Lon)
}

// PosterResult is attached to a task once it completes and never changes
// afterwards.
type PosterResult struct {
	PosterURL    string  `json:"poster_url"`
	ThumbnailURL *string `json:"thumbnail_url"`
	City         string  `json:"city"`
	Country      string  `json:"country"`
	Theme        string  `json:"theme"`
	Coords       Point   `json:"coords"`
	CreatedAt    string  `json:"created_at"`
	PosterSize   string  `json:"poster_size"`
	SizeLabel    string  `json:"size_label"`
}

// Task is the status record polled by clients. The store owns the canonical
// copy; everything handed out is a snapshot.
type Task struct {
	ID        string        `json:"task_id"`
	Status    TaskStatus    `json:"status"`
	Progress  int           `json:"progress"`
	Result    *PosterResult `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	// FinishedAt is zero until the task reaches a terminal state.
	FinishedAt time.Time `json:"-"`
}

// PosterMetadata is persisted as a JSON sidecar named like the artifact it
// describes, so gallery listings never have to re-derive facts from file names.
type PosterMetadata struct {
	PosterSize  string `json:"poster_size"`
	SizeLabel   string `json:"size_label"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Theme       string `json:"theme"`
	Distance    int    `json:"distance"`
	NetworkType string `json:"network_type"`
	Format      string `json:"format"`
	CreatedAt   string `json:"created_at"`
}
