// Package queue defines the asynq tasks that trail a gallery publish and the
// helpers that enqueue them.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// RebuildCollagesTask regenerates the collage grids of a gallery city.
	RebuildCollagesTask = "gallery:collages"
	// MirrorGalleryTask uploads a gallery city directory to object storage.
	MirrorGalleryTask = "gallery:mirror"
)

// GalleryPayload is serialized into the task payload so the worker knows
// which city directory to work on.
type GalleryPayload struct {
	Slug string `json:"slug"`
}

// Decode reads a GalleryPayload from a task.
func Decode(task *asynq.Task) (GalleryPayload, error) {
	var payload GalleryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	if payload.Slug == "" {
		return payload, fmt.Errorf("decode payload: empty slug: %w", asynq.SkipRetry)
	}
	return payload, nil
}

// NewGalleryTask builds a task of the given type for slug. The task id makes
// repeated publishes of one city collapse into a single pending job.
func NewGalleryTask(typename, slug string) (*asynq.Task, []asynq.Option, error) {
	data, err := json.Marshal(GalleryPayload{Slug: slug})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal payload: %w", err)
	}
	opts := []asynq.Option{asynq.MaxRetry(5), asynq.TaskID(typename + ":" + slug)}
	return asynq.NewTask(typename, data), opts, nil
}

// Enqueuer is the part of *asynq.Client the dispatcher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueue schedules one gallery task. A job already pending for the same
// city is not an error.
func Enqueue(ctx context.Context, client Enqueuer, typename, slug string) error {
	task, opts, err := NewGalleryTask(typename, slug)
	if err != nil {
		return err
	}
	if _, err := client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("enqueue %s task: %w", typename, err)
	}
	return nil
}

// Dispatcher hands publish follow-ups to the asynq worker.
type Dispatcher struct {
	client Enqueuer
	mirror bool
}

// NewDispatcher builds a Dispatcher. mirror enables the object storage job.
func NewDispatcher(client Enqueuer, mirror bool) *Dispatcher {
	return &Dispatcher{client: client, mirror: mirror}
}

// AfterPublish enqueues the collage rebuild and, when enabled, the mirror.
func (d *Dispatcher) AfterPublish(ctx context.Context, slug string) error {
	if err := Enqueue(ctx, d.client, RebuildCollagesTask, slug); err != nil {
		return err
	}
	if d.mirror {
		return Enqueue(ctx, d.client, MirrorGalleryTask, slug)
	}
	return nil
}
