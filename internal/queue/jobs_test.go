package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func (f *fakeEnqueuer) types() []string {
	var out []string
	for _, t := range f.tasks {
		out = append(out, t.Type())
	}
	return out
}

func TestDispatcherAfterPublish(t *testing.T) {
	client := &fakeEnqueuer{}
	require.NoError(t, NewDispatcher(client, true).AfterPublish(context.Background(), "paris"))
	assert.Equal(t, []string{RebuildCollagesTask, MirrorGalleryTask}, client.types())

	payload, err := Decode(client.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, "paris", payload.Slug)
}

func TestDispatcherWithoutMirror(t *testing.T) {
	client := &fakeEnqueuer{}
	require.NoError(t, NewDispatcher(client, false).AfterPublish(context.Background(), "paris"))
	assert.Equal(t, []string{RebuildCollagesTask}, client.types())
}

func TestEnqueueConflictIsNotAnError(t *testing.T) {
	client := &fakeEnqueuer{err: asynq.ErrTaskIDConflict}
	assert.NoError(t, Enqueue(context.Background(), client, RebuildCollagesTask, "paris"))

	client.err = errors.New("redis down")
	assert.ErrorContains(t, Enqueue(context.Background(), client, RebuildCollagesTask, "paris"), "redis down")
}

func TestDecodeRejectsEmptySlug(t *testing.T) {
	_, err := Decode(asynq.NewTask(RebuildCollagesTask, []byte(`{"slug":""}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	_, err = Decode(asynq.NewTask(RebuildCollagesTask, []byte(`not json`)))
	assert.Error(t, err)
}
