package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bekirdag/goal/internal/model"
)

// runClientContract exercises the behavior every backend must share. The
// client must be configured with user "alice" and start empty.
func runClientContract(t *testing.T, c Client) {
	t.Helper()
	ctx := context.Background()

	user, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.ID)

	ids := make([]string, 0, 3)
	for _, text := range []string{"first", "second", "third"} {
		id := uuid.NewString()
		ids = append(ids, id)
		require.NoError(t, c.CreateTask(ctx, NewTask{
			ID:       id,
			Text:     text,
			Quadrant: model.Daily,
			UserID:   "alice",
		}))
	}
	require.NoError(t, c.CreateTask(ctx, NewTask{
		ID:       uuid.NewString(),
		Text:     "not mine",
		Quadrant: model.Weekly,
		UserID:   "bob",
	}))

	rows, err := c.ListTasks(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "third", rows[0].Text)
	assert.Equal(t, "second", rows[1].Text)
	assert.Equal(t, "first", rows[2].Text)
	assert.False(t, rows[0].Completed)
	assert.Equal(t, "daily", rows[0].Quadrant)
	assert.False(t, rows[0].CreatedAt.IsZero())

	require.NoError(t, c.UpdateTaskCompleted(ctx, "alice", ids[0], true))
	require.NoError(t, c.UpdateTaskText(ctx, "alice", ids[1], "second, edited"))

	err = c.UpdateTaskCompleted(ctx, "alice", "missing", true)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	err = c.UpdateTaskText(ctx, "bob", ids[1], "hijack")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	var storeErr *Error
	assert.True(t, errors.As(err, &storeErr))

	require.NoError(t, c.DeleteTask(ctx, "alice", ids[2]))
	require.NoError(t, c.DeleteTask(ctx, "alice", ids[2]))

	rows, err = c.ListTasks(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "second, edited", rows[0].Text)
	assert.Equal(t, "first", rows[1].Text)
	assert.True(t, rows[1].Completed)

	require.NoError(t, c.UpsertSubtitle(ctx, SubtitleRow{UserID: "alice", Quadrant: "monthly", Subtitle: "Sprint 3"}))
	require.NoError(t, c.UpsertSubtitle(ctx, SubtitleRow{UserID: "alice", Quadrant: "monthly", Subtitle: "Sprint 4"}))
	require.NoError(t, c.UpsertSubtitle(ctx, SubtitleRow{UserID: "bob", Quadrant: "monthly", Subtitle: "Bob's month"}))

	subtitles, err := c.ListSubtitles(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, subtitles, 1)
	assert.Equal(t, "monthly", subtitles[0].Quadrant)
	assert.Equal(t, "Sprint 4", subtitles[0].Subtitle)
}
