package board

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/bekirdag/goal/internal/model"
	"github.com/bekirdag/goal/internal/store"
)

type view struct {
	ID        string
	Text      string
	Completed bool
}

type boardView struct {
	Tasks     map[model.Quadrant][]view
	Subtitles map[model.Quadrant]string
}

func localView(e *Engine) boardView {
	out := boardView{Tasks: map[model.Quadrant][]view{}, Subtitles: map[model.Quadrant]string{}}
	for _, q := range model.Quadrants {
		for _, t := range e.Tasks(q) {
			out.Tasks[q] = append(out.Tasks[q], view{t.ID, t.Text, t.Completed})
		}
		if s, ok := e.settings.Get(q); ok {
			out.Subtitles[q] = s
		}
	}
	return out
}

func remoteView(t require.TestingT, mem *store.Memory) boardView {
	ctx := context.Background()
	out := boardView{Tasks: map[model.Quadrant][]view{}, Subtitles: map[model.Quadrant]string{}}
	rows, err := mem.ListTasks(ctx, "alice")
	require.NoError(t, err)
	for _, r := range rows {
		q := model.Quadrant(r.Quadrant)
		out.Tasks[q] = append(out.Tasks[q], view{r.ID, r.Text, r.Completed})
	}
	subs, err := mem.ListSubtitles(ctx, "alice")
	require.NoError(t, err)
	for _, s := range subs {
		out.Subtitles[model.Quadrant(s.Quadrant)] = s.Subtitle
	}
	return out
}

func newPropertyEngine(t *rapid.T, mem *store.Memory) *Engine {
	n := 0
	e := NewEngine(context.Background(), mem, Options{
		NewID: func() string {
			n++
			return fmt.Sprintf("gen-%d", n)
		},
		Now: func() time.Time { return testNow },
	})
	e.Update(e.Load()())
	require.True(t, e.Session().SignedIn())
	return e
}

var genQuadrant = rapid.SampledFrom(model.Quadrants)

var genText = rapid.StringMatching(`[a-z]{1,8}( [a-z]{1,8})?`)

var genOp = rapid.SampledFrom([]Op{OpAdd, OpToggle, OpDelete, OpEdit, OpSubtitle})

// draw picks an operation and its arguments against the current local state.
// Operations on missing ids come back as nil commands.
func draw(t *rapid.T, e *Engine) (Op, tea.Cmd) {
	q := genQuadrant.Draw(t, "quadrant")
	op := genOp.Draw(t, "op")
	id := "missing"
	if tasks := e.Tasks(q); len(tasks) > 0 {
		id = tasks[rapid.IntRange(0, len(tasks)-1).Draw(t, "index")].ID
	}
	switch op {
	case OpToggle:
		return op, e.ToggleTask(alice, q, id)
	case OpDelete:
		return op, e.DeleteTask(alice, q, id)
	case OpEdit:
		return op, e.EditTaskText(alice, q, id, genText.Draw(t, "edit"))
	case OpSubtitle:
		return op, e.SetSubtitle(alice, q, genText.Draw(t, "subtitle"))
	default:
		return op, e.AddTask(alice, q, genText.Draw(t, "text"))
	}
}

func failWrites(mem *store.Memory, fail bool) {
	var err error
	if fail {
		err = errBoom
	}
	for _, op := range writeOps {
		mem.FailOn(op, err)
	}
}

// unordered sorts every quadrant by id. Tasks written concurrently get their
// store position from commit time, so only membership and values compare.
func unordered(v boardView) boardView {
	for _, tasks := range v.Tasks {
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	}
	return v
}

func seedRandom(t *rapid.T, mem *store.Memory) {
	count := rapid.IntRange(0, 8).Draw(t, "seed")
	for i := 0; i < count; i++ {
		q := genQuadrant.Draw(t, "seedQuadrant")
		err := mem.CreateTask(context.Background(), store.NewTask{
			ID:        fmt.Sprintf("seed-%d", i),
			Text:      genText.Draw(t, "seedText"),
			Completed: rapid.Bool().Draw(t, "seedCompleted"),
			Quadrant:  q,
			UserID:    "alice",
		})
		require.NoError(t, err)
	}
}

func TestFailedMutationRestoresState(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mem := store.NewMemory("alice")
		seedRandom(t, mem)
		e := newPropertyEngine(t, mem)
		failWrites(mem, true)
		before := localView(e)

		_, cmd := draw(t, e)
		if cmd != nil {
			e.Update(cmd())
		}

		require.Equal(t, before, localView(e))
		require.Zero(t, e.Pending())
	})
}

func TestSequentialMutationsConverge(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mem := store.NewMemory("alice")
		seedRandom(t, mem)
		e := newPropertyEngine(t, mem)

		steps := rapid.IntRange(1, 25).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			failWrites(mem, rapid.Bool().Draw(t, "fail"))
			op, cmd := draw(t, e)
			if cmd != nil {
				e.Update(cmd())
			}
			failWrites(mem, false)
			require.Equal(t, remoteView(t, mem), localView(e), "step %d op %s", i, op)
		}
		require.Zero(t, e.Pending())
	})
}

// Several writes are in flight at once, possibly on the same task. The store
// sees them in issue order; results come back in any order.
func TestInFlightMutationsConverge(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mem := store.NewMemory("alice")
		seedRandom(t, mem)
		e := newPropertyEngine(t, mem)

		var cmds []tea.Cmd
		var ops []Op
		k := rapid.IntRange(1, 12).Draw(t, "inFlight")
		for i := 0; i < k; i++ {
			op, cmd := draw(t, e)
			if cmd != nil {
				cmds = append(cmds, cmd)
				ops = append(ops, op)
			}
		}
		require.Equal(t, len(cmds), e.Pending())

		results := make([]tea.Msg, len(cmds))
		order := make([]int, len(cmds))
		for i, cmd := range cmds {
			failWrites(mem, rapid.Bool().Draw(t, "fail"))
			results[i] = cmd()
			order[i] = i
		}
		failWrites(mem, false)

		for _, i := range rapid.Permutation(order).Draw(t, "delivery") {
			e.Update(results[i])
		}
		require.Zero(t, e.Pending())
		require.Empty(t, e.ledgers)
		require.Equal(t, unordered(remoteView(t, mem)), unordered(localView(e)), "ops %v", ops)
	})
}
