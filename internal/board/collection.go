package board

import "github.com/bekirdag/goal/internal/model"

// Collection holds the in-memory tasks of every quadrant, newest first. It does
// no I/O.
type Collection struct {
	byQuadrant map[model.Quadrant][]model.Task
}

func NewCollection() *Collection {
	return &Collection{byQuadrant: make(map[model.Quadrant][]model.Task)}
}

// Load replaces the whole collection.
func (c *Collection) Load(tasks map[model.Quadrant][]model.Task) {
	c.byQuadrant = make(map[model.Quadrant][]model.Task, len(tasks))
	for q, list := range tasks {
		c.byQuadrant[q] = append([]model.Task(nil), list...)
	}
}

func (c *Collection) Insert(q model.Quadrant, task model.Task) {
	list := c.byQuadrant[q]
	next := make([]model.Task, 0, len(list)+1)
	next = append(next, task)
	next = append(next, list...)
	c.byQuadrant[q] = next
}

// InsertAt places task at index, clamped to the bounds of the sequence. It is a
// no-op when the id is already present in any quadrant.
func (c *Collection) InsertAt(q model.Quadrant, index int, task model.Task) {
	if c.Contains(task.ID) {
		return
	}
	list := c.byQuadrant[q]
	index = max(0, min(index, len(list)))
	next := make([]model.Task, 0, len(list)+1)
	next = append(next, list[:index]...)
	next = append(next, task)
	next = append(next, list[index:]...)
	c.byQuadrant[q] = next
}

func (c *Collection) Remove(q model.Quadrant, id string) bool {
	_, idx, ok := c.Find(q, id)
	if !ok {
		return false
	}
	list := c.byQuadrant[q]
	next := make([]model.Task, 0, len(list)-1)
	next = append(next, list[:idx]...)
	next = append(next, list[idx+1:]...)
	c.byQuadrant[q] = next
	return true
}

func (c *Collection) SetCompleted(q model.Quadrant, id string, value bool) bool {
	return c.update(q, id, func(t *model.Task) { t.Completed = value })
}

func (c *Collection) SetText(q model.Quadrant, id, text string) bool {
	return c.update(q, id, func(t *model.Task) { t.Text = text })
}

// Replace overwrites the stored task with the same id in place.
func (c *Collection) Replace(q model.Quadrant, task model.Task) bool {
	return c.update(q, task.ID, func(t *model.Task) { *t = task })
}

func (c *Collection) update(q model.Quadrant, id string, fn func(*model.Task)) bool {
	_, idx, ok := c.Find(q, id)
	if !ok {
		return false
	}
	next := append([]model.Task(nil), c.byQuadrant[q]...)
	fn(&next[idx])
	c.byQuadrant[q] = next
	return true
}

// Snapshot returns a copy of the quadrant's ordered sequence.
func (c *Collection) Snapshot(q model.Quadrant) []model.Task {
	return append([]model.Task(nil), c.byQuadrant[q]...)
}

func (c *Collection) Find(q model.Quadrant, id string) (model.Task, int, bool) {
	for i, task := range c.byQuadrant[q] {
		if task.ID == id {
			return task, i, true
		}
	}
	return model.Task{}, -1, false
}

func (c *Collection) Contains(id string) bool {
	for _, list := range c.byQuadrant {
		for _, task := range list {
			if task.ID == id {
				return true
			}
		}
	}
	return false
}

func (c *Collection) Len(q model.Quadrant) int {
	return len(c.byQuadrant[q])
}
