package board

import (
	"slices"

	"github.com/bekirdag/goal/internal/model"
)

type entityKind uint8

const (
	taskEntity entityKind = iota
	subtitleEntity
)

// entityKey names one stored row: a task, or the subtitle override of a
// quadrant.
type entityKey struct {
	kind     entityKind
	quadrant model.Quadrant
	id       string
}

func taskKey(q model.Quadrant, id string) entityKey {
	return entityKey{kind: taskEntity, quadrant: q, id: id}
}

func subtitleKey(q model.Quadrant) entityKey {
	return entityKey{kind: subtitleEntity, quadrant: q}
}

// entityState is the value of one entity. For tasks, index is where the task
// goes back in when it reappears.
type entityState struct {
	present  bool
	task     model.Task
	index    int
	subtitle string
}

// ledger follows an entity while writes to it are in flight. base is what the
// store held before the oldest unsettled write; chain holds every write that
// has not failed, in issue order. Writes to one entity reach the store in
// issue order, so the store ends at base with the successful writes applied
// and the local value is base with the whole chain applied.
type ledger struct {
	base  entityState
	chain []*mutation
}

func (l *ledger) value() entityState {
	st := l.base
	for _, m := range l.chain {
		m.apply(&st)
	}
	return st
}

// tail is closed once the remote half of the newest write has returned.
func (l *ledger) tail() <-chan struct{} {
	if len(l.chain) == 0 {
		return nil
	}
	return l.chain[len(l.chain)-1].done
}

// fail removes m from the chain and reports whether newer writes remain.
func (l *ledger) fail(m *mutation) bool {
	i := slices.Index(l.chain, m)
	if i < 0 {
		return false
	}
	l.chain = slices.Delete(l.chain, i, i+1)
	newer := i < len(l.chain)
	l.fold()
	return newer
}

func (l *ledger) settle(m *mutation) {
	m.settled = true
	l.fold()
}

// fold moves the settled prefix of the chain into base.
func (l *ledger) fold() {
	for len(l.chain) > 0 && l.chain[0].settled {
		l.chain[0].apply(&l.base)
		l.chain = l.chain[1:]
	}
}

func (e *Engine) read(k entityKey) entityState {
	if k.kind == subtitleEntity {
		subtitle, ok := e.settings.Get(k.quadrant)
		return entityState{present: ok, subtitle: subtitle}
	}
	task, index, ok := e.tasks.Find(k.quadrant, k.id)
	return entityState{present: ok, task: task, index: max(index, 0)}
}

func (e *Engine) write(k entityKey, st entityState) {
	if k.kind == subtitleEntity {
		if st.present {
			e.settings.Set(k.quadrant, st.subtitle)
		} else {
			e.settings.Clear(k.quadrant)
		}
		return
	}
	switch {
	case !st.present:
		e.tasks.Remove(k.quadrant, k.id)
	case !e.tasks.Replace(k.quadrant, st.task):
		e.tasks.InsertAt(k.quadrant, st.index, st.task)
	}
}

// track returns the ledger for k, opening one on the current local value.
func (e *Engine) track(k entityKey) *ledger {
	l, ok := e.ledgers[k]
	if !ok {
		l = &ledger{base: e.read(k)}
		e.ledgers[k] = l
	}
	return l
}

// rebase puts in-flight mutations back on top of freshly loaded state. A load
// for another user forgets them and their late results are ignored.
func (e *Engine) rebase(prev Session) {
	if prev.UserID != e.session.UserID {
		if len(e.pending) > 0 {
			e.log.Warn("session changed, dropping in-flight mutations", "pending", len(e.pending))
		}
		e.pending = make(map[uint64]*mutation)
		e.ledgers = make(map[entityKey]*ledger)
		return
	}
	for k, l := range e.ledgers {
		l.base = e.read(k)
		l.chain = slices.DeleteFunc(l.chain, func(m *mutation) bool { return m.settled })
		e.write(k, l.value())
		if len(l.chain) == 0 {
			delete(e.ledgers, k)
		}
	}
}
