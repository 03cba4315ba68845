// Package core implements the tools shared by the components of the ledger.
//
// Documentation Last Review: 19.10.2026
//
package core

import (
	"sort"
	"sync"
)

// Observer is the interface to implement to watch the events of type E.
type Observer[E any] interface {
	NotifyCallback(event E)
}

// Observable provides primitives to add and remove observers and to notify
// them of new events.
type Observable[E any] interface {
	// Add adds the observer to the list of observers that will be notified of
	// new events.
	Add(observer Observer[E])

	// Remove removes the observer from the list thus stopping it from receiving
	// new events.
	Remove(observer Observer[E])

	// Notify notifies the observers of a new event.
	Notify(event E)
}

// Watcher is an implementation of the Observable interface. The observers are
// notified in the order they have been added. An observer must be comparable.
//
// - implements core.Observable
type Watcher[E any] struct {
	sync.RWMutex

	counter   uint64
	observers map[Observer[E]]uint64
}

// NewWatcher creates a new empty watcher.
func NewWatcher[E any]() *Watcher[E] {
	return &Watcher[E]{
		observers: make(map[Observer[E]]uint64),
	}
}

// Add implements core.Observable. Adding an observer twice has no effect.
func (w *Watcher[E]) Add(observer Observer[E]) {
	w.Lock()
	defer w.Unlock()

	_, found := w.observers[observer]
	if found {
		return
	}

	w.observers[observer] = w.counter
	w.counter++
}

// Remove implements core.Observable.
func (w *Watcher[E]) Remove(observer Observer[E]) {
	w.Lock()
	delete(w.observers, observer)
	w.Unlock()
}

// Len returns the number of observers.
func (w *Watcher[E]) Len() int {
	w.RLock()
	defer w.RUnlock()

	return len(w.observers)
}

// Notify implements core.Observable. It notifies the observers one after the
// other, in the order they have been added.
func (w *Watcher[E]) Notify(event E) {
	w.RLock()

	observers := make([]Observer[E], 0, len(w.observers))
	for obs := range w.observers {
		observers = append(observers, obs)
	}

	sort.Slice(observers, func(i, j int) bool {
		return w.observers[observers[i]] < w.observers[observers[j]]
	})

	w.RUnlock()

	for _, obs := range observers {
		obs.NotifyCallback(event)
	}
}
