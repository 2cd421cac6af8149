package task

import (
	"sync"
	"time"
)

// Registry is the process-wide task map. Each task id has exactly one
// writer (the background job that owns it) while status polls may read
// concurrently; values are replaced whole under the lock and handed out as
// copies, so a reader sees either the pre- or post-update task, never a
// torn one.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Task)}
}

// Create registers a new task in the processing state.
func (r *Registry) Create(id, sourceName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[id] = Task{
		ID:         id,
		Status:     StatusProcessing,
		Message:    "separation in progress",
		SourceName: sourceName,
		CreatedAt:  time.Now(),
	}
}

// Update overwrites the task's status and message.
func (r *Registry) Update(id string, status Status, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return
	}
	t.Status = status
	t.Message = message
	r.tasks[id] = t
}

// Get returns a copy of the task.
func (r *Registry) Get(id string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	return t, ok
}
