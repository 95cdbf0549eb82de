package studio

import (
	"errors"
	"time"

	"lookstudioapi/models"
	"lookstudioapi/services"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

var ErrSessionNotFound = errors.New("studio session not found or expired")

// Registry keeps live workflows in memory. A session expires after ttl
// without any request.
type Registry struct {
	sessions  *gocache.Cache
	ttl       time.Duration
	generator services.StudioGenerator
	recorder  GenerationRecorder
}

func NewRegistry(ttl time.Duration, generator services.StudioGenerator, recorder GenerationRecorder) *Registry {
	return &Registry{
		sessions:  gocache.New(ttl, ttl/2),
		ttl:       ttl,
		generator: generator,
		recorder:  recorder,
	}
}

func (r *Registry) Create(upload models.ImageFile) (*Workflow, error) {
	id := uuid.NewString()
	workflow, err := NewWorkflow(id, upload, r.generator, r.recorder)
	if err != nil {
		return nil, err
	}
	r.sessions.Set(id, workflow, r.ttl)
	return workflow, nil
}

// Get returns the session and pushes its expiry forward.
func (r *Registry) Get(id string) (*Workflow, error) {
	value, ok := r.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	workflow := value.(*Workflow)
	r.sessions.Set(id, workflow, r.ttl)
	return workflow, nil
}

func (r *Registry) Delete(id string) {
	r.sessions.Delete(id)
}

func (r *Registry) Count() int {
	return r.sessions.ItemCount()
}
