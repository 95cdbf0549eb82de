package studio

import (
	"testing"
	"time"

	"lookstudioapi/models"
	"lookstudioapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateGetDelete(t *testing.T) {
	registry := NewRegistry(time.Hour, &test.GeneratorMock{}, nil)

	w, err := registry.Create(test.FakePhoto(2, 2))
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID())
	assert.Equal(t, 1, registry.Count())

	found, err := registry.Get(w.ID())
	require.NoError(t, err)
	assert.Same(t, w, found)

	registry.Delete(w.ID())
	_, err = registry.Get(w.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistryRejectsEmptyUpload(t *testing.T) {
	registry := NewRegistry(time.Hour, &test.GeneratorMock{}, nil)
	_, err := registry.Create(models.ImageFile{})
	assert.ErrorIs(t, err, ErrNoImage)
	assert.Equal(t, 0, registry.Count())
}

func TestRegistryExpires(t *testing.T) {
	registry := NewRegistry(50*time.Millisecond, &test.GeneratorMock{}, nil)
	w, err := registry.Create(test.FakePhoto(2, 2))
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)
	_, err = registry.Get(w.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
