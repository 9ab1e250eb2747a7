package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/transit/pkg/adapters/memory"
	"github.com/stretchr/testify/assert"
)

func TestCache_ClearByKeyDropsDependencies(t *testing.T) {
	c := memory.NewCache()
	c.Put("B", 1, "B.textures", "B.audio")
	c.Put("B.textures", 1)
	c.Put("B.audio", 1)
	c.Put("A", 1)

	assert.NoError(t, c.ClearByKey(context.Background(), "B"))
	assert.False(t, c.Has("B"))
	assert.False(t, c.Has("B.textures"))
	assert.True(t, c.Has("A"))
}

func TestCache_CleanUnused(t *testing.T) {
	c := memory.NewCache()
	c.Put("used", 2)
	c.Put("orphan", 0)

	assert.NoError(t, c.CleanUnused(context.Background()))
	assert.True(t, c.Has("used"))
	assert.False(t, c.Has("orphan"))
}

func TestCache_FailureInjection(t *testing.T) {
	c := memory.NewCache()
	c.Put("A", 1)
	broken := errors.New("disk full")
	c.Fail("clear_all", broken)

	assert.ErrorIs(t, c.ClearAll(context.Background()), broken)
	assert.Equal(t, 1, c.Len())

	c.Fail("clear_all", nil)
	assert.NoError(t, c.ClearAll(context.Background()))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, []string{"clear_all", "clear_all"}, c.Calls())
}
