package entity

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesledger/internal/core/apperror"
)

func TestBaseEntity_ArchiveKeepsVersion(t *testing.T) {
	b := NewBaseEntity()
	require.Equal(t, LifecycleActive, b.Lifecycle)
	require.Equal(t, 1, b.Version)

	b.Archive()

	assert.True(t, b.IsArchived())
	assert.Equal(t, 1, b.Version)
	assert.True(t, apperror.IsNotFound(b.EnsureActive("product")))
}

func TestCatalog_Validate(t *testing.T) {
	ctx := context.Background()

	c := NewCatalog("  Norte  ")
	assert.Equal(t, "Norte", c.Name)
	assert.NoError(t, c.Validate(ctx))

	empty := NewCatalog("   ")
	assert.True(t, apperror.IsCode(empty.Validate(ctx), apperror.CodeValidation))

	long := NewCatalog(strings.Repeat("x", 256))
	assert.Error(t, long.Validate(ctx))
}

func TestCatalog_Toggle(t *testing.T) {
	c := NewCatalog("Centro")
	c.Toggle()
	assert.False(t, c.Active)
	c.Toggle()
	assert.True(t, c.Active)
	assert.Equal(t, 1, c.Version)
}

func TestDocument_Number(t *testing.T) {
	d := NewDocument("u-1")
	assert.Equal(t, "", d.DocumentNumber())
	assert.Nil(t, d.Number)

	d.SetNumber("F-001")
	assert.Equal(t, "F-001", d.DocumentNumber())

	d.SetNumber("")
	assert.Nil(t, d.Number)
}
