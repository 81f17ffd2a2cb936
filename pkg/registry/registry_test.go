package registry_test

import (
	"context"
	"testing"

	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := registry.NewRegistry()
	r.RegisterCondition("is_night", ports.ConditionFunc(func(context.Context, ports.Scope, any) bool { return true }))
	r.RegisterEvent("shake", ports.EventFunc(func(context.Context, ports.Scope, any) {}))

	c, err := r.Condition("is_night")
	require.NoError(t, err)
	assert.True(t, c.IsSatisfied(context.Background(), nil, nil))

	_, err = r.Event("shake")
	require.NoError(t, err)

	_, err = r.Condition("missing")
	assert.Error(t, err)
	_, err = r.Event("missing")
	assert.Error(t, err)

	conds, events := r.Names()
	assert.Equal(t, []string{"is_night"}, conds)
	assert.Equal(t, []string{"shake"}, events)
}

func TestRegistry_Nil(t *testing.T) {
	var r *registry.Registry
	_, err := r.Condition("x")
	assert.Error(t, err)
}
