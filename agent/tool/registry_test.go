package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
)

func echoTool(name string, params ...contractx.ParamSpec) contractx.ToolDescriptor {
	return contractx.ToolDescriptor{
		Name:        name,
		Description: "echo " + name,
		Params:      params,
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	}
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("b")))
	require.NoError(t, reg.Register(echoTool("a")))
	require.NoError(t, reg.Register(echoTool("c")))

	desc, err := reg.Resolve("a")
	require.NoError(t, err)
	assert.Equal(t, "a", desc.Name)

	names := []string{}
	for _, d := range reg.Schemas() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"b", "a", "c"}, names)
	assert.Equal(t, 3, reg.Len())
}

func TestRegistryDuplicate(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("get_id_list")))
	err := reg.Register(echoTool("get_id_list"))
	assert.ErrorIs(t, err, contractx.ErrDuplicateTool)
	assert.Equal(t, 1, reg.Len())

	assert.Panics(t, func() { reg.MustRegister(echoTool("get_id_list")) })
}

func TestRegistryUnknown(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry().Resolve("nope")
	assert.ErrorIs(t, err, contractx.ErrUnknownTool)
}

func TestRegistryRejectsBadDescriptors(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	assert.ErrorIs(t, reg.Register(echoTool(" ")), contractx.ErrValidation)
	assert.ErrorIs(t, reg.Register(contractx.ToolDescriptor{Name: "nofunc"}), contractx.ErrValidation)
	assert.ErrorIs(t, reg.Register(echoTool("badtype", contractx.ParamSpec{Name: "x", Type: "object"})), contractx.ErrValidation)
	assert.ErrorIs(t, reg.Register(echoTool("dup",
		contractx.ParamSpec{Name: "x", Type: contractx.ParamString},
		contractx.ParamSpec{Name: "x", Type: contractx.ParamString},
	)), contractx.ErrValidation)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistrySchemasReflectLaterRegistrations(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("a")))
	first := reg.Schemas()
	require.NoError(t, reg.Register(echoTool("b")))

	assert.Len(t, first, 1)
	assert.Len(t, reg.Schemas(), 2)
}
