package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter struct{ name string }

func TestRegistry_CreateAndNames(t *testing.T) {
	r := NewRegistry[greeter]()
	require.NoError(t, r.Register("Hello", func(conf map[string]any) (greeter, error) {
		var c struct {
			Name string `json:"name"`
		}
		if err := Decode(conf, &c); err != nil {
			return greeter{}, err
		}
		return greeter{name: c.Name}, nil
	}))
	assert.Error(t, r.Register("hello", func(map[string]any) (greeter, error) { return greeter{}, nil }))
	assert.Error(t, r.Register("nil", nil))

	g, err := r.Create(ModuleConfig{Type: "HELLO", Conf: map[string]any{"name": "dock"}})
	require.NoError(t, err)
	assert.Equal(t, "dock", g.name)
	assert.Equal(t, []string{"hello"}, r.Names())

	_, err = r.Create(ModuleConfig{Type: "missing"})
	assert.ErrorContains(t, err, "hello")
}

func TestDecode_WeakTypes(t *testing.T) {
	var c struct {
		Port  int  `json:"port"`
		Debug bool `json:"debug"`
	}
	require.NoError(t, Decode(map[string]any{"port": "9090", "debug": "true"}, &c))
	assert.Equal(t, 9090, c.Port)
	assert.True(t, c.Debug)
}
