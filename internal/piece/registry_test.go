package piece

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopTrigger struct{}

func (nopTrigger) OnEnable(ctx context.Context, cfg TriggerConfig) (string, error) { return "", nil }
func (nopTrigger) OnDisable(ctx context.Context, cfg TriggerConfig) error          { return nil }
func (nopTrigger) Poll(ctx context.Context, cfg TriggerConfig, watermark string) ([]PolledItem, error) {
	return nil, nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(Static(
		Descriptor{Name: "slack"},
		map[string]PollingTrigger{"new_message": nopTrigger{}},
	)))

	p, ok := r.Get("slack")
	require.True(t, ok)
	assert.Equal(t, "slack", p.Descriptor().Name)

	trig, err := r.Trigger("slack", "new_message")
	require.NoError(t, err)
	assert.NotNil(t, trig)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(Static(Descriptor{Name: "slack"}, nil)))
	assert.Error(t, r.Register(Static(Descriptor{Name: "slack"}, nil)))
}

func TestRegistryRejectsUnnamedPiece(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Register(Static(Descriptor{}, nil)))
}

func TestRegistryTriggerErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Static(Descriptor{Name: "slack"}, nil)))

	_, err := r.Trigger("gmail", "new_email")
	assert.Error(t, err)

	_, err = r.Trigger("slack", "new_message")
	assert.Error(t, err)
}

func TestRegistryDescriptorsSorted(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"sheets", "gmail", "slack"} {
		require.NoError(t, r.Register(Static(Descriptor{Name: name}, nil)))
	}

	descs := r.Descriptors()
	require.Len(t, descs, 3)
	assert.Equal(t, "gmail", descs[0].Name)
	assert.Equal(t, "sheets", descs[1].Name)
	assert.Equal(t, "slack", descs[2].Name)
}
