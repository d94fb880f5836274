package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_K8sKindWithoutClientErrors(t *testing.T) {
	_, err := New(Descriptor{Name: "pods-ready", Type: KindK8s, Properties: map[string]any{}}, nil)
	assert.ErrorContains(t, err, "no kubernetes client configured")
}

func TestNew_UnknownKindErrors(t *testing.T) {
	_, err := New(Descriptor{Name: "mystery", Type: Kind("bogus")}, nil)
	assert.ErrorContains(t, err, "unknown probe type")
}

func TestNew_HTTPKindDispatches(t *testing.T) {
	p, err := New(Descriptor{
		Name:       "dispatched",
		Type:       KindHTTP,
		Properties: map[string]any{"url": "http://example.invalid"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, KindHTTP, p.Kind())
}
