package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Count int `json:"count" yaml:"count"`
}

type label struct {
	Name string `json:"name" yaml:"name"`
}

func TestTypedRoundTrip(t *testing.T) {
	for _, c := range []Codec{JSON{}, YAML{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := Marshal(c, counter{Count: 3})
			require.NoError(t, err)

			out, err := Unmarshal[counter](c, data)
			require.NoError(t, err)
			assert.Equal(t, counter{Count: 3}, out)
		})
	}
}

func TestTypedIncompatibleType(t *testing.T) {
	for _, c := range []Codec{JSON{}, YAML{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := Marshal(c, counter{Count: 3})
			require.NoError(t, err)

			_, err = Unmarshal[label](c, data)
			var de *DecodeError
			require.True(t, errors.As(err, &de), "got %v", err)
			assert.Equal(t, c.Name(), de.Codec)
			assert.Equal(t, "codec.label", de.Type)

			_, err = Unmarshal[[]string](c, data)
			assert.True(t, errors.As(err, &de))
		})
	}
}

func TestJSONRejectsTrailingData(t *testing.T) {
	_, err := Unmarshal[counter](JSON{}, []byte(`{"count":1} {"count":2}`))
	assert.Error(t, err)

	_, err = Unmarshal[counter](JSON{}, []byte(`{"count":`))
	assert.Error(t, err)
}

func TestYAMLRejectsEmptyDocument(t *testing.T) {
	_, err := Unmarshal[counter](YAML{}, nil)
	var de *DecodeError
	assert.True(t, errors.As(err, &de))
}

func TestMarshalError(t *testing.T) {
	_, err := Marshal(JSON{}, map[string]any{"f": func() {}})
	assert.Error(t, err)
}
