package registry

import (
	"sync"
	"testing"

	"github.com/ajitpratap0/hivescan/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type factory func() string

func TestRegisterAndLookup(t *testing.T) {
	r := New[factory]("input format")
	require.NoError(t, r.Register("org.example.Format", func() string { return "format" }, "fmt"))

	f, err := r.Lookup("org.example.Format")
	require.NoError(t, err)
	assert.Equal(t, "format", f())

	f, err = r.Lookup("fmt")
	require.NoError(t, err)
	assert.Equal(t, "format", f())

	assert.True(t, r.Has(" fmt "))
	assert.Equal(t, []string{"org.example.Format"}, r.List())
	assert.Equal(t, []string{"fmt"}, r.Aliases("org.example.Format"))
}

func TestLookupMissIsSourceError(t *testing.T) {
	r := New[factory]("serde")
	require.NoError(t, r.Register("b", func() string { return "b" }))
	require.NoError(t, r.Register("a", func() string { return "a" }))

	_, err := r.Lookup("org.example.Missing")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSource))

	var typed *errors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, []string{"a", "b"}, typed.Details["known"])
}

func TestRegisterDuplicates(t *testing.T) {
	r := New[factory]("serde")
	require.NoError(t, r.Register("x", nil, "short"))

	err := r.Register("x", nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))

	err = r.Register("y", nil, "short")
	assert.Error(t, err)
	assert.False(t, r.Has("y"))

	assert.Error(t, r.Register("", nil))
	assert.Panics(t, func() { r.MustRegister("x", nil) })
}

func TestConcurrentLookups(t *testing.T) {
	r := New[factory]("serde")
	r.MustRegister("x", func() string { return "x" })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := r.Lookup("x")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}
