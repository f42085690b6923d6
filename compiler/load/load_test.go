package load

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	r := NewResolver("", "")

	p, err := r.Resolve("/src/app/main.functi", "std@math")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("@std", "math.functi"), p)

	p, err = r.Resolve("/src/app/main.functi", "lib/util.functi")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/src/app", "lib/util.functi"), p)

	p, err = r.Resolve("/src/app/main.functi", "../up.functi")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/src", "up.functi"), p)

	p, err = r.Resolve("", "std@io")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("@std", "io.functi"), p)

	_, err = r.Resolve("", "util.functi")
	assert.ErrorAs(t, err, &AnonymousImportError{})

	r = NewResolver("/usr/lib/functi", ".fn")

	p, err = r.Resolve("a.fn", "std@x")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/usr/lib/functi", "x.fn"), p)
}

func TestOverlay(t *testing.T) {
	ctx := context.Background()

	o := Overlay{
		Root: DefaultStdDir,
		FS: fstest.MapFS{
			"math.functi": {Data: []byte("std math")},
		},
		Files: Map{
			"/src/a.functi": []byte("user a"),
		},
	}

	data, err := o.Load(ctx, filepath.Join(DefaultStdDir, "math.functi"))
	require.NoError(t, err)
	assert.Equal(t, "std math", string(data))

	data, err = o.Load(ctx, "/src/a.functi")
	require.NoError(t, err)
	assert.Equal(t, "user a", string(data))

	_, err = o.Load(ctx, "/src/b.functi")
	assert.True(t, errors.Is(err, ErrNotExist))

	_, err = o.Load(ctx, filepath.Join(DefaultStdDir, "none.functi"))
	assert.True(t, errors.Is(err, ErrNotExist))
}
