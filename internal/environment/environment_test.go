package environment

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnimplemented(t *testing.T) {
	var env Environment = Unimplemented{}

	assert.ErrorIs(t, env.Setup(), ErrNotImplemented)

	doc, err := env.RenderMacro("m.html", "greet", nil, nil)
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestParse(t *testing.T) {
	doc, err := Parse(`<p class="x">hi</p>`)
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Find("body").Length(), "parser adds the document body")
	assert.Equal(t, "hi", doc.Find("p.x").Text())
}

func TestFactory(t *testing.T) {
	tests := []struct {
		engine  Engine
		want    any
		wantErr bool
	}{
		{engine: EngineJinja, want: &Jinja{}},
		{engine: EngineGoTemplate, want: &GoTemplate{}},
		{engine: "mustache", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.engine), func(t *testing.T) {
			factory, err := NewFactory(tt.engine, Options{})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownEngine)
				return
			}
			require.NoError(t, err)

			first, err := factory()
			require.NoError(t, err)
			second, err := factory()
			require.NoError(t, err)

			assert.IsType(t, tt.want, first)
			assert.NotSame(t, first, second, "every call builds a fresh environment")
		})
	}
}

func TestParseEngine(t *testing.T) {
	e, err := ParseEngine("gotemplate")
	require.NoError(t, err)
	assert.Equal(t, EngineGoTemplate, e)

	_, err = ParseEngine("jinja2")
	assert.True(t, errors.Is(err, ErrUnknownEngine))
}

func TestRenderBeforeSetup(t *testing.T) {
	for _, env := range []Environment{NewJinja(Options{}), NewGoTemplate(Options{})} {
		_, err := env.RenderMacro("macros.html", "greet", nil, nil)
		assert.ErrorIs(t, err, ErrRender)
	}
}

func TestSearchPaths(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{
		"macros/forms",
		"_partials/inner",
		"_keep",
		".cache",
		"vendor",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "macros", "a.html"), []byte("x"), 0o644))

	paths, err := SearchPaths(SearchOptions{
		Root:      root,
		Exclude:   []string{"_*", "*cache*", "vendor"},
		Whitelist: []string{"_keep"},
	})
	require.NoError(t, err)

	var rel []string
	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{".", ".cache", "_keep", "macros", "macros/forms"}, rel)
}

func TestSearchPathsErrors(t *testing.T) {
	_, err := SearchPaths(SearchOptions{Root: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.html")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = SearchPaths(SearchOptions{Root: file})
	assert.Error(t, err)

	_, err = SearchPaths(SearchOptions{Root: t.TempDir(), Exclude: []string{"[a-"}})
	assert.Error(t, err)
}

// render sets up env, applies register and renders macro
func render(t *testing.T, env Environment, register func(Environment), file, macro string, args []any, kwargs map[string]any) *goquery.Document {
	t.Helper()
	require.NoError(t, env.Setup())
	if register != nil {
		register(env)
	}
	doc, err := env.RenderMacro(file, macro, args, kwargs)
	require.NoError(t, err)
	return doc
}

func sequence(values ...string) Filter {
	n := 0
	return func(value any, args ...any) (any, error) {
		v := values[n]
		n++
		return v, nil
	}
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
