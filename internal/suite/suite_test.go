package suite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/alevsk/macropolo/internal/assertion"
	"github.com/alevsk/macropolo/internal/environment"
	"github.com/alevsk/macropolo/internal/mock"
	"github.com/alevsk/macropolo/internal/spec"
	"github.com/alevsk/macropolo/internal/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEnv records what a procedure configures and renders fixed markup
type fakeEnv struct {
	setups    int
	renders   int
	context   map[string]any
	filters   map[string]environment.Filter
	templates map[string]map[string]string
	file      string
	macro     string
	args      []any
	kwargs    map[string]any
	markup    string
	renderErr error
}

func (f *fakeEnv) Setup() error {
	f.setups++
	f.context = map[string]any{}
	f.filters = map[string]environment.Filter{}
	f.templates = map[string]map[string]string{}
	return nil
}

func (f *fakeEnv) AddFilter(name string, filter environment.Filter) { f.filters[name] = filter }

func (f *fakeEnv) AddContext(name string, value any) { f.context[name] = value }

func (f *fakeEnv) AddTemplateMacro(template, macro, contents string) {
	if f.templates[template] == nil {
		f.templates[template] = map[string]string{}
	}
	f.templates[template][macro] = contents
}

func (f *fakeEnv) RenderMacro(file, macro string, args []any, kwargs map[string]any) (*goquery.Document, error) {
	f.renders++
	f.file, f.macro, f.args, f.kwargs = file, macro, args, kwargs
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return environment.Parse(f.markup)
}

// fakeFactory hands out a new fakeEnv per call and keeps them for inspection
type fakeFactory struct {
	markup string
	envs   []*fakeEnv
}

func (ff *fakeFactory) factory() (environment.Environment, error) {
	env := &fakeEnv{markup: ff.markup}
	ff.envs = append(ff.envs, env)
	return env, nil
}

func decode(t *testing.T, doc string) *spec.Specification {
	t.Helper()
	s, err := spec.Decode([]byte(doc), spec.FormatJSON, "inline.json")
	require.NoError(t, err)
	return s
}

func jinjaFactory(t *testing.T) environment.Factory {
	t.Helper()
	factory, err := environment.NewFactory(environment.EngineJinja, environment.Options{
		Search: environment.SearchOptions{Root: filepath.Join("testdata", "templates")},
	})
	require.NoError(t, err)
	return factory
}

func TestBuild(t *testing.T) {
	s := decode(t, `{
		"file": "m.html",
		"tests": [
			{"macro_name": "render_button"},
			{"macro_name": "render_link", "skip": true}
		]
	}`)

	suite := Build("MTestCase", (&fakeFactory{}).factory, s)

	assert.Equal(t, "MTestCase", suite.Name)
	assert.Equal(t, "m.html", suite.File)
	assert.Equal(t, "inline.json", suite.Path)
	assert.Equal(t, []string{"test_0render_button", "test_1render_link"}, suite.Names())

	tc, ok := suite.Lookup("test_1render_link")
	require.True(t, ok)
	assert.True(t, tc.Skip)
	assert.Equal(t, "skipping render_link", tc.SkipReason)

	_, ok = suite.Lookup("test_2render_link")
	assert.False(t, ok)
}

func TestSkippedTestNeverRenders(t *testing.T) {
	ff := &fakeFactory{markup: "<p>x</p>"}
	suite := Build("MTestCase", ff.factory, decode(t, `{
		"file": "m.html",
		"tests": [{"macro_name": "greet", "skip": true}]
	}`))

	results := suite.Execute(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, types.StatusSkip, results[0].Status)
	assert.Equal(t, "skipping greet", results[0].Message)
	assert.Empty(t, ff.envs, "no environment is built for a skipped test")
}

func TestProcedureConfiguresEnvironment(t *testing.T) {
	ff := &fakeFactory{markup: `<p class="greeting">hi</p>`}
	suite := Build("MTestCase", ff.factory, decode(t, `{
		"file": "m.html",
		"tests": [{
			"macro_name": "greet",
			"arguments": ["a", 1],
			"keyword_arguments": {"size": "lg"},
			"context": {"who": "World"},
			"mock_filters": {"shout": "LOUD"},
			"mock_context_functions": {"now": ["t1", "t2"]},
			"templates": {"icons.html": {"star": "<b>*</b>"}},
			"assertions": [{"selector": "p.greeting", "assertion": "equal", "value": "hi"}]
		}]
	}`))

	results := suite.Execute(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusPass, results[0].Status, results[0].Message)

	require.Len(t, ff.envs, 1)
	env := ff.envs[0]
	assert.Equal(t, 1, env.setups)
	assert.Equal(t, 1, env.renders)
	assert.Equal(t, "m.html", env.file)
	assert.Equal(t, "greet", env.macro)
	assert.Equal(t, []any{"a", int64(1)}, env.args)
	assert.Equal(t, map[string]any{"size": "lg"}, env.kwargs)
	assert.Equal(t, "World", env.context["who"])
	assert.Equal(t, map[string]map[string]string{"icons.html": {"star": "<b>*</b>"}}, env.templates)

	out, err := env.filters["shout"]("x")
	require.NoError(t, err)
	assert.Equal(t, "LOUD", out)

	now, ok := env.context["now"].(func(args ...any) (any, error))
	require.True(t, ok, "context functions are registered as callables")
	first, err := now()
	require.NoError(t, err)
	second, err := now()
	require.NoError(t, err)
	assert.Equal(t, []any{"t1", "t2"}, []any{first, second})
	_, err = now()
	assert.ErrorIs(t, err, mock.ErrExhausted)
}

func TestArgumentsMappingMatchesKeywordArguments(t *testing.T) {
	mapping := &fakeFactory{markup: "<p></p>"}
	Build("A", mapping.factory, decode(t, `{
		"file": "m.html",
		"tests": [{"macro_name": "item", "arguments": {"id": 7, "label": "L"}}]
	}`)).Execute(context.Background())

	keywords := &fakeFactory{markup: "<p></p>"}
	Build("B", keywords.factory, decode(t, `{
		"file": "m.html",
		"tests": [{"macro_name": "item", "keyword_arguments": {"id": 7, "label": "L"}}]
	}`)).Execute(context.Background())

	require.Len(t, mapping.envs, 1)
	require.Len(t, keywords.envs, 1)
	if diff := cmp.Diff(keywords.envs[0].args, mapping.envs[0].args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(keywords.envs[0].kwargs, mapping.envs[0].kwargs); diff != "" {
		t.Errorf("kwargs mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, mapping.envs[0].args)
}

func TestFreshEnvironmentPerTest(t *testing.T) {
	ff := &fakeFactory{markup: "<p></p>"}
	suite := Build("MTestCase", ff.factory, decode(t, `{
		"file": "m.html",
		"tests": [
			{"macro_name": "a", "context": {"only_first": true}},
			{"macro_name": "b"}
		]
	}`))

	suite.Execute(context.Background())

	require.Len(t, ff.envs, 2)
	assert.NotSame(t, ff.envs[0], ff.envs[1])
	assert.NotContains(t, ff.envs[1].context, "only_first")
}

func TestAssertionsStopAtFirstFailure(t *testing.T) {
	ff := &fakeFactory{markup: `<p class="a">one</p>`}
	suite := Build("MTestCase", ff.factory, decode(t, `{
		"file": "m.html",
		"tests": [{
			"macro_name": "greet",
			"assertions": [
				{"selector": "p.a", "assertion": "equal", "value": "two"},
				{"selector": "p.a", "assertion": "unknown kind"}
			]
		}]
	}`))

	results := suite.Execute(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusFail, results[0].Status)
	assert.Equal(t,
		`"two" "equal" "p.a" selection failed in macro greet in m.html: assertion failed: selection "p.a" at index 0 is "<p class=\"a\">one</p>"`,
		results[0].Message)
}

func TestRenderErrorIsReportedAsError(t *testing.T) {
	env := &fakeEnv{renderErr: environment.ErrRender}
	suite := Build("MTestCase", func() (environment.Environment, error) { return env, nil }, decode(t, `{
		"file": "m.html",
		"tests": [{"macro_name": "greet"}]
	}`))

	results := suite.Execute(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusError, results[0].Status)
	assert.Equal(t, environment.ErrRender.Error(), results[0].Message)
}

func TestUnimplementedEnvironment(t *testing.T) {
	suite := Build("MTestCase", func() (environment.Environment, error) {
		return environment.Unimplemented{}, nil
	}, decode(t, `{"file": "m.html", "tests": [{"macro_name": "greet"}]}`))

	tc, _ := suite.Lookup("test_0greet")
	err := suite.run(tc)
	assert.ErrorIs(t, err, environment.ErrNotImplemented)
}

func TestExecuteCancelled(t *testing.T) {
	ff := &fakeFactory{markup: "<p></p>"}
	suite := Build("MTestCase", ff.factory, decode(t, `{"file": "m.html", "tests": [{"macro_name": "greet"}]}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, suite.Execute(ctx))
	_, err := suite.ExecuteTest(ctx, "test_0greet")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteTestUnknown(t *testing.T) {
	suite := Build("MTestCase", (&fakeFactory{}).factory, decode(t, `{"file": "m.html", "tests": [{"macro_name": "greet"}]}`))

	_, err := suite.ExecuteTest(context.Background(), "test_9greet")
	assert.ErrorIs(t, err, ErrUnknownTest)
}

func TestJinjaScenarios(t *testing.T) {
	suite, err := BuildFile("MTestCase", jinjaFactory(t), filepath.Join("testdata", "specs", "m.json"))
	require.NoError(t, err)

	results := suite.Execute(context.Background())
	require.Len(t, results, 5)

	tests := []struct {
		test   string
		status types.Status
		cause  error
	}{
		{test: "test_0greet", status: types.StatusPass},
		{test: "test_1shout_twice", status: types.StatusPass},
		{test: "test_2item", status: types.StatusFail},
		{test: "test_3item", status: types.StatusFail, cause: assertion.ErrAttributeMissing},
		{test: "test_4results", status: types.StatusSkip},
	}
	for i, tt := range tests {
		t.Run(tt.test, func(t *testing.T) {
			r := results[i]
			assert.Equal(t, tt.test, r.Test)
			assert.Equal(t, tt.status, r.Status, r.Message)
			if tt.cause != nil {
				assert.Contains(t, r.Message, tt.cause.Error())
			}
		})
	}

	tc, ok := suite.Lookup("test_3item")
	require.True(t, ok)
	err = suite.run(tc)
	assert.True(t, errors.Is(err, assertion.ErrAssertionFailed))
	assert.True(t, errors.Is(err, assertion.ErrAttributeMissing))
}

func TestJinjaMockedContextFunction(t *testing.T) {
	suite := Build("MTestCase", jinjaFactory(t), decode(t, `{
		"file": "m.html",
		"tests": [{
			"macro_name": "results",
			"mock_context_functions": {"search": [["first", "second"]]},
			"assertions": [
				{"selector": "li", "assertion": "equal", "value": "first"},
				{"selector": "li", "index": 1, "assertion": "equal", "value": "second"},
				{"selector": "li", "index": 2, "assertion": "equal", "value": ""}
			]
		}]
	}`))

	results := suite.Execute(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusPass, results[0].Status, results[0].Message)
}

func TestJinjaFilterSequences(t *testing.T) {
	suite := Build("MTestCase", jinjaFactory(t), decode(t, `{
		"file": "m.html",
		"tests": [
			{"macro_name": "shout_twice", "mock_filters": {"shout": ["A"]},
			 "assertions": [{"selector": "i", "index": 1, "assertion": "equal", "value": "A"}]},
			{"macro_name": "shout_twice", "mock_filters": {"shout": ["A", "B", "C"]},
			 "assertions": [{"selector": "i", "index": 1, "assertion": "equal", "value": "B"}]},
			{"macro_name": "shout_thrice", "mock_filters": {"shout": ["A", "B"]}}
		]
	}`))

	results := suite.Execute(context.Background())
	require.Len(t, results, 3)

	// a one element list is a constant
	assert.Equal(t, types.StatusPass, results[0].Status, results[0].Message)
	// unused values are fine
	assert.Equal(t, types.StatusPass, results[1].Status, results[1].Message)
	// a third call on two values fails the render
	assert.Equal(t, types.StatusError, results[2].Status)
	assert.Contains(t, results[2].Message, mock.ErrExhausted.Error())
}

func TestRun(t *testing.T) {
	ff := &fakeFactory{markup: `<p class="greeting">Hello World!</p>`}
	suite := Build("MTestCase", ff.factory, decode(t, `{
		"file": "m.html",
		"tests": [
			{"macro_name": "greet", "assertions": [{"selector": "p.greeting", "assertion": "in", "value": "World"}]},
			{"macro_name": "greet", "skip": true}
		]
	}`))

	suite.Run(t)
	assert.Len(t, ff.envs, 1)
}
