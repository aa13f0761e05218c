package meme

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentmux/artifact"
	"github.com/hupe1980/agentmux/capability"
	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/model"
)

var testBinding = capability.Binding{Name: "planner", Provider: "scripted", ModelID: "m"}

type fixedGenerator struct {
	name   string
	answer string
	err    error
	inputs []string
}

func (g *fixedGenerator) Name() string { return g.name }
func (g *fixedGenerator) Generate(_ context.Context, input string, _ []core.Turn) (string, error) {
	g.inputs = append(g.inputs, input)
	return g.answer, g.err
}

const extracted = `{"frustrations":[{"text":"three meetings that could have been an email","category":"meetings"}],"mood":"tired","keywords":["meeting","email"]}`

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.NotEmpty(t, c.Memes)

	defaults := 0
	for _, m := range c.Memes {
		if m.Default {
			defaults++
		}
	}

	assert.Equal(t, 1, defaults)
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := ParseCatalog([]byte("memes: []"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("memes:\n  - id: a\n    name: A\n  - id: a\n    name: B\n"))
	assert.ErrorContains(t, err, "duplicate")
}

func TestCatalog_Match(t *testing.T) {
	c := DefaultCatalog()

	m := c.Match(Frustrations{Items: []Frustration{{Text: "Another meeting about the standup", Category: "meetings"}}})
	assert.Equal(t, "meeting-could-have-been-email", m.ID)

	m = c.Match(Frustrations{Items: []Frustration{{Text: "production is on fire again", Category: "other"}}})
	assert.Equal(t, "this-is-fine", m.ID)

	m = c.Match(Frustrations{Items: []Frustration{{Text: "zzz", Category: "unknown"}}})
	assert.Equal(t, "this-is-fine", m.ID)
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(BaseMeme{Name: "Tom & Jerry", Background: "#fff", TextColor: "#000"},
		Captions{Top: "when the <build> breaks", Bottom: "on a friday afternoon before the long weekend"})
	require.NoError(t, err)

	s := string(svg)
	assert.True(t, strings.HasPrefix(s, "<?xml"))
	assert.Contains(t, s, "Tom &amp; Jerry")
	assert.Contains(t, s, "&lt;BUILD&gt;")
	assert.NotContains(t, s, "<BUILD>")
	assert.GreaterOrEqual(t, strings.Count(s, "stroke-width"), 3)
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"one two", "three"}, wrap("one two three", 8))
	assert.Equal(t, []string{"supercalifragilistic"}, wrap("supercalifragilistic", 5))
	assert.Nil(t, wrap("   ", 5))
}

func TestWorkflow_PublishesMeme(t *testing.T) {
	store := artifact.NewInMemoryStore(func(o *artifact.InMemoryOptions) { o.BaseURL = "https://memes.example.com" })
	extractor := &fixedGenerator{name: "x", answer: "```json\n" + extracted + "\n```"}
	captioner := &fixedGenerator{name: "c", answer: `{"top":"this meeting","bottom":"could have been an email"}`}

	wf, err := NewWorkflow(extractor, captioner, store)
	require.NoError(t, err)
	assert.Equal(t, []string{StageExtract, StageFind, StageCaptions, StageRender, StagePublish}, wf.StageNames())

	res, err := wf.Run(context.Background(), "I had three meetings today that could have been an email")
	require.NoError(t, err)

	loc, ok := res.Locator()
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(loc, "https://memes.example.com/memes/"))
	assert.True(t, strings.HasSuffix(loc, ".svg"))

	pub := res.Output.(Published)
	assert.Equal(t, "This Meeting Could Have Been An Email", pub.Meme)

	data, ct, err := store.Get(context.Background(), pub.Key)
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", ct)
	assert.Contains(t, string(data), "THIS MEETING")

	require.Len(t, captioner.inputs, 1)
	assert.Contains(t, captioner.inputs[0], "This Meeting Could Have Been An Email")
	assert.Contains(t, captioner.inputs[0], "three meetings that could have been an email")
}

func TestWorkflow_ExtractionFallsBackToInput(t *testing.T) {
	f, err := extract(context.Background(), &fixedGenerator{answer: `{"frustrations":[]}`}, "  my laptop is slow ")
	require.NoError(t, err)
	assert.Equal(t, []Frustration{{Text: "my laptop is slow", Category: "other"}}, f.Items)
}

func TestWorkflow_StageFailures(t *testing.T) {
	store := artifact.NewInMemoryStore()

	tests := []struct {
		name      string
		extractor *fixedGenerator
		captioner *fixedGenerator
		stage     string
	}{
		{"extractor error", &fixedGenerator{err: errors.New("down")}, &fixedGenerator{}, StageExtract},
		{"extractor not json", &fixedGenerator{answer: "sorry"}, &fixedGenerator{}, StageExtract},
		{"empty captions", &fixedGenerator{answer: extracted}, &fixedGenerator{answer: `{"top":" ","bottom":""}`}, StageCaptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, err := NewWorkflow(tt.extractor, tt.captioner, store)
			require.NoError(t, err)

			_, err = wf.Run(context.Background(), "meetings")

			var e *core.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, core.CodeWorkflowStageFailed, e.Code)
			assert.Equal(t, tt.stage, e.Stage)
		})
	}

	keys, _ := store.List(context.Background(), "")
	assert.Empty(t, keys)
}

func TestNewWorkflow_RequiresCollaborators(t *testing.T) {
	_, err := NewWorkflow(nil, &fixedGenerator{}, artifact.NewInMemoryStore())
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestMemeAgent_EndToEnd(t *testing.T) {
	store := artifact.NewInMemoryStore(func(o *artifact.InMemoryOptions) { o.BaseURL = "https://memes.example.com" })

	extractor, err := NewExtractor(testBinding, model.NewScriptedModel("x", model.Text(extracted)))
	require.NoError(t, err)

	captioner, err := NewCaptioner(testBinding, model.NewScriptedModel("c", model.Text(`{"top":"a","bottom":"b"}`)))
	require.NoError(t, err)

	wf, err := NewWorkflow(extractor, captioner, store)
	require.NoError(t, err)

	m := model.NewScriptedModel("planner",
		model.Call(WorkflowName, `{"text":"too many meetings"}`),
		model.Echo(func(s string) string { return "Your meme is ready: " + s }),
	)

	a, err := NewAgent(testBinding, m, wf)
	require.NoError(t, err)
	assert.Equal(t, AgentName, a.Name())

	out, err := a.Generate(context.Background(), "too many meetings", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "https://memes.example.com/memes/")
	assert.Contains(t, m.Requests()[0].Instructions, "shareable")
}
