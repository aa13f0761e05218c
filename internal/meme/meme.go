// Package meme implements the meme-generation workflow: it turns a
// description of workplace frustrations into a captioned SVG meme published
// through an artifact store, and the agent that offers the workflow as a
// tool.
package meme

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agentmux/artifact"
	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/internal/util"
	"github.com/hupe1980/agentmux/logging"
	"github.com/hupe1980/agentmux/telemetry"
	"github.com/hupe1980/agentmux/tool"
	"github.com/hupe1980/agentmux/workflow"
)

// WorkflowName is the registered name of the workflow and of its tool.
const WorkflowName = "meme-generation"

// Stage names in execution order.
const (
	StageExtract  = "extract-frustrations"
	StageFind     = "find-base-meme"
	StageCaptions = "generate-captions"
	StageRender   = "render-meme"
	StagePublish  = "publish-meme"
)

// Frustration is one complaint found in the user's text.
type Frustration struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// Frustrations is the output of the extraction stage.
type Frustrations struct {
	Items    []Frustration `json:"frustrations"`
	Mood     string        `json:"mood"`
	Keywords []string      `json:"keywords"`
}

// Text joins all frustration texts.
func (f Frustrations) Text() string {
	parts := make([]string, 0, len(f.Items))
	for _, it := range f.Items {
		parts = append(parts, it.Text)
	}

	return strings.Join(parts, "; ")
}

// Selection pairs the frustrations with the chosen base meme.
type Selection struct {
	Frustrations Frustrations `json:"frustrations"`
	Meme         BaseMeme     `json:"meme"`
}

// Captions are the texts drawn on the meme.
type Captions struct {
	Top    string `json:"top"`
	Bottom string `json:"bottom"`
}

// Captioned is the output of the caption stage.
type Captioned struct {
	Selection
	Captions Captions `json:"captions"`
}

// Rendered carries the SVG document.
type Rendered struct {
	Captioned
	SVG []byte `json:"-"`
}

// Published is the terminal output; its locator is the shareable URL.
type Published struct {
	ShareableURL string   `json:"shareableUrl"`
	Key          string   `json:"key"`
	Meme         string   `json:"meme"`
	Captions     Captions `json:"captions"`
}

// Locator implements workflow.Locator.
func (p Published) Locator() string { return p.ShareableURL }

const extractPrompt = `Extract the workplace frustrations from the text below.
Respond with JSON only, using this shape:
{"frustrations":[{"text":"short description","category":"meetings|deadlines|management|tooling|communication|other"}],"mood":"one word","keywords":["single","words"]}

Text: {{.}}`

const captionPrompt = `Write meme captions for the "{{.Meme.Name}}" meme.
Top text: {{.Meme.TopHint}}.
Bottom text: {{.Meme.BottomHint}}.
The meme is about these workplace frustrations: {{.Frustrations.Text}}.
Keep each caption under 60 characters and make it funny but kind.
Respond with JSON only: {"top":"...","bottom":"..."}`

// Options configures NewWorkflow.
type Options struct {
	// Catalog defaults to DefaultCatalog().
	Catalog *Catalog
	// KeyPrefix prefixes artifact keys; defaults to "memes".
	KeyPrefix   string
	Logger      logging.Logger
	MaxDepth    int
	Instruments *telemetry.Instruments
}

// NewWorkflow builds the meme-generation workflow. extractor and captioner
// are usually agents on a JSON capable capability; store publishes the SVG.
func NewWorkflow(extractor, captioner tool.Generator, store core.ArtifactStore, optFns ...func(o *Options)) (*workflow.Workflow, error) {
	if extractor == nil || captioner == nil || store == nil {
		return nil, core.InvalidInput("meme workflow needs an extractor, a captioner and an artifact store")
	}

	opts := Options{KeyPrefix: "memes"}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}

	stages := []workflow.Stage{
		workflow.Step(StageExtract, func(ctx context.Context, text string) (Frustrations, error) {
			return extract(ctx, extractor, text)
		}),
		workflow.Step(StageFind, func(_ context.Context, f Frustrations) (Selection, error) {
			return Selection{Frustrations: f, Meme: opts.Catalog.Match(f)}, nil
		}),
		workflow.Step(StageCaptions, func(ctx context.Context, s Selection) (Captioned, error) {
			return caption(ctx, captioner, s)
		}),
		workflow.Step(StageRender, func(_ context.Context, c Captioned) (Rendered, error) {
			svg, err := RenderSVG(c.Meme, c.Captions)
			if err != nil {
				return Rendered{}, fmt.Errorf("render svg: %w", err)
			}

			return Rendered{Captioned: c, SVG: svg}, nil
		}),
		workflow.Step(StagePublish, func(ctx context.Context, r Rendered) (Published, error) {
			key := artifact.NewKey(opts.KeyPrefix, ".svg")

			url, err := store.Save(ctx, key, "image/svg+xml", r.SVG)
			if err != nil {
				return Published{}, fmt.Errorf("publish %s: %w", key, err)
			}

			return Published{ShareableURL: url, Key: key, Meme: r.Meme.Name, Captions: r.Captions}, nil
		}),
	}

	return workflow.New(WorkflowName, stages, func(o *workflow.Options) {
		o.Description = "Turn a description of workplace frustrations into a captioned meme and return its shareable URL."
		o.Logger = opts.Logger
		o.MaxDepth = opts.MaxDepth
		o.Instruments = opts.Instruments
	})
}

func extract(ctx context.Context, extractor tool.Generator, text string) (Frustrations, error) {
	prompt, err := util.RenderTemplate(extractPrompt, text)
	if err != nil {
		return Frustrations{}, err
	}

	answer, err := extractor.Generate(ctx, prompt, nil)
	if err != nil {
		return Frustrations{}, err
	}

	var f Frustrations
	if err := util.DecodeJSONAnswer(answer, &f); err != nil {
		return Frustrations{}, err
	}

	var items []Frustration

	for _, it := range f.Items {
		if strings.TrimSpace(it.Text) != "" {
			items = append(items, it)
		}
	}

	if len(items) == 0 {
		items = []Frustration{{Text: strings.TrimSpace(text), Category: "other"}}
	}

	f.Items = items

	return f, nil
}

func caption(ctx context.Context, captioner tool.Generator, s Selection) (Captioned, error) {
	prompt, err := util.RenderTemplate(captionPrompt, s)
	if err != nil {
		return Captioned{}, err
	}

	answer, err := captioner.Generate(ctx, prompt, nil)
	if err != nil {
		return Captioned{}, err
	}

	var c Captions
	if err := util.DecodeJSONAnswer(answer, &c); err != nil {
		return Captioned{}, err
	}

	c.Top, c.Bottom = strings.TrimSpace(c.Top), strings.TrimSpace(c.Bottom)
	if c.Top == "" && c.Bottom == "" {
		return Captioned{}, errors.New("captioner returned no captions")
	}

	return Captioned{Selection: s, Captions: c}, nil
}
