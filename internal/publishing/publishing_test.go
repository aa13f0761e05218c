package publishing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentmux/capability"
	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/model"
)

var binding = capability.Binding{Name: "writer", Provider: "scripted", ModelID: "gemma2-9b-it"}

// copyFromLastTool answers with the "copy" field of the latest tool result.
func copyFromLastTool(req model.Request) (*model.Response, error) {
	for i := len(req.Turns) - 1; i >= 0; i-- {
		if r := req.Turns[i].ToolResult; r != nil {
			var out struct {
				Copy string `json:"copy"`
			}
			if err := json.Unmarshal([]byte(r.Content()), &out); err != nil {
				return nil, err
			}

			return &model.Response{Text: out.Copy}, nil
		}
	}

	return &model.Response{Text: "nothing"}, nil
}

func TestPublisher_WriteThenEdit(t *testing.T) {
	copywriter := model.NewScriptedModel("cw", model.Text("draft about gophers"))
	editor := model.NewScriptedModel("ed", model.Text("final"))
	publisher := model.NewScriptedModel("pub",
		model.Call(CopywriterTool, `{"topic":"gophers"}`),
		model.Call(EditorTool, `{"copy":"draft about gophers"}`),
		copyFromLastTool,
	)

	a, err := NewPublisher(binding, Models{Copywriter: copywriter, Editor: editor, Publisher: publisher})
	require.NoError(t, err)
	assert.Equal(t, PublisherName, a.Name())

	out, err := a.Generate(context.Background(), "Write a blog post about gophers", nil)
	require.NoError(t, err)
	assert.Equal(t, "final", out)

	assert.Equal(t, "Create a blog post about gophers", copywriter.Requests()[0].LastUserText())
	assert.Equal(t, "Edit the following blog post only returning the edited copy: draft about gophers", editor.Requests()[0].LastUserText())

	tools := publisher.Requests()[0].Tools
	require.Len(t, tools, 2)
	assert.Equal(t, CopywriterTool, tools[0].Function.Name)
	assert.Equal(t, EditorTool, tools[1].Function.Name)
}

func TestPublisher_InvalidToolInput(t *testing.T) {
	copywriter := model.NewScriptedModel("cw", model.Text("never"))
	publisher := model.NewScriptedModel("pub", model.Call(CopywriterTool, `{"subject":"gophers"}`))

	a, err := NewPublisher(binding, Models{Copywriter: copywriter, Editor: model.UppercaseModel{}, Publisher: publisher})
	require.NoError(t, err)

	_, err = a.Generate(context.Background(), "post", nil)
	assert.ErrorIs(t, err, core.ErrToolInputInvalid)
	assert.Equal(t, 0, copywriter.CallCount())
}

func TestNewPublisher_MissingModel(t *testing.T) {
	_, err := NewPublisher(binding, Models{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
