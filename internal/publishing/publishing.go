// Package publishing builds the blog publishing agents: a publisher that
// first asks a copywriter agent for a draft about a topic, then asks an
// editor agent to polish it, and returns the edited copy.
package publishing

import (
	"github.com/hupe1980/agentmux/agent"
	"github.com/hupe1980/agentmux/capability"
	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/model"
	"github.com/hupe1980/agentmux/tool"
)

// Names of the publishing agent and its tools.
const (
	PublisherName  = "publisherAgent"
	CopywriterTool = "copywriter-agent"
	EditorTool     = "editor-agent"
)

// Models are the models backing the three agents. They may be the same
// instance when all agents share one capability.
type Models struct {
	Copywriter model.Model
	Editor     model.Model
	Publisher  model.Model
}

// NewPublisher creates the publisher agent wired to its copywriter and
// editor tools. optFns apply to all three agents.
func NewPublisher(binding capability.Binding, models Models, optFns ...func(o *agent.Options)) (*agent.Agent, error) {
	if models.Copywriter == nil || models.Editor == nil || models.Publisher == nil {
		return nil, core.InvalidInput("publishing needs copywriter, editor and publisher models")
	}

	copywriter, err := agent.New("Copywriter", binding, models.Copywriter, append(optFns, func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromText("You are a copywriter agent that writes blog post copy.")
	})...)
	if err != nil {
		return nil, err
	}

	editor, err := agent.New("Editor", binding, models.Editor, append(optFns, func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromText("You are an editor agent that edits blog post copy.")
	})...)
	if err != nil {
		return nil, err
	}

	copywriterTool := tool.FromAgent(copywriter, func(o *tool.AgentToolOptions) {
		o.Name = CopywriterTool
		o.Description = "Calls the copywriter agent to write blog post copy."
		o.Parameters = tool.TextParameters("topic", "Blog post topic")
		o.Prompt = "Create a blog post about {{.topic}}"
		o.OutputField = "copy"
	})

	editorTool := tool.FromAgent(editor, func(o *tool.AgentToolOptions) {
		o.Name = EditorTool
		o.Description = "Calls the editor agent to edit blog post copy."
		o.Parameters = tool.TextParameters("copy", "Blog post copy")
		o.Prompt = "Edit the following blog post only returning the edited copy: {{.copy}}"
		o.OutputField = "copy"
	})

	return agent.New(PublisherName, binding, models.Publisher, append(optFns, func(o *agent.Options) {
		o.Description = "Writes and edits a blog post about a topic."
		o.Instruction = agent.NewInstructionFromText("You are a publisher agent that first calls the copywriter agent to write blog post copy about a specific topic and then calls the editor agent to edit the copy. Just return the final edited copy.")
		o.Tools = []tool.Tool{copywriterTool, editorTool}
	})...)
}
