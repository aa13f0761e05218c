package meme

import (
	"github.com/hupe1980/agentmux/agent"
	"github.com/hupe1980/agentmux/capability"
	"github.com/hupe1980/agentmux/model"
	"github.com/hupe1980/agentmux/tool"
	"github.com/hupe1980/agentmux/workflow"
)

// AgentName is the registered name of the meme generator agent.
const AgentName = "memeGeneratorAgent"

// Instruction drives the meme generator agent.
const Instruction = `You are a helpful AI assistant that turns workplace frustrations into funny, shareable memes.

YOUR GOAL: When a user describes ANY workplace frustration, you will:
1. FIRST, respond with a humorous, friendly, warm and understanding comment about the frustration, and state you're going to help them out.
2. THEN run the "meme-generation" tool with the user's description. Do NOT ask for more details.
3. After running the tool, take the shareable URL from its output and present it to the user with an enthusiastic, celebratory message that relates to their frustration.

You have access to chat history, so you can reference previous conversations and memes created for the user.

EDGE CASES:
- If someone just says "hi" or greets you, ask them about their work frustrations.
- If they mention something positive, acknowledge it but ask if they have any frustrations to turn into memes.
- Keep track of memes you've created for each user to avoid repetition.`

// NewAgent creates the meme generator agent with the workflow as its only tool.
func NewAgent(binding capability.Binding, llm model.Model, wf *workflow.Workflow, optFns ...func(o *agent.Options)) (*agent.Agent, error) {
	return agent.New(AgentName, binding, llm, append(optFns, func(o *agent.Options) {
		o.Description = "Turns workplace frustrations into shareable memes."
		o.Instruction = agent.NewInstructionFromText(Instruction)
		o.Tools = []tool.Tool{tool.FromWorkflow(wf, nil)}
	})...)
}

// NewExtractor creates the agent answering the extraction prompt.
func NewExtractor(binding capability.Binding, llm model.Model, optFns ...func(o *agent.Options)) (*agent.Agent, error) {
	return agent.New("meme-frustration-extractor", binding, llm, append(optFns, func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromText("You analyse workplace complaints. Answer with a single JSON object and nothing else.")
	})...)
}

// NewCaptioner creates the agent answering the caption prompt.
func NewCaptioner(binding capability.Binding, llm model.Model, optFns ...func(o *agent.Options)) (*agent.Agent, error) {
	return agent.New("meme-captioner", binding, llm, append(optFns, func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromText("You write short, witty meme captions. Answer with a single JSON object and nothing else.")
	})...)
}
