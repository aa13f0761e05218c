package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/agentmux/artifact"
	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/logging"
)

// TextRequest is the inbound body of every text route.
type TextRequest struct {
	Text string `json:"text"`
}

// TextResponse is the outbound body of every text route.
type TextResponse struct {
	Text string `json:"text"`
}

// WorkflowResponse is returned by POST /v1/workflows/:name.
type WorkflowResponse struct {
	Workflow string `json:"workflow"`
	Output   any    `json:"output"`
	Locator  string `json:"locator,omitempty"`
}

type handler struct {
	orchestrator Orchestrator
	artifacts    core.ArtifactStore
	transform    func(string) string
	logger       logging.Logger
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) input(c *gin.Context) {
	text, ok := bindText(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, TextResponse{Text: h.transform(text)})
}

func (h *handler) fixedAgent(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.generate(c, name)
	}
}

func (h *handler) dispatch(c *gin.Context) {
	h.generate(c, c.Param("name"))
}

func (h *handler) generate(c *gin.Context, agentName string) {
	text, ok := bindText(c)
	if !ok {
		return
	}

	answer, err := h.orchestrator.DispatchConversation(c.Request.Context(), agentName, c.GetHeader(ConversationHeader), text)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, TextResponse{Text: answer})
}

func (h *handler) runWorkflow(c *gin.Context) {
	text, ok := bindText(c)
	if !ok {
		return
	}

	res, err := h.orchestrator.RunWorkflow(c.Request.Context(), c.Param("name"), text)
	if err != nil {
		writeError(c, err)
		return
	}

	out := WorkflowResponse{Workflow: res.Workflow, Output: res.Output}
	if loc, ok := res.Locator(); ok {
		out.Locator = loc
	}

	c.JSON(http.StatusOK, out)
}

func (h *handler) listAgents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": h.orchestrator.Entries()})
}

func (h *handler) getArtifact(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	data, contentType, err := h.artifacts.Get(c.Request.Context(), key)
	switch {
	case errors.Is(err, artifact.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "artifact "+key+" not found"))
		return
	case errors.Is(err, artifact.ErrInvalidKey):
		c.JSON(http.StatusBadRequest, errorBody(string(core.CodeInvalidInput), err.Error()))
		return
	case err != nil:
		h.logger.Error("http.artifact.failed", "key", key, "error", err.Error())
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "failed to load artifact"))

		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Data(http.StatusOK, contentType, data)
}

// bindText decodes the body and rejects blank text. It writes the error
// response itself and reports whether the handler may continue.
func bindText(c *gin.Context) (string, bool) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, core.InvalidInput("invalid JSON body: "+err.Error()))
		return "", false
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(c, core.InvalidInput("text must not be empty"))
		return "", false
	}

	return req.Text, true
}
