// Package httpapi exposes the orchestrator over HTTP with gin. Request
// bodies are {"text": "..."}; answers are {"text": "..."}; failures are
// {"error": {"code": ..., "message": ...}} with a status derived from the
// error code.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/agentmux"
	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/logging"
	"github.com/hupe1980/agentmux/workflow"
)

// ConversationHeader carries the optional conversation id.
const ConversationHeader = "X-Conversation-ID"

// Orchestrator is the part of the orchestrator the transport needs.
type Orchestrator interface {
	DispatchConversation(ctx context.Context, agentName, conversationID, text string) (string, error)
	RunWorkflow(ctx context.Context, name, text string) (*workflow.Result, error)
	Entries() []agentmux.Entry
}

// Routes names the agents behind the fixed legacy routes.
type Routes struct {
	Chatbot   string
	Publisher string
	Meme      string
}

// Options configures NewRouter.
type Options struct {
	// Routes binds /chatbot, /agents and /agents-workflow to agents. Empty
	// names leave the route unregistered.
	Routes Routes

	// Artifacts serves GET /artifacts/*key when set.
	Artifacts core.ArtifactStore

	// Transform backs POST /input; nil leaves the route unregistered.
	Transform func(string) string

	// RequestTimeout bounds each request; 0 disables the deadline.
	RequestTimeout time.Duration

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// NewRouter builds the gin engine.
func NewRouter(o Orchestrator, optFns ...func(o *Options)) *gin.Engine {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	h := &handler{orchestrator: o, artifacts: opts.Artifacts, transform: opts.Transform, logger: opts.Logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(opts.Logger), requestTimeout(opts.RequestTimeout))

	r.GET("/healthz", h.health)

	if opts.Transform != nil {
		r.POST("/input", h.input)
	}

	for path, name := range map[string]string{
		"/chatbot":         opts.Routes.Chatbot,
		"/agents":          opts.Routes.Publisher,
		"/agents-workflow": opts.Routes.Meme,
	} {
		if name != "" {
			r.POST(path, h.fixedAgent(name))
		}
	}

	v1 := r.Group("/v1")
	{
		v1.GET("/agents", h.listAgents)
		v1.POST("/agents/:name", h.dispatch)
		v1.POST("/workflows/:name", h.runWorkflow)
	}

	if opts.Artifacts != nil {
		r.GET("/artifacts/*key", h.getArtifact)
	}

	return r
}

// NewServer wraps handler in an http.Server with the given timeouts.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}
