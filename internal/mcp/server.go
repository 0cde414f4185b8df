// Package mcp exposes the observability tools over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/moolen/vigil/internal/analysis"
	"github.com/moolen/vigil/internal/logging"
	"github.com/moolen/vigil/internal/notify"
	"github.com/moolen/vigil/internal/pipeline"
)

// Caller runs a tool by name. *pipeline.Toolbox implements it.
type Caller interface {
	Call(ctx context.Context, name string, args map[string]any) (any, error)
}

// Server wraps the mcp-go server with the vigil tool set.
type Server struct {
	mcpServer *server.MCPServer
	caller    Caller
	version   string
	logger    *logging.Logger
}

// NewServer creates an MCP server whose tools are served by caller.
func NewServer(caller Caller, version string) *Server {
	mcpServer := server.NewMCPServer(
		"vigil",
		version,
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		caller:    caller,
		version:   version,
		logger:    logging.GetLogger("mcp"),
	}
	s.registerTools()
	s.registerPrompts()
	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	empty := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}

	s.registerTool(
		pipeline.ToolAnalyzeHealth,
		"Analyze workload health in the configured namespace: per-pod risk scores, health score, insights, predictions and recommendations",
		empty,
	)

	s.registerTool(
		pipeline.ToolCorrelate,
		"Correlate recent Kubernetes warning events with current metrics and report anomalies and causal chains",
		empty,
	)

	s.registerTool(
		pipeline.ToolPredict,
		"Predict system behaviour from one hour of CPU, memory, error and request trends",
		empty,
	)

	s.registerTool(
		pipeline.ToolExplain,
		"Explain a pipeline failure with root causes, contributing factors and resolution steps",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"failure_description": map[string]any{
					"type":        "string",
					"description": "Optional: description of the failure. Omit or use 'auto-detect' to derive it from current unit state",
				},
			},
		},
	)

	s.registerTool(
		pipeline.ToolNotify,
		"Send a notification about the pipeline to the configured chat",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "Notification text (Markdown)",
				},
				"severity": map[string]any{
					"type":        "string",
					"enum":        severityNames(),
					"description": "Optional: severity (default info)",
				},
			},
			"required": []string{"message"},
		},
	)

	s.registerTool(
		pipeline.ToolChaos,
		"Describe a chaos scenario: expected impacts, monitoring points and success criteria. Nothing is injected",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"scenario_type": map[string]any{
					"type":        "string",
					"enum":        analysis.ChaosScenarioNames(),
					"description": "Optional: scenario (default latency)",
				},
			},
		},
	)
}

func (s *Server) registerTool(name, description string, inputSchema map[string]any) {
	schemaJSON, err := json.Marshal(inputSchema)
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal schema for tool %s: %v", name, err))
	}

	mcpTool := mcp.NewToolWithRawSchema(name, description, schemaJSON)
	s.mcpServer.AddTool(mcpTool, s.createToolHandler(name))
}

func (s *Server) createToolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.logger.Debug("Tool call %s", name)

		result, err := s.caller.Call(ctx, name, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Tool execution failed: %v", err)), nil
		}

		resultJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
		}

		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

func (s *Server) registerPrompts() {
	gatePrompt := mcp.Prompt{
		Name:        "deployment_gate",
		Description: "Decide whether a deployment may proceed based on current system health",
		Arguments: []mcp.PromptArgument{
			{Name: "environment", Description: "Optional deployment environment name", Required: false},
			{Name: "symptoms", Description: "Optional brief description of observed symptoms", Required: false},
		},
	}

	s.mcpServer.AddPrompt(gatePrompt, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		env := request.Params.Arguments["environment"]
		symptoms := request.Params.Arguments["symptoms"]

		var b strings.Builder
		b.WriteString("Use analyze_system_health to get the health score and unit states.")
		if env != "" {
			fmt.Fprintf(&b, " The target environment is %s.", env)
		}
		b.WriteString(" If any unit is not ready or the score is below 70, call explain_failure_with_context")
		if symptoms != "" {
			fmt.Fprintf(&b, " with failure_description %q", symptoms)
		}
		b.WriteString(" and answer with 🚨 DEPLOYMENT BLOCKED, the problem, the root cause and three concrete kubectl actions.")
		b.WriteString(" Otherwise answer with ✅ DEPLOYMENT APPROVED and the health score.")

		return &mcp.GetPromptResult{
			Description: "Deployment gate workflow",
			Messages: []mcp.PromptMessage{
				{
					Role:    mcp.RoleUser,
					Content: mcp.TextContent{Type: "text", Text: b.String()},
				},
			},
		}, nil
	})
}

func severityNames() []string {
	return []string{
		string(notify.SeverityCritical),
		string(notify.SeverityWarning),
		string(notify.SeverityInfo),
		string(notify.SeveritySuccess),
		string(notify.SeverityDeployment),
		string(notify.SeverityRollback),
	}
}
