package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/contextmgr"
	"github.com/fyrsmithlabs/agentd/internal/llm"
	"github.com/fyrsmithlabs/agentd/internal/tools"
	"github.com/fyrsmithlabs/agentd/internal/workflow"
)

// finalAnswerPrompt closes the loop once the tool budget is spent.
const finalAnswerPrompt = "You have reached the tool budget for this query. " +
	"Answer the user's question now using only the information already gathered. " +
	"Do not request any more tools."

// ProcessQuery runs one query end to end. It always returns a response,
// never panics through to the caller; Complete is false only when no usable
// answer could be produced.
func (e *Engine) ProcessQuery(ctx context.Context, query string) *Response {
	resp, _ := e.ProcessQueryWithWorkflow(ctx, query)
	return resp
}

// ProcessQueryWithWorkflow additionally returns the workflow state tracked
// for the query, or nil when tracking is disabled. The state is owned by the
// caller after return; completed steps remain queryable even when the query
// ended with a contained error.
func (e *Engine) ProcessQueryWithWorkflow(ctx context.Context, query string) (*Response, *workflow.State) {
	return e.run(ctx, query, nil)
}

// ProcessQueryInterruptible is ProcessQueryWithWorkflow with a hook invoked
// once tracking state exists, before the first model call. The hook's state
// may be used from another goroutine to call Interrupt; the loop checks for
// interruption between iterations and stops with an incomplete response. The
// hook receives nil when tracking is disabled.
func (e *Engine) ProcessQueryInterruptible(ctx context.Context, query string, started func(*workflow.State)) (*Response, *workflow.State) {
	return e.run(ctx, query, started)
}

func (e *Engine) run(ctx context.Context, query string, started func(*workflow.State)) (resp *Response, state *workflow.State) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "engine.ProcessQuery",
		trace.WithAttributes(attribute.Int("query_length", len(query))))
	defer span.End()

	resp = &Response{}
	defer func() {
		if r := recover(); r != nil {
			oerr := NewOrchestrationError(KindInternal, "process query", fmt.Errorf("panic: %v", r))
			e.fail(resp, span, oerr)
		}
		resp.ProcessingTime = time.Since(start)
		if e.queryCounter != nil {
			e.queryCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.Bool("complete", resp.Complete)))
		}
		if e.queryLatency != nil {
			e.queryLatency.Record(ctx, resp.ProcessingTime.Seconds())
		}
	}()

	if strings.TrimSpace(query) == "" {
		e.fail(resp, span, NewOrchestrationError(KindEmptyQuery, "validate query",
			errors.New("query is empty")))
		return resp, nil
	}
	if len(query) > maxQueryLength {
		e.fail(resp, span, NewOrchestrationError(KindQueryTooLong, "validate query",
			fmt.Errorf("query length %d exceeds maximum %d", len(query), maxQueryLength)))
		return resp, nil
	}

	defs, err := e.registry.ListTools()
	if err != nil {
		e.fail(resp, span, containError(KindRegistryFailure, "list tools", err))
		return resp, nil
	}

	toolDefs := make([]llm.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		toolDefs = append(toolDefs, llm.ToolDefinition{
			Name:        d.FullName(),
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: e.systemPrompt(defs)},
		{Role: llm.RoleUser, Content: query},
	}
	mem := e.contextMgr.NewMemory(query, e.config.MaxToolExecutions)

	if e.config.EnableWorkflowTracking {
		wctx := workflow.Context{
			WorkingDir: e.config.WorkingDir,
			Policy:     e.policy,
			Registry:   e.registry,
			Query:      query,
			RequestID:  uuid.New().String(),
			MaxDepth:   e.config.MaxWorkflowDepth,
		}
		state = workflow.NewState("", wctx)
		resp.WorkflowID = state.ID()
		span.SetAttributes(attribute.String("workflow_id", state.ID()))
	}
	if started != nil {
		started(state)
	}

	ec := tools.ExecContext{WorkingDir: e.config.WorkingDir, Policy: e.policy}
	opts := llm.Options{Stream: e.config.Streaming}
	executions := 0

	for {
		if state != nil && state.Status() == workflow.StatusInterrupted {
			e.fail(resp, span, NewOrchestrationError(KindInterrupted, "process query",
				fmt.Errorf("query interrupted: %s", state.InterruptReason())))
			return resp, state
		}

		completion, err := e.client.CompleteWithTools(ctx, messages, toolDefs, opts)
		if err != nil {
			e.fail(resp, span, containError(KindLLMFailure, "complete with tools", err))
			return resp, state
		}

		if len(completion.ToolCalls) == 0 {
			resp.ResponseText = completion.Text
			resp.Complete = true
			break
		}

		if completion.Text != "" {
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: completion.Text})
		}

		// Tool calls run sequentially in the model's requested order; a
		// failed call is rendered back to the model and the loop continues.
		exhausted := false
		for _, call := range completion.ToolCalls {
			if executions >= e.config.MaxToolExecutions {
				exhausted = true
				break
			}
			rendered := e.executeToolCall(ctx, call, ec, state, mem, resp)
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: rendered})
			executions++
		}

		if exhausted || executions >= e.config.MaxToolExecutions {
			final, err := e.forceFinalAnswer(ctx, messages, opts)
			if err != nil {
				e.fail(resp, span, containError(KindLLMFailure, "force final answer", err))
				return resp, state
			}
			resp.ResponseText = final
			resp.Complete = true
			break
		}
	}

	e.logger.Debug("query processed",
		zap.Bool("complete", resp.Complete),
		zap.Int("tool_executions", executions),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, state
}

// executeToolCall runs one requested tool, records the step on the workflow,
// folds the result into the conversation memory, and returns the rendered
// text block for the model's next turn.
func (e *Engine) executeToolCall(ctx context.Context, call llm.ToolCall, ec tools.ExecContext, state *workflow.State, mem *contextmgr.Memory, resp *Response) string {
	stepID := ""
	if state != nil {
		stepID = state.StartStep(stepDisplayName(call), call.Name, call.Arguments)
	}

	result, err := e.registry.Execute(ctx, call.Name, call.Arguments, ec)
	if err != nil {
		// Registry-level failures (unknown tool name) are recoverable from
		// the model's perspective: render them back so it can correct itself.
		namespace, name, splitErr := tools.SplitFullName(call.Name)
		if splitErr != nil {
			name = call.Name
		}
		result = &tools.Result{
			Success:   false,
			Error:     err.Error(),
			ToolName:  name,
			Namespace: namespace,
		}
	}

	if state != nil {
		if result.Success {
			if err := state.CompleteStep(stepID, result); err != nil {
				e.logger.Error("complete step failed", zap.String("step_id", stepID), zap.Error(err))
			}
		} else {
			if err := state.FailStep(stepID, errors.New(result.Error)); err != nil {
				e.logger.Error("fail step failed", zap.String("step_id", stepID), zap.Error(err))
			}
		}
	}

	structured := e.contextMgr.Structure(ctx, result)
	e.contextMgr.Record(ctx, mem, structured)

	resp.ToolsExecuted = append(resp.ToolsExecuted, call.Name)
	resp.ToolResults = append(resp.ToolResults, result)

	if e.toolCounter != nil {
		e.toolCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", call.Name),
			attribute.Bool("success", result.Success),
		))
	}

	rendered := e.contextMgr.Render(structured, mem)
	return fmt.Sprintf("Tool %s result:\n%s", call.Name, rendered)
}

// stepDisplayName derives a readable step name from the call, folding in the
// operation argument when present, e.g. "internal:files read".
func stepDisplayName(call llm.ToolCall) string {
	if op, ok := call.Arguments["operation"].(string); ok && op != "" {
		return call.Name + " " + op
	}
	return call.Name
}

// forceFinalAnswer issues one last model call with no tool definitions.
func (e *Engine) forceFinalAnswer(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: finalAnswerPrompt})
	completion, err := e.client.CompleteWithTools(ctx, messages, nil, opts)
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

// systemPrompt enumerates the registered tools for the model.
func (e *Engine) systemPrompt(defs []tools.Definition) string {
	var b strings.Builder
	b.WriteString("You are a coding assistant working inside a sandboxed workspace at ")
	b.WriteString(e.config.WorkingDir)
	b.WriteString(".\nYou may call the following tools to inspect and modify the workspace:\n")
	for _, d := range defs {
		fmt.Fprintf(&b, "- %s: %s\n", d.FullName(), d.Description)
	}
	b.WriteString("\nCall tools when you need information; answer directly once you have enough.")
	return b.String()
}

func (e *Engine) fail(resp *Response, span trace.Span, oerr *OrchestrationError) {
	span.RecordError(oerr)
	span.SetStatus(codes.Error, oerr.Error())
	e.logger.Warn("query failed",
		zap.String("kind", string(oerr.Kind)),
		zap.Error(oerr),
	)
	resp.Complete = false
	resp.Errors = []string{oerr.Error()}
}
