package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tycode-run/goclaw-core/internal/bootstrap"
	"github.com/tycode-run/goclaw-core/internal/bus"
	"github.com/tycode-run/goclaw-core/internal/config"
	"github.com/tycode-run/goclaw-core/internal/providers"
	"github.com/tycode-run/goclaw-core/internal/store"
	"github.com/tycode-run/goclaw-core/internal/tools"
	"github.com/tycode-run/goclaw-core/internal/tracing"
	"github.com/tycode-run/goclaw-core/pkg/protocol"
)

// bootstrapAutoCleanupTurns is the number of user messages after which
// BOOTSTRAP.md is auto-removed if the model hasn't cleared it. Bootstrap
// typically completes in 2-3 conversation turns.
const bootstrapAutoCleanupTurns = 3

// Loop is a single chat actor: one conversation, one agent stack, one
// inbox. Every UserInput/ChangeProvider/GetSettings/SaveSettings message
// for this actor runs through schedulerLoop one at a time — Dispatch is
// the only way in, so callers never observe two turns interleaving.
type Loop struct {
	id            string
	agentUUID     uuid.UUID // set when this loop is traced as part of a larger run
	provider      providers.Provider
	model         string
	contextWindow int
	maxIterations int
	workspace     string

	eventPub bus.EventPublisher
	sessions store.SessionStore
	tools    *tools.Registry

	trackedFiles *tools.TrackedFileSet

	// Bootstrap/persona context, loaded at startup and injected into the
	// system prompt.
	ownerIDs     []string
	hasMemory    bool
	contextFiles []bootstrap.ContextFile

	compactionCfg     *config.CompactionConfig
	contextPruningCfg *config.ContextPruningConfig

	sandboxEnabled         bool
	sandboxContainerDir    string
	sandboxWorkspaceAccess string

	onEvent func(event AgentEvent)

	traceCollector *tracing.Collector

	maxMessageChars int // 0 = use default (32000)
	thinkingLevel   string

	// Per-session summarization lock: prevents concurrent summarize
	// goroutines for the same session.
	summarizeMu sync.Map // sessionKey -> *sync.Mutex

	// Actor serialization: every Dispatch call but Cancel goes through
	// this inbox, processed one at a time by schedulerLoop.
	inbox chan *inboxEnvelope

	timingMu sync.Mutex
	timing   TimingState

	cancelMu sync.Mutex
	cancelFn context.CancelFunc

	stackMu    sync.Mutex
	agentStack []*ActiveAgent

	activeRuns atomic.Int32
}

// inboxEnvelope is one request queued on the actor's inbox, with a
// one-shot reply channel the scheduler signals when it's done.
type inboxEnvelope struct {
	ctx    context.Context
	msg    Message
	result chan actorReply
}

type actorReply struct {
	value interface{}
	err   error
}

// AgentEvent is emitted during agent execution for UI/event-bus broadcasting.
type AgentEvent struct {
	Type    string      `json:"type"`
	AgentID string      `json:"agentId"`
	RunID   string      `json:"runId"`
	Payload interface{} `json:"payload,omitempty"`
}

// LoopConfig configures a new Loop.
type LoopConfig struct {
	ID            string
	Provider      providers.Provider
	Model         string
	ContextWindow int
	MaxIterations int
	Workspace     string
	Bus           bus.EventPublisher
	Sessions      store.SessionStore
	Tools         *tools.Registry
	OnEvent       func(AgentEvent)

	OwnerIDs     []string
	HasMemory    bool
	ContextFiles []bootstrap.ContextFile

	CompactionCfg     *config.CompactionConfig
	ContextPruningCfg *config.ContextPruningConfig

	SandboxEnabled         bool
	SandboxContainerDir    string
	SandboxWorkspaceAccess string

	AgentUUID uuid.UUID

	TraceCollector *tracing.Collector

	MaxMessageChars int
	ThinkingLevel   string
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 20
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 200000
	}

	l := &Loop{
		id:                     cfg.ID,
		agentUUID:              cfg.AgentUUID,
		provider:               cfg.Provider,
		model:                  cfg.Model,
		contextWindow:          cfg.ContextWindow,
		maxIterations:          cfg.MaxIterations,
		workspace:              cfg.Workspace,
		eventPub:               cfg.Bus,
		sessions:               cfg.Sessions,
		tools:                  cfg.Tools,
		trackedFiles:           tools.NewTrackedFileSet(),
		onEvent:                cfg.OnEvent,
		ownerIDs:               cfg.OwnerIDs,
		hasMemory:              cfg.HasMemory,
		contextFiles:           cfg.ContextFiles,
		compactionCfg:          cfg.CompactionCfg,
		contextPruningCfg:      cfg.ContextPruningCfg,
		sandboxEnabled:         cfg.SandboxEnabled,
		sandboxContainerDir:    cfg.SandboxContainerDir,
		sandboxWorkspaceAccess: cfg.SandboxWorkspaceAccess,
		traceCollector:         cfg.TraceCollector,
		maxMessageChars:        cfg.MaxMessageChars,
		thinkingLevel:          cfg.ThinkingLevel,
		inbox:                  make(chan *inboxEnvelope, 64),
	}
	l.agentStack = []*ActiveAgent{{Agent: NewCoderAgent()}}
	go l.schedulerLoop()
	return l
}

// RunRequest is the input for processing a message through the agent.
type RunRequest struct {
	SessionKey        string
	Message           string
	Media             []string
	Channel           string
	ChatID            string
	PeerKind          string
	RunID             string
	UserID            string
	SenderID          string
	Stream            bool
	ExtraSystemPrompt string
	HistoryLimit      int
	ParentTraceID     uuid.UUID
	ParentRootSpanID  uuid.UUID
	TraceName         string
	TraceTags         []string
}

// RunResult is the output of a completed agent run.
type RunResult struct {
	Content    string           `json:"content"`
	RunID      string           `json:"runId"`
	Iterations int              `json:"iterations"`
	Usage      *providers.Usage `json:"usage,omitempty"`
	Media      []MediaResult    `json:"media,omitempty"`
}

// MediaResult represents a media file produced by a tool during the agent run.
type MediaResult struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type,omitempty"`
	AsVoice     bool   `json:"as_voice,omitempty"`
}

// State returns the actor's current timing state for UI spinners.
func (l *Loop) State() TimingState {
	l.timingMu.Lock()
	defer l.timingMu.Unlock()
	return l.timing
}

func (l *Loop) setState(s TimingState) {
	l.timingMu.Lock()
	l.timing = s
	l.timingMu.Unlock()
}

// Dispatch enqueues msg on the actor's inbox and blocks until the
// scheduler processes it, preserving strict per-actor ordering across
// concurrent callers. Cancel bypasses the inbox entirely: it must be able
// to interrupt a turn already in flight, not wait behind it.
func (l *Loop) Dispatch(ctx context.Context, msg Message) (interface{}, error) {
	if c, ok := msg.(Cancel); ok {
		l.handleCancel(c)
		return nil, nil
	}

	env := &inboxEnvelope{ctx: ctx, msg: msg, result: make(chan actorReply, 1)}
	select {
	case l.inbox <- env:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case reply := <-env.result:
		return reply.value, reply.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loop) schedulerLoop() {
	for env := range l.inbox {
		var value interface{}
		var err error

		switch m := env.msg.(type) {
		case UserInput:
			value, err = l.runTurn(env.ctx, m.RunRequest)
		case ChangeProvider:
			l.provider = m.Provider
			if m.Model != "" {
				l.model = m.Model
			}
		case GetSettings:
			value = Settings{Provider: l.provider.Name(), Model: l.model, ThinkingLevel: l.thinkingLevel}
		case SaveSettings:
			if m.Provider != "" {
				// The provider name is not applied here; callers that
				// want the new adapter wired in send ChangeProvider first.
				l.model = m.Model
			} else if m.Model != "" {
				l.model = m.Model
			}
		}

		env.result <- actorReply{value: value, err: err}
	}
}

// handleCancel aborts the turn currently running, if any, and reports it
// as cancelled rather than failed.
func (l *Loop) handleCancel(c Cancel) {
	l.cancelMu.Lock()
	fn := l.cancelFn
	l.cancelMu.Unlock()
	if fn != nil {
		fn()
	}
	msg := c.Message
	if msg == "" {
		msg = "operation cancelled"
	}
	l.emit(AgentEvent{
		Type:    protocol.ChatEventOperationCancelled,
		AgentID: l.id,
		Payload: map[string]string{"message": msg},
	})
}

// Run processes a single message through the agent loop, synchronously.
// It is a thin wrapper over Dispatch(UserInput) kept for call sites (CLI,
// cron) that only ever need one turn at a time and don't touch the wider
// message set.
func (l *Loop) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	v, err := l.Dispatch(ctx, UserInput{RunRequest: req})
	if err != nil {
		return nil, err
	}
	res, _ := v.(*RunResult)
	return res, nil
}

// runTurn wraps runLoop with tracing/event bookkeeping that must happen
// once per turn regardless of how the turn entered the actor.
func (l *Loop) runTurn(ctx context.Context, req RunRequest) (*RunResult, error) {
	l.activeRuns.Add(1)
	defer l.activeRuns.Add(-1)

	l.emit(AgentEvent{Type: protocol.AgentEventRunStarted, AgentID: l.id, RunID: req.RunID})

	var traceID uuid.UUID
	isChildTrace := req.ParentTraceID != uuid.Nil && l.traceCollector != nil

	if isChildTrace {
		traceID = req.ParentTraceID
		ctx = tracing.WithTraceID(ctx, traceID)
		ctx = tracing.WithCollector(ctx, l.traceCollector)
		ctx = tracing.WithParentSpanID(ctx, store.GenNewID())
		if req.ParentRootSpanID != uuid.Nil {
			ctx = tracing.WithAnnounceParentSpanID(ctx, req.ParentRootSpanID)
		}
	} else if l.traceCollector != nil {
		traceID = store.GenNewID()
		now := time.Now().UTC()
		traceName := "chat " + l.id
		if req.TraceName != "" {
			traceName = req.TraceName
		}
		trace := &store.TraceData{
			ID:           traceID,
			RunID:        req.RunID,
			SessionKey:   req.SessionKey,
			UserID:       req.UserID,
			Channel:      req.Channel,
			Name:         traceName,
			InputPreview: truncateStr(req.Message, 500),
			Status:       store.TraceStatusRunning,
			StartTime:    now,
			CreatedAt:    now,
			Tags:         req.TraceTags,
		}
		if l.agentUUID != uuid.Nil {
			trace.AgentID = &l.agentUUID
		}
		if delegateParent := tracing.DelegateParentTraceIDFromContext(ctx); delegateParent != uuid.Nil {
			trace.ParentTraceID = &delegateParent
		}
		if err := l.traceCollector.CreateTrace(ctx, trace); err != nil {
			slog.Warn("tracing: failed to create trace", "error", err)
		} else {
			ctx = tracing.WithTraceID(ctx, traceID)
			ctx = tracing.WithCollector(ctx, l.traceCollector)
			ctx = tracing.WithParentSpanID(ctx, store.GenNewID())
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancelMu.Lock()
	l.cancelFn = cancel
	l.cancelMu.Unlock()
	defer func() {
		l.cancelMu.Lock()
		l.cancelFn = nil
		l.cancelMu.Unlock()
		cancel()
	}()

	runStart := time.Now().UTC()
	result, err := l.runLoop(runCtx, req)

	if l.traceCollector != nil && traceID != uuid.Nil {
		l.emitAgentSpan(ctx, runStart, result, err)
	}

	if err != nil {
		l.emit(AgentEvent{
			Type:    protocol.AgentEventRunFailed,
			AgentID: l.id,
			RunID:   req.RunID,
			Payload: map[string]string{"error": err.Error()},
		})
		if !isChildTrace && l.traceCollector != nil && traceID != uuid.Nil {
			traceCtx := ctx
			traceStatus := store.TraceStatusError
			if runCtx.Err() != nil {
				traceCtx = context.Background()
				traceStatus = store.TraceStatusCancelled
			}
			l.traceCollector.FinishTrace(traceCtx, traceID, traceStatus, err.Error(), "")
		}
		return nil, err
	}

	l.emit(AgentEvent{Type: protocol.AgentEventRunCompleted, AgentID: l.id, RunID: req.RunID})
	if !isChildTrace && l.traceCollector != nil && traceID != uuid.Nil {
		l.traceCollector.FinishTrace(ctx, traceID, store.TraceStatusCompleted, "", truncateStr(result.Content, 500))
	}
	return result, nil
}

func (l *Loop) runLoop(ctx context.Context, req RunRequest) (*RunResult, error) {
	if l.agentUUID != uuid.Nil {
		ctx = store.WithAgentID(ctx, l.agentUUID)
	}
	if req.UserID != "" {
		ctx = store.WithUserID(ctx, req.UserID)
	}
	if req.SenderID != "" {
		ctx = store.WithSenderID(ctx, req.SenderID)
	}
	if l.workspace != "" {
		ctx = tools.WithToolWorkspace(ctx, l.workspace)
	}

	if l.agentUUID != uuid.Nil || req.UserID != "" {
		l.sessions.SetAgentInfo(req.SessionKey, l.agentUUID, req.UserID)
	}

	maxChars := l.maxMessageChars
	if maxChars <= 0 {
		maxChars = 32_000
	}
	if len(req.Message) > maxChars {
		originalLen := len(req.Message)
		req.Message = req.Message[:maxChars] +
			fmt.Sprintf("\n\n[System: Message was truncated from %d to %d characters due to size limit. "+
				"Please ask for shorter messages or use the read_file tool for large content.]",
				originalLen, maxChars)
		slog.Warn("security.message_truncated", "agent", l.id, "original_len", originalLen, "truncated_to", maxChars)
	}

	if l.sessions.GetContextWindow(req.SessionKey) <= 0 {
		l.sessions.SetContextWindow(req.SessionKey, l.contextWindow)
	}

	history := l.sessions.GetHistory(req.SessionKey)
	summary := l.sessions.GetSummary(req.SessionKey)

	messages, hadBootstrap := l.buildMessages(ctx, history, summary, req.Message, req.ExtraSystemPrompt, req.SessionKey, req.Channel, req.UserID, req.HistoryLimit)

	if len(req.Media) > 0 {
		if images := loadImages(req.Media); len(images) > 0 {
			messages[len(messages)-1].Images = images
			ctx = tools.WithMediaImages(ctx, images)
			slog.Info("vision: attached images to user message", "count", len(images), "agent", l.id, "session", req.SessionKey)
		}
		for _, p := range req.Media {
			if err := os.Remove(p); err != nil {
				slog.Debug("vision: failed to clean temp media file", "path", p, "error", err)
			}
		}
	}

	var pendingMsgs []providers.Message
	pendingMsgs = append(pendingMsgs, providers.Message{Role: "user", Content: req.Message})

	var loopDetector toolLoopState
	var totalUsage providers.Usage
	iteration := 0
	var finalContent string
	var asyncToolCalls []string
	var mediaResults []MediaResult

	l.setState(StateProcessingAI)
	defer l.setState(StateIdle)

	for iteration < l.maxIterations {
		iteration++
		slog.Debug("agent iteration", "agent", l.id, "iteration", iteration, "messages", len(messages))

		depth, top := l.stackDepthAndTop()
		toolDefs := l.tools.ProviderDefs()
		if len(top.Agent.AllowedToolNames) > 0 {
			toolDefs = filterToolDefs(toolDefs, top.Agent.AllowedToolNames)
		}

		chatReq := providers.ChatRequest{
			Messages: messages,
			Tools:    toolDefs,
			Model:    l.model,
			Options: map[string]interface{}{
				providers.OptMaxTokens:   8192,
				providers.OptTemperature: 0.7,
			},
		}
		if l.thinkingLevel != "" && l.thinkingLevel != "off" {
			if tc, ok := l.provider.(providers.ThinkingCapable); ok && tc.SupportsThinking() {
				chatReq.Options[providers.OptThinkingLevel] = l.thinkingLevel
			} else {
				slog.Debug("thinking_level ignored: provider does not support thinking", "provider", l.provider.Name(), "level", l.thinkingLevel)
			}
		}

		retryCfg := l.retryConfig(req)
		llmSpanStart := time.Now().UTC()

		var resp *providers.ChatResponse
		var err error
		if req.Stream {
			resp, err = providers.RetryDo(ctx, retryCfg, func() (*providers.ChatResponse, error) {
				return l.provider.ChatStream(ctx, chatReq, func(chunk providers.StreamChunk) {
					if chunk.Thinking != "" {
						l.emit(AgentEvent{Type: protocol.ChatEventThinking, AgentID: l.id, RunID: req.RunID, Payload: map[string]string{"content": chunk.Thinking}})
					}
					if chunk.Content != "" {
						l.emit(AgentEvent{Type: protocol.ChatEventChunk, AgentID: l.id, RunID: req.RunID, Payload: map[string]string{"content": chunk.Content}})
					}
				})
			})
		} else {
			resp, err = providers.RetryDo(ctx, retryCfg, func() (*providers.ChatResponse, error) {
				return l.provider.Chat(ctx, chatReq)
			})
		}

		if err != nil {
			if providers.ClassifyError(err) == providers.CategoryInputTooLong {
				compacted, cerr := l.compact(ctx, messages, req.SessionKey)
				if cerr != nil {
					l.emitLLMSpan(ctx, llmSpanStart, iteration, messages, nil, err)
					return nil, fmt.Errorf("LLM call failed (iteration %d): %w", iteration, err)
				}
				messages = compacted
				iteration--
				continue
			}
			l.emitLLMSpan(ctx, llmSpanStart, iteration, messages, nil, err)
			return nil, fmt.Errorf("LLM call failed (iteration %d): %w", iteration, err)
		}

		l.emitLLMSpan(ctx, llmSpanStart, iteration, messages, resp, nil)

		if resp.Usage != nil {
			totalUsage.PromptTokens += resp.Usage.PromptTokens
			totalUsage.CompletionTokens += resp.Usage.CompletionTokens
			totalUsage.TotalTokens += resp.Usage.TotalTokens
			totalUsage.ThinkingTokens += resp.Usage.ThinkingTokens
		}

		if len(resp.ToolCalls) == 0 {
			if top.Agent.RequiresToolUse && depth > 1 {
				messages = append(messages, providers.Message{
					Role:    "user",
					Content: fmt.Sprintf("[System] %s must finish by calling a tool (e.g. pop_agent), not by replying with plain text.", top.Agent.Name),
				})
				continue
			}
			finalContent = resp.Content
			break
		}

		assistantMsg := providers.Message{
			Role:                "assistant",
			Content:             resp.Content,
			ToolCalls:           resp.ToolCalls,
			RawAssistantContent: resp.RawAssistantContent,
		}
		messages = append(messages, assistantMsg)
		pendingMsgs = append(pendingMsgs, assistantMsg)

		// Tool calls run sequentially, in the order the model produced
		// them, through the same dispatch pipeline every turn uses —
		// ordering here is an observable side-effect guarantee, not an
		// optimization detail.
		calls := make([]tools.CallRequest, len(resp.ToolCalls))
		tcByID := make(map[string]providers.ToolCall, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			calls[i] = tools.CallRequest{ID: tc.ID, Name: tc.Name, Args: tc.Arguments}
			tcByID[tc.ID] = tc
			l.emit(AgentEvent{Type: protocol.AgentEventToolCall, AgentID: l.id, RunID: req.RunID, Payload: map[string]interface{}{"name": tc.Name, "id": tc.ID}})
		}

		l.setState(StateExecutingTools)
		toolSpanStart := time.Now().UTC()
		outcome := tools.Dispatch(ctx, l.tools, calls, l.workspace)
		l.setState(StateProcessingAI)

		var loopStuck bool
		for _, cr := range outcome.Results {
			tc := tcByID[cr.ID]
			argsJSON, _ := json.Marshal(tc.Arguments)

			argsHash := loopDetector.record(tc.Name, tc.Arguments)
			loopDetector.recordResult(argsHash, cr.Content)

			l.emitToolSpan(ctx, toolSpanStart, tc.Name, tc.ID, string(argsJSON), &tools.Result{ForLLM: cr.Content, IsError: cr.IsError})

			if cr.IsError {
				errMsg := cr.Content
				if len(errMsg) > 200 {
					errMsg = errMsg[:200] + "..."
				}
				slog.Warn("tool error", "agent", l.id, "tool", cr.Name, "error", errMsg)
			}

			l.emit(AgentEvent{
				Type:    protocol.AgentEventToolResult,
				AgentID: l.id,
				RunID:   req.RunID,
				Payload: map[string]interface{}{"name": cr.Name, "id": cr.ID, "is_error": cr.IsError},
			})

			if mr := parseMediaResult(cr.Content); mr != nil {
				mediaResults = append(mediaResults, *mr)
			}
			if strings.HasPrefix(cr.Content, "async:") {
				asyncToolCalls = append(asyncToolCalls, cr.Name)
			}

			toolMsg := providers.Message{Role: "tool", Content: cr.Content, ToolCallID: cr.ID}
			messages = append(messages, toolMsg)
			pendingMsgs = append(pendingMsgs, toolMsg)

			if level, msg := loopDetector.detect(tc.Name, argsHash); level != "" {
				if level == "critical" {
					slog.Warn("tool loop critical", "agent", l.id, "tool", tc.Name, "message", msg)
					finalContent = "I was unable to complete this task — I got stuck repeatedly calling " + tc.Name + " without making progress. Please try rephrasing your request."
					loopStuck = true
					break
				}
				slog.Warn("tool loop warning", "agent", l.id, "tool", tc.Name, "message", msg)
				messages = append(messages, providers.Message{Role: "user", Content: msg})
			}
		}
		if loopStuck {
			break
		}

		stop, sysNote := l.applyActions(outcome.Actions)
		if sysNote != "" {
			messages = append(messages, providers.Message{Role: "user", Content: sysNote})
		}
		if stop || outcome.Continuation == tools.StopTurn {
			if finalContent == "" {
				finalContent = resp.Content
			}
			break
		}
	}

	finalContent = SanitizeAssistantContent(finalContent)
	isSilent := IsSilentReply(finalContent)
	if finalContent == "" {
		finalContent = "..."
	}

	pendingMsgs = append(pendingMsgs, providers.Message{Role: "assistant", Content: finalContent})
	for _, msg := range pendingMsgs {
		l.sessions.AddMessage(req.SessionKey, msg)
	}

	l.sessions.UpdateMetadata(req.SessionKey, l.model, l.provider.Name(), req.Channel)
	l.sessions.AccumulateTokens(req.SessionKey, int64(totalUsage.PromptTokens), int64(totalUsage.CompletionTokens))
	if totalUsage.PromptTokens > 0 {
		msgCount := len(history) + len(pendingMsgs)
		l.sessions.SetLastPromptTokens(req.SessionKey, totalUsage.PromptTokens, msgCount)
	}
	l.sessions.Save(req.SessionKey)

	if hadBootstrap {
		userTurns := 1
		for _, m := range history {
			if m.Role == "user" {
				userTurns++
			}
		}
		if userTurns >= bootstrapAutoCleanupTurns {
			bootstrapPath := filepath.Join(l.workspace, bootstrap.BootstrapFile)
			if err := os.Remove(bootstrapPath); err != nil && !os.IsNotExist(err) {
				slog.Warn("bootstrap auto-cleanup failed", "error", err, "agent", l.id)
			} else {
				slog.Info("bootstrap auto-cleanup completed", "agent", l.id, "turns", userTurns)
			}
		}
	}

	if isSilent {
		slog.Info("agent loop: NO_REPLY detected, suppressing delivery", "agent", l.id, "session", req.SessionKey)
		finalContent = ""
	}
	_ = asyncToolCalls

	l.maybeSummarize(ctx, req.SessionKey)

	return &RunResult{Content: finalContent, RunID: req.RunID, Iterations: iteration, Usage: &totalUsage, Media: mediaResults}, nil
}

// retryConfig builds the per-turn retry/backoff policy and wires its hook
// to emit a RetryAttempt event for every retried call, per the actor's
// retry contract: providers make a single attempt, the actor owns retry.
func (l *Loop) retryConfig(req RunRequest) providers.RetryConfig {
	return providers.WithRetryHook(providers.DefaultRetryConfig(), func(attempt, max int, err error, backoff time.Duration) {
		l.emit(AgentEvent{
			Type:    protocol.ChatEventRetryAttempt,
			AgentID: l.id,
			RunID:   req.RunID,
			Payload: map[string]interface{}{
				"attempt":     attempt,
				"max_retries": max,
				"error":       err.Error(),
				"backoff_ms":  backoff.Milliseconds(),
			},
		})
	})
}

// compact handles CategoryInputTooLong: drop the offending turn (the last
// two messages), summarize everything before it with a tool-free request
// against the same provider, and replace the whole conversation with the
// system prompt plus one user message carrying that summary.
func (l *Loop) compact(ctx context.Context, messages []providers.Message, sessionKey string) ([]providers.Message, error) {
	if len(messages) < 3 {
		return nil, fmt.Errorf("conversation too short to compact")
	}
	systemMsg := messages[0]
	trimmed := messages[1 : len(messages)-2]

	var sb strings.Builder
	for _, m := range trimmed {
		if m.Role == "tool" {
			continue
		}
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}

	resp, err := l.provider.Chat(ctx, providers.ChatRequest{
		Messages: []providers.Message{{Role: "user", Content: "Summarize this conversation concisely, preserving key facts and decisions:\n\n" + sb.String()}},
		Model:    l.model,
		Options:  map[string]interface{}{providers.OptMaxTokens: 1024, providers.OptTemperature: 0.3},
	})
	if err != nil {
		return nil, err
	}
	summary := SanitizeAssistantContent(resp.Content)

	l.trackedFiles.Clear()
	l.sessions.SetSummary(sessionKey, summary)
	l.sessions.TruncateHistory(sessionKey, 0)
	l.sessions.IncrementCompaction(sessionKey)

	replacement := providers.Message{
		Role:    "user",
		Content: "Context summary from previous conversation:\n" + summary + "\n\nPlease continue assisting based on this context.",
	}
	return []providers.Message{systemMsg, replacement}, nil
}

// stackDepthAndTop returns the current agent stack depth and its top frame.
func (l *Loop) stackDepthAndTop() (int, *ActiveAgent) {
	l.stackMu.Lock()
	defer l.stackMu.Unlock()
	return len(l.agentStack), l.agentStack[len(l.agentStack)-1]
}

// pushAgent resolves name to a SubAgent and pushes a fresh frame.
func (l *Loop) pushAgent(name, task string) error {
	sa, err := ResolveSubAgent(name, task)
	if err != nil {
		return err
	}
	l.stackMu.Lock()
	defer l.stackMu.Unlock()
	l.agentStack = append(l.agentStack, &ActiveAgent{Agent: sa})
	return nil
}

// popAgent removes the top frame. Popping the root agent is rejected —
// the conversation always has at least one frame.
func (l *Loop) popAgent() (rejected bool) {
	l.stackMu.Lock()
	defer l.stackMu.Unlock()
	if len(l.agentStack) <= 1 {
		return true
	}
	l.agentStack = l.agentStack[:len(l.agentStack)-1]
	return false
}

// applyActions applies this turn's deferred agent-stack mutations in
// order. It returns whether the turn must stop regardless of the tools'
// own continuation vote (a rejected pop forces a stop, per the root-pop
// invariant) and a system-facing note to inject into the conversation.
func (l *Loop) applyActions(actions []*tools.Action) (stop bool, note string) {
	var notes []string
	for _, a := range actions {
		switch a.Kind {
		case tools.ActionPushAgent:
			if err := l.pushAgent(a.AgentName, a.Task); err != nil {
				notes = append(notes, fmt.Sprintf("[System] could not start sub-agent %q: %v", a.AgentName, err))
			}
		case tools.ActionPopAgent:
			if rejected := l.popAgent(); rejected {
				notes = append(notes, "[System] cannot pop: already at the root agent.")
				stop = true
			}
		case tools.ActionPromptUser:
			notes = append(notes, "[System] waiting on user: "+a.Question)
			stop = true
		}
	}
	return stop, strings.Join(notes, "\n")
}

func filterToolDefs(defs []providers.ToolDefinition, allow []string) []providers.ToolDefinition {
	allowSet := make(map[string]struct{}, len(allow))
	for _, n := range allow {
		allowSet[n] = struct{}{}
	}
	var out []providers.ToolDefinition
	for _, d := range defs {
		if _, ok := allowSet[d.Function.Name]; ok {
			out = append(out, d)
		}
	}
	return out
}

// parseMediaResult extracts a MediaResult from a tool result string
// containing a "MEDIA:" prefix. Handles "MEDIA:/path/to/file" and
// "[[audio_as_voice]]\nMEDIA:/path/to/file". Returns nil if no MEDIA:
// prefix is found.
func parseMediaResult(toolOutput string) *MediaResult {
	s := toolOutput
	asVoice := false

	if strings.Contains(s, "[[audio_as_voice]]") {
		asVoice = true
		s = strings.ReplaceAll(s, "[[audio_as_voice]]", "")
		s = strings.TrimSpace(s)
	}

	idx := strings.Index(s, "MEDIA:")
	if idx < 0 {
		return nil
	}
	path := strings.TrimSpace(s[idx+6:])
	if path == "" {
		return nil
	}
	if nl := strings.IndexByte(path, '\n'); nl >= 0 {
		path = strings.TrimSpace(path[:nl])
	}

	return &MediaResult{Path: path, ContentType: mimeFromExt(filepath.Ext(path)), AsVoice: asVoice}
}

func mimeFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

// sanitizePathSegment makes an ID safe for use as a directory name.
func sanitizePathSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
