package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const defaultBedrockModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"

// BedrockProvider implements Provider against AWS Bedrock's Converse API,
// giving access to Anthropic, Amazon, Meta and Mistral foundation models
// through one client. Authentication follows the AWS SDK's default
// credential chain unless explicit keys are supplied.
type BedrockProvider struct {
	client       *bedrockruntime.Client
	defaultModel string
}

// BedrockConfig configures a BedrockProvider.
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	DefaultModel    string
}

// NewBedrockProvider loads AWS credentials (explicit if given, the default
// chain otherwise) and returns a ready-to-use provider.
func NewBedrockProvider(ctx context.Context, cfg BedrockConfig) (*BedrockProvider, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaultBedrockModel
	}

	var awsCfg aws.Config
	var err error
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}

	return &BedrockProvider{
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *BedrockProvider) Name() string          { return "bedrock" }
func (p *BedrockProvider) DefaultModel() string  { return p.defaultModel }
func (p *BedrockProvider) SupportsThinking() bool { return false }

func (p *BedrockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages, system, err := bedrockConvertMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("bedrock: convert messages: %w", err)
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: messages,
	}
	if system != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}}
	}
	if len(req.Tools) > 0 {
		input.ToolConfig = bedrockToolConfig(req.Tools)
	}
	if maxTokens, ok := req.Options[OptMaxTokens].(int); ok && maxTokens > 0 {
		input.InferenceConfig = &types.InferenceConfiguration{MaxTokens: aws.Int32(int32(maxTokens))}
	}

	out, err := p.client.Converse(ctx, input)
	if err != nil {
		return nil, bedrockClassify(err)
	}
	return bedrockParseResponse(out), nil
}

func (p *BedrockProvider) ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages, system, err := bedrockConvertMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("bedrock: convert messages: %w", err)
	}

	input := &bedrockruntime.ConverseStreamInput{
		ModelId:  aws.String(model),
		Messages: messages,
	}
	if system != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}}
	}
	if len(req.Tools) > 0 {
		input.ToolConfig = bedrockToolConfig(req.Tools)
	}

	stream, err := p.client.ConverseStream(ctx, input)
	if err != nil {
		return nil, bedrockClassify(err)
	}

	return bedrockDrainStream(ctx, stream, onChunk)
}

func bedrockDrainStream(ctx context.Context, stream *bedrockruntime.ConverseStreamOutput, onChunk func(StreamChunk)) (*ChatResponse, error) {
	eventStream := stream.GetStream()
	defer eventStream.Close()

	result := &ChatResponse{}
	var pendingTool *ToolCall
	var toolArgs strings.Builder
	var blocks []anthropicContentBlock

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case event, ok := <-eventStream.Events():
			if !ok {
				if err := eventStream.Err(); err != nil {
					return nil, bedrockClassify(err)
				}
				result.RawAssistantContent = bedrockMarshalBlocks(blocks)
				return result, nil
			}
			switch ev := event.(type) {
			case *types.ConverseStreamOutputMemberContentBlockStart:
				if toolUse, ok := ev.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
					pendingTool = &ToolCall{ID: aws.ToString(toolUse.Value.ToolUseId), Name: aws.ToString(toolUse.Value.Name)}
					toolArgs.Reset()
				}
			case *types.ConverseStreamOutputMemberContentBlockDelta:
				switch delta := ev.Value.Delta.(type) {
				case *types.ContentBlockDeltaMemberText:
					if delta.Value != "" {
						result.Content += delta.Value
						if onChunk != nil {
							onChunk(StreamChunk{Content: delta.Value})
						}
					}
				case *types.ContentBlockDeltaMemberToolUse:
					if delta.Value.Input != nil {
						toolArgs.WriteString(*delta.Value.Input)
					}
				}
			case *types.ConverseStreamOutputMemberContentBlockStop:
				if pendingTool != nil {
					args := make(map[string]interface{})
					_ = json.Unmarshal([]byte(toolArgs.String()), &args)
					pendingTool.Arguments = args
					result.ToolCalls = append(result.ToolCalls, *pendingTool)
					blocks = append(blocks, anthropicContentBlock{Type: "tool_use", ID: pendingTool.ID, Name: pendingTool.Name, Input: json.RawMessage(toolArgs.String())})
					pendingTool = nil
					toolArgs.Reset()
				}
			case *types.ConverseStreamOutputMemberMessageStop:
				result.FinishReason = bedrockFinishReason(ev.Value.StopReason)
			case *types.ConverseStreamOutputMemberMetadata:
				if ev.Value.Usage != nil {
					result.Usage = &Usage{
						PromptTokens:     int(aws.ToInt32(ev.Value.Usage.InputTokens)),
						CompletionTokens: int(aws.ToInt32(ev.Value.Usage.OutputTokens)),
						TotalTokens:      int(aws.ToInt32(ev.Value.Usage.TotalTokens)),
					}
				}
			}
			if onChunk != nil {
				onChunk(StreamChunk{Done: false})
			}
		}
	}
}

func bedrockMarshalBlocks(blocks []anthropicContentBlock) json.RawMessage {
	if len(blocks) == 0 {
		return nil
	}
	b, err := json.Marshal(blocks)
	if err != nil {
		return nil
	}
	return b
}

func bedrockParseResponse(out *bedrockruntime.ConverseOutput) *ChatResponse {
	result := &ChatResponse{FinishReason: bedrockFinishReason(out.StopReason)}

	if msg, ok := out.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			switch b := block.(type) {
			case *types.ContentBlockMemberText:
				result.Content += b.Value
			case *types.ContentBlockMemberToolUse:
				var args map[string]interface{}
				if doc, err := b.Value.Input.MarshalSmithyDocument(); err == nil {
					_ = json.Unmarshal(doc, &args)
				}
				result.ToolCalls = append(result.ToolCalls, ToolCall{
					ID:        aws.ToString(b.Value.ToolUseId),
					Name:      aws.ToString(b.Value.Name),
					Arguments: args,
				})
			}
		}
	}

	if out.Usage != nil {
		result.Usage = &Usage{
			PromptTokens:     int(aws.ToInt32(out.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}

	return result
}

func bedrockFinishReason(stopReason types.StopReason) string {
	switch stopReason {
	case types.StopReasonToolUse:
		return "tool_calls"
	case types.StopReasonMaxTokens:
		return "length"
	default:
		return "stop"
	}
}

func bedrockConvertMessages(messages []Message) ([]types.Message, string, error) {
	var system string
	result := make([]types.Message, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}

		var content []types.ContentBlock
		switch {
		case msg.Role == "tool":
			content = append(content, &types.ContentBlockMemberToolResult{
				Value: types.ToolResultBlock{
					ToolUseId: aws.String(msg.ToolCallID),
					Content:   []types.ToolResultContentBlock{&types.ToolResultContentBlockMemberText{Value: msg.Content}},
				},
			})
		case msg.Content != "":
			content = append(content, &types.ContentBlockMemberText{Value: msg.Content})
		}
		for _, tc := range msg.ToolCalls {
			content = append(content, &types.ContentBlockMemberToolUse{
				Value: types.ToolUseBlock{
					ToolUseId: aws.String(tc.ID),
					Name:      aws.String(tc.Name),
					Input:     document.NewLazyDocument(tc.Arguments),
				},
			})
		}

		if len(content) == 0 {
			continue
		}

		role := types.ConversationRoleUser
		if msg.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		result = append(result, types.Message{Role: role, Content: content})
	}

	return result, system, nil
}

func bedrockToolConfig(tools []ToolDefinition) *types.ToolConfiguration {
	cfg := &types.ToolConfiguration{}
	for _, t := range tools {
		cfg.Tools = append(cfg.Tools, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(t.Function.Name),
				Description: aws.String(t.Function.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(t.Function.Parameters),
				},
			},
		})
	}
	return cfg
}

// bedrockClassify maps AWS SDK errors to our retry taxonomy. Bedrock
// reports throttling and overload as named exceptions rather than bare
// HTTP status codes, so classification goes by substring like the other
// non-HTTP-fronted adapters.
func bedrockClassify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case containsFold(msg, "ThrottlingException"), containsFold(msg, "TooManyRequestsException"),
		containsFold(msg, "ServiceUnavailableException"), containsFold(msg, "ModelTimeoutException"):
		return &ClassifiedError{Category: CategoryRetryable, Err: err}
	case containsFold(msg, "ValidationException") && containsFold(msg, "too long"):
		return &ClassifiedError{Category: CategoryInputTooLong, Err: err}
	case containsFold(msg, "ValidationException"), containsFold(msg, "AccessDeniedException"),
		containsFold(msg, "ResourceNotFoundException"):
		return &ClassifiedError{Category: CategoryTerminal, Err: err}
	default:
		return &ClassifiedError{Category: CategoryTransient, Err: err}
	}
}
