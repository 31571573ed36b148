package providers

import (
	"fmt"
	"strings"
)

// ToolCallStyle controls whether a model's tool calls/results are carried
// as native provider tool-call blocks or folded into plain text.
type ToolCallStyle int

const (
	// ToolCallStyleNative passes tool_use/tool_result through the
	// provider's native mechanism (Anthropic content blocks, OpenAI
	// tool_calls, Bedrock ToolUseBlock).
	ToolCallStyleNative ToolCallStyle = iota
	// ToolCallStyleXML folds tool calls and results into text, wrapped in
	// <tool_result> tags, for providers whose native tool-call schema is
	// too strict to round-trip every model's quirks through.
	ToolCallStyleXML
)

// ModelTweaks carries per-model/per-provider behavior overrides resolved
// once per turn, the same way the teacher's model adapters each expose a
// handful of quirks (cost table, thinking support, retry ceilings) rather
// than branching on model name inline at every call site.
type ModelTweaks struct {
	ToolCallStyle ToolCallStyle
}

// ResolveTweaks determines the effective ModelTweaks for a provider+model
// pair. An explicit override (configuredStyle) wins;
// otherwise Bedrock-fronted models default to XML because Bedrock's
// toolConfig schema validation rejects tool definitions several of our
// models otherwise send natively.
func ResolveTweaks(providerName, model string, configuredStyle string) ModelTweaks {
	switch strings.ToLower(configuredStyle) {
	case "xml":
		return ModelTweaks{ToolCallStyle: ToolCallStyleXML}
	case "native", "json":
		return ModelTweaks{ToolCallStyle: ToolCallStyleNative}
	}

	if strings.EqualFold(providerName, "bedrock") {
		return ModelTweaks{ToolCallStyle: ToolCallStyleXML}
	}
	return ModelTweaks{ToolCallStyle: ToolCallStyleNative}
}

// ToolResultToXML renders a single tool result as the inline text form
// used when ModelTweaks.ToolCallStyle is ToolCallStyleXML, so it can be
// appended to a plain-text user turn instead of a native tool-result block.
func ToolResultToXML(toolCallID string, content string, isError bool) string {
	errorAttr := ""
	if isError {
		errorAttr = ` is_error="true"`
	}
	return fmt.Sprintf(`<tool_result tool_use_id="%s"%s>%s</tool_result>`, toolCallID, errorAttr, content)
}
