package llm

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

const logSnippetLimit = 120

// requestLogger 返回一次上游调用的日志条目：
// provider、计价模型、上游模型名，以及账本记录 ID（已预扣时）。
func requestLogger(ctx context.Context, provider, upstreamModel string, req GenerationRequest) *logrus.Entry {
	fields := logrus.Fields{
		"provider": provider,
	}
	if req.Model != "" {
		fields["model"] = string(req.Model)
	}
	if upstream := strings.TrimSpace(upstreamModel); upstream != "" {
		fields["upstream_model"] = upstream
	}
	if req.RecordID != 0 {
		fields["generation_id"] = req.RecordID
	}

	entry := logrus.WithFields(fields)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

// logSnippet 将文本压成单行并截断，避免 prompt 与上游响应写满日志
func logSnippet(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return ""
	}

	runes := []rune(value)
	if len(runes) <= logSnippetLimit {
		return value
	}
	return string(runes[:logSnippetLimit]) + "..."
}
