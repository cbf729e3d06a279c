package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Channel 定义告警输送接口。每个通道独立交付, 互不影响。
type Channel interface {
	Name() string
	Send(ctx context.Context, summary AlertSummary) error
}

// ConsoleChannel 通过结构化日志输出告警, 是永不失败的兜底通道。
type ConsoleChannel struct {
	logger zerolog.Logger
}

// NewConsoleChannel 构造控制台告警通道。
func NewConsoleChannel(logger zerolog.Logger) *ConsoleChannel {
	return &ConsoleChannel{logger: logger.With().Str("component", "alert_console").Logger()}
}

// Name returns the channel identifier.
func (c *ConsoleChannel) Name() string { return "console" }

// Send logs the alert. It never returns an error.
func (c *ConsoleChannel) Send(_ context.Context, summary AlertSummary) error {
	c.logger.Warn().
		Int64("alert_id", summary.ID).
		Str("ticker", summary.Ticker).
		Str("rule", string(summary.Rule)).
		Str("severity", string(summary.Severity)).
		Str("title", summary.Title).
		Msg(summary.Description)
	return nil
}

func renderMessage(summary AlertSummary) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[%s]\n", summary.Title))
	builder.WriteString(fmt.Sprintf("Ticker: %s\n", summary.Ticker))
	builder.WriteString(fmt.Sprintf("Rule: %s\n", summary.Rule))
	builder.WriteString(fmt.Sprintf("Severity: %s\n", strings.ToUpper(string(summary.Severity))))
	builder.WriteString(fmt.Sprintf("%s: %s\n", summary.AwayName, summary.AwayPrice.StringFixed(3)))
	builder.WriteString(fmt.Sprintf("%s (home): %s\n", summary.HomeName, summary.HomePrice.StringFixed(3)))
	builder.WriteString(fmt.Sprintf("Created: %s UTC\n", summary.CreatedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(summary.Description)
	return builder.String()
}

var _ Channel = (*ConsoleChannel)(nil)
