package bootstrap

import (
	"fmt"

	"github.com/wolfman30/spa-line-booking/internal/channels/line"
	appconfig "github.com/wolfman30/spa-line-booking/internal/config"
	"github.com/wolfman30/spa-line-booking/internal/observability/metrics"
	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

// BuildLineClient creates the Messaging API client used for replies, pushes
// and profile lookups.
func BuildLineClient(cfg *appconfig.Config, logger *logging.Logger, m *metrics.FlowMetrics) (*line.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.LineChannelAccessToken == "" {
		logger.Warn("LINE_CHANNEL_ACCESS_TOKEN not set; outbound LINE calls will be rejected")
	}

	opts := []line.ClientOption{line.WithLogger(logger), line.WithMetrics(m)}
	if cfg.LineAPIEndpoint != "" {
		opts = append(opts, line.WithEndpoint(cfg.LineAPIEndpoint))
	}
	client, err := line.NewClient(cfg.LineChannelAccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return client, nil
}
