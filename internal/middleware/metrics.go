package middleware

import (
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/relaydesk/support-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting them
// to Prometheus.
func Metrics(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordUpdate(endpointLabel(c), status, time.Since(start))

		return err
	}
}

// endpointLabel keeps metric cardinality bounded: commands are reported by
// name, everything else as a plain message.
func endpointLabel(c telebot.Context) string {
	text := c.Text()
	if strings.HasPrefix(text, "/") {
		if idx := strings.IndexAny(text, " @"); idx > 0 {
			text = text[:idx]
		}
		return text
	}

	return "message"
}
