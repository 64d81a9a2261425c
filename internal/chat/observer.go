package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JaimeStill/go-agents-orchestration/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JaimeStill/rag-lab/pkg/decode"
)

var stageDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "rag_chat_stage_duration_seconds",
		Help:    "Duration of query pipeline stages.",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	},
	[]string{"stage", "outcome"},
)

type nodeEvent struct {
	Node         string `json:"node"`
	Iteration    int    `json:"iteration"`
	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message"`
}

type edgeEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// stageObserver logs graph events for one query and records stage durations.
type stageObserver struct {
	logger *slog.Logger
	mu     sync.Mutex
	starts map[string]time.Time
}

func newStageObserver(logger *slog.Logger) *stageObserver {
	return &stageObserver{
		logger: logger,
		starts: make(map[string]time.Time),
	}
}

func (o *stageObserver) OnEvent(ctx context.Context, event observability.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.Type {
	case observability.EventNodeStart:
		data, err := decode.FromMap[nodeEvent](event.Data)
		if err != nil {
			o.logger.Error("failed to decode node start data", "error", err)
			return
		}
		o.starts[key(data)] = event.Timestamp
		o.logger.Debug("stage started", "stage", data.Node)

	case observability.EventNodeComplete:
		data, err := decode.FromMap[nodeEvent](event.Data)
		if err != nil {
			o.logger.Error("failed to decode node complete data", "error", err)
			return
		}

		outcome := "ok"
		if data.Error {
			outcome = "error"
		}

		var elapsed time.Duration
		if start, ok := o.starts[key(data)]; ok {
			elapsed = event.Timestamp.Sub(start)
			delete(o.starts, key(data))
			stageDuration.WithLabelValues(data.Node, outcome).Observe(elapsed.Seconds())
		}

		if data.Error {
			o.logger.Warn("stage failed", "stage", data.Node, "duration", elapsed, "error", data.ErrorMessage)
		} else {
			o.logger.Debug("stage completed", "stage", data.Node, "duration", elapsed)
		}

	case observability.EventEdgeTransition:
		data, err := decode.FromMap[edgeEvent](event.Data)
		if err != nil {
			o.logger.Error("failed to decode edge transition data", "error", err)
			return
		}
		o.logger.Debug("stage transition", "from", data.From, "to", data.To)
	}
}

func key(e nodeEvent) string {
	return fmt.Sprintf("%s:%d", e.Node, e.Iteration)
}
