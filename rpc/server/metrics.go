package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/shKV/lib/store"
	"github.com/ValentinKolb/shKV/rpc/common"
	"github.com/ValentinKolb/shKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
)

// serverMetrics collects the metrics of one server in its own set, so that several
// servers in one process (tests) do not share counters.
// It implements transport.IConnectionObserver.
type serverMetrics struct {
	set *metrics.Set

	requests         map[common.OpCode]*metrics.Counter
	requestDuration  *metrics.Histogram
	protocolErrors   *metrics.Counter
	connectionErrors *metrics.Counter
	connsOpened      *metrics.Counter
	connsClosed      *metrics.Counter

	// store statistics, written by the event loop and read by the gauges
	keys        atomic.Int64
	queues      atomic.Int64
	queuedItems atomic.Uint64
	sizeBytes   atomic.Uint64
}

func newServerMetrics(activeConnections func() int) *serverMetrics {
	set := metrics.NewSet()
	m := &serverMetrics{
		set:              set,
		requests:         make(map[common.OpCode]*metrics.Counter),
		requestDuration:  set.NewHistogram("shkv_request_duration_seconds"),
		protocolErrors:   set.NewCounter("shkv_protocol_errors_total"),
		connectionErrors: set.NewCounter("shkv_connection_errors_total"),
		connsOpened:      set.NewCounter("shkv_connections_opened_total"),
		connsClosed:      set.NewCounter("shkv_connections_closed_total"),
	}

	for op := common.OpGet; op <= common.OpQueueSize; op++ {
		m.requests[op] = set.NewCounter(fmt.Sprintf(`shkv_requests_total{op=%q}`, op.String()))
	}

	set.NewGauge("shkv_active_connections", func() float64 { return float64(activeConnections()) })
	set.NewGauge("shkv_store_keys", func() float64 { return float64(m.keys.Load()) })
	set.NewGauge("shkv_store_queues", func() float64 { return float64(m.queues.Load()) })
	set.NewGauge("shkv_store_queued_items", func() float64 { return float64(m.queuedItems.Load()) })
	set.NewGauge("shkv_store_size_bytes", func() float64 { return float64(m.sizeBytes.Load()) })

	return m
}

// requestHandled records a successfully answered request
func (m *serverMetrics) requestHandled(op common.OpCode, start time.Time) {
	if c, ok := m.requests[op]; ok {
		c.Inc()
	}
	m.requestDuration.UpdateDuration(start)
}

// storeChanged copies the store statistics for the gauges.
// Must be called from the goroutine that owns the store.
func (m *serverMetrics) storeChanged(s store.IStore) {
	info, err := s.Info()
	if err != nil {
		return
	}
	m.keys.Store(int64(info.Keys))
	m.queues.Store(int64(info.Queues))
	m.queuedItems.Store(info.QueuedItems)
	m.sizeBytes.Store(info.SizeBytes)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IConnectionObserver)
// --------------------------------------------------------------------------

func (m *serverMetrics) ConnectionOpened(uint64) {
	m.connsOpened.Inc()
}

func (m *serverMetrics) ConnectionClosed(_ uint64, err error) {
	m.connsClosed.Inc()
	switch {
	case err == nil:
	case common.IsProtocolError(err):
		m.protocolErrors.Inc()
	default:
		m.connectionErrors.Inc()
	}
}

var _ transport.IConnectionObserver = (*serverMetrics)(nil)

// --------------------------------------------------------------------------
// HTTP endpoint
// --------------------------------------------------------------------------

// handler serves the metrics in the Prometheus text format
func (m *serverMetrics) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m.set.WritePrometheus(w)
		metrics.WriteProcessMetrics(w)
	})
}

// serve exposes /metrics on the endpoint until ctx is done
func (m *serverMetrics) serve(ctx context.Context, endpoint string) (net.Addr, error) {
	listener, err := net.Listen("tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("Metrics server stopped: %v", err)
		}
	}()

	Logger.Infof("Serving metrics on http://%s/metrics", listener.Addr())
	return listener.Addr(), nil
}
