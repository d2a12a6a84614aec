package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the atomic counters that are the source of truth for this
// service's operational numbers. Values are read lock-free and exposed
// both as a hand-formatted text block (matching the wire format legacy
// clients may still parse) and through a registered Prometheus registry.
type Metrics struct {
	keysTotal    atomic.Uint64
	objectsTotal atomic.Uint64
	bytesTotal   atomic.Uint64
	putsTotal    atomic.Uint64
	getsTotal    atomic.Uint64
	deletesTotal atomic.Uint64
	dedupHits    atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance and registers its gauge/counter funcs on
// a private registry so tests can construct more than one without
// tripping the default registry's duplicate-registration panic.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "kvstore_keys_total",
			Help: "Total number of live keys",
		}, func() float64 { return float64(m.keysTotal.Load()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "kvstore_objects_total",
			Help: "Total number of unique stored objects",
		}, func() float64 { return float64(m.objectsTotal.Load()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "kvstore_bytes_total",
			Help: "Total uncompressed bytes across live keys",
		}, func() float64 { return float64(m.bytesTotal.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "kvstore_ops_total",
			Help:        "Total operations by kind",
			ConstLabels: prometheus.Labels{"operation": "put"},
		}, func() float64 { return float64(m.putsTotal.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "kvstore_ops_total",
			Help:        "Total operations by kind",
			ConstLabels: prometheus.Labels{"operation": "get"},
		}, func() float64 { return float64(m.getsTotal.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "kvstore_ops_total",
			Help:        "Total operations by kind",
			ConstLabels: prometheus.Labels{"operation": "delete"},
		}, func() float64 { return float64(m.deletesTotal.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "kvstore_dedup_hits_total",
			Help: "Total PUTs served from an existing object without a new write",
		}, func() float64 { return float64(m.dedupHits.Load()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "kvstore_up",
			Help: "Whether the store is open and serving (1) or not (0)",
		}, func() float64 { return 1 }),
		PutDuration,
		GetDuration,
	)

	return m
}

var (
	// PutDuration and GetDuration are histograms shared across Metrics
	// instances; they carry no per-instance state so registering the
	// same collector twice (e.g. in tests constructing multiple stores)
	// would panic, unlike the GaugeFunc/CounterFunc wrappers above which
	// are cheap to recreate per instance.
	PutDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kvstore_put_duration_seconds",
		Help:    "PUT handler latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
	GetDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kvstore_get_duration_seconds",
		Help:    "GET handler latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func (m *Metrics) IncPuts()      { m.putsTotal.Add(1) }
func (m *Metrics) IncGets()      { m.getsTotal.Add(1) }
func (m *Metrics) IncDeletes()   { m.deletesTotal.Add(1) }
func (m *Metrics) IncDedupHits() { m.dedupHits.Add(1) }

func (m *Metrics) SetKeys(n uint64)    { m.keysTotal.Store(n) }
func (m *Metrics) SetObjects(n uint64) { m.objectsTotal.Store(n) }

func (m *Metrics) AddBytes(n uint64) { m.bytesTotal.Add(n) }

// SubBytes subtracts n from the running byte total without underflowing,
// via a compare-and-swap retry loop.
func (m *Metrics) SubBytes(n uint64) {
	for {
		cur := m.bytesTotal.Load()
		next := uint64(0)
		if cur > n {
			next = cur - n
		}
		if m.bytesTotal.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Snapshot is a point-in-time copy of every counter, used by handlers
// that need to render more than the Prometheus text format (e.g. the
// plaintext /metrics fallback some older clients expect).
type Snapshot struct {
	KeysTotal    uint64
	ObjectsTotal uint64
	BytesTotal   uint64
	PutsTotal    uint64
	GetsTotal    uint64
	DeletesTotal uint64
	DedupHits    uint64
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		KeysTotal:    m.keysTotal.Load(),
		ObjectsTotal: m.objectsTotal.Load(),
		BytesTotal:   m.bytesTotal.Load(),
		PutsTotal:    m.putsTotal.Load(),
		GetsTotal:    m.getsTotal.Load(),
		DeletesTotal: m.deletesTotal.Load(),
		DedupHits:    m.dedupHits.Load(),
	}
}

// ToText renders the exact exposition block legacy scrapers parsed
// against the original implementation, ahead of this package's own
// registry-backed Handler.
func (m *Metrics) ToText() string {
	s := m.Snapshot()
	return fmt.Sprintf(
		"# HELP kv_storage_keys_total Total number of keys\n"+
			"# TYPE kv_storage_keys_total gauge\n"+
			"kv_storage_keys_total %d\n"+
			"# HELP kv_storage_objects_total Total unique objects\n"+
			"# TYPE kv_storage_objects_total gauge\n"+
			"kv_storage_objects_total %d\n"+
			"# HELP kv_storage_bytes_total Total uncompressed bytes stored\n"+
			"# TYPE kv_storage_bytes_total gauge\n"+
			"kv_storage_bytes_total %d\n"+
			"# HELP kv_storage_ops_total Total operations by kind\n"+
			"# TYPE kv_storage_ops_total counter\n"+
			"kv_storage_ops_total{operation=\"put\"} %d\n"+
			"kv_storage_ops_total{operation=\"get\"} %d\n"+
			"kv_storage_ops_total{operation=\"delete\"} %d\n"+
			"# HELP kv_storage_dedup_hits_total Total deduplicated PUTs\n"+
			"# TYPE kv_storage_dedup_hits_total counter\n"+
			"kv_storage_dedup_hits_total %d\n",
		s.KeysTotal, s.ObjectsTotal, s.BytesTotal,
		s.PutsTotal, s.GetsTotal, s.DeletesTotal, s.DedupHits,
	)
}

// Handler returns the Prometheus exposition-format HTTP handler for this
// Metrics instance's private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
