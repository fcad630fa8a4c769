package telemetry

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stydxm/gopsched/pkg/annexb"
	"github.com/stydxm/gopsched/pkg/stream"
)

// Metrics 编码会话的Prometheus指标
type Metrics struct {
	PicturesTotal *prometheus.CounterVec
	NalUnitsTotal *prometheus.CounterVec
	BytesTotal    prometheus.Counter
	PoolSize      *prometheus.GaugeVec
}

// NewMetrics 创建并注册指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PicturesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gopsched_pictures_total",
				Help: "Total number of coded pictures",
			},
			[]string{"frame_type"},
		),
		NalUnitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gopsched_nal_units_total",
				Help: "Total number of emitted NAL units",
			},
			[]string{"nal_type"},
		),
		BytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gopsched_bytes_total",
				Help: "Total number of emitted Annex-B bytes",
			},
		),
		PoolSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gopsched_reference_pool_size",
				Help: "Number of reference pictures held by the session",
			},
			[]string{"session"},
		),
	}
	reg.MustRegister(m.PicturesTotal, m.NalUnitsTotal, m.BytesTotal, m.PoolSize)
	return m
}

// ObservePicture 实现stream.Observer
func (m *Metrics) ObservePicture(sessionID string, ep *stream.EncodedPicture) {
	m.PicturesTotal.WithLabelValues(ep.Picture.Type.String()).Inc()
	for _, nal := range annexb.Split(ep.Data) {
		m.NalUnitsTotal.WithLabelValues(annexb.Type(nal).String()).Inc()
	}
	m.BytesTotal.Add(float64(len(ep.Data)))
	m.PoolSize.WithLabelValues(sessionID).Set(float64(ep.PoolSize))
}

// MetricsRouter 暴露/metrics
func MetricsRouter(gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// NewMetricsServer 创建指标HTTP服务器
func NewMetricsServer(address string, gatherer prometheus.Gatherer) *http.Server {
	return &http.Server{
		Addr:              address,
		Handler:           MetricsRouter(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
