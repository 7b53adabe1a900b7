package nextmqtt

// MetricLabels are key-value pairs attached to a metric observation.
type MetricLabels map[string]string

// Metrics is the instrumentation sink the session domain writes through.
// Observability is ambient instrumentation, not a protocol feature, so it
// carries no bearing on the Non-goals this client otherwise honors.
type Metrics interface {
	Counter(name string, labels MetricLabels) Counter
	Gauge(name string, labels MetricLabels) Gauge
}

// Counter is a monotonically increasing count.
type Counter interface {
	Inc()
	Add(delta float64)
	Value() float64
}

// Gauge is a value that can move up and down.
type Gauge interface {
	Set(value float64)
	Inc()
	Dec()
	Value() float64
}

// NoOpMetrics discards every observation. It is the default when no
// Metrics option is supplied.
type NoOpMetrics struct{}

func (NoOpMetrics) Counter(string, MetricLabels) Counter { return noOpCounter{} }
func (NoOpMetrics) Gauge(string, MetricLabels) Gauge     { return noOpGauge{} }

type noOpCounter struct{}

func (noOpCounter) Inc()           {}
func (noOpCounter) Add(float64)    {}
func (noOpCounter) Value() float64 { return 0 }

type noOpGauge struct{}

func (noOpGauge) Set(float64)     {}
func (noOpGauge) Inc()            {}
func (noOpGauge) Dec()            {}
func (noOpGauge) Value() float64  { return 0 }

// Standard metric names emitted by the session domain.
const (
	MetricPacketsSent     = "nextmqtt_packets_sent_total"
	MetricPacketsReceived = "nextmqtt_packets_received_total"
	MetricInflightDepth   = "nextmqtt_inflight_depth"
	MetricReconnects      = "nextmqtt_reconnects_total"
)

// LabelPacketType is the label key carrying a PacketType.String() value.
const LabelPacketType = "packet_type"

// sessionMetrics provides convenience methods over a Metrics sink for the
// observations the session domain makes, grounded on the teacher's
// BrokerMetrics helper in metrics.go.
type sessionMetrics struct {
	m Metrics
}

func newSessionMetrics(m Metrics) sessionMetrics {
	if m == nil {
		m = NoOpMetrics{}
	}
	return sessionMetrics{m: m}
}

func (s sessionMetrics) packetSent(t PacketType) {
	s.m.Counter(MetricPacketsSent, MetricLabels{LabelPacketType: t.String()}).Inc()
}

func (s sessionMetrics) packetReceived(t PacketType) {
	s.m.Counter(MetricPacketsReceived, MetricLabels{LabelPacketType: t.String()}).Inc()
}

func (s sessionMetrics) inflightDepth(n int) {
	s.m.Gauge(MetricInflightDepth, nil).Set(float64(n))
}

func (s sessionMetrics) reconnectAttempted() {
	s.m.Counter(MetricReconnects, nil).Inc()
}
