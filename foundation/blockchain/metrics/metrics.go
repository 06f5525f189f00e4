// Package metrics provides the prometheus collectors that track mining and
// consensus activity for the nodes in the network.
package metrics

import (
	"strconv"

	"github.com/ardanlabs/powmesh/foundation/blockchain/peer"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the set of collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	blocksMined      *prometheus.CounterVec
	miningDuration   prometheus.Histogram
	blocksAccepted   *prometheus.CounterVec
	blocksRejected   *prometheus.CounterVec
	chainRequests    *prometheus.CounterVec
	chainReplaced    *prometheus.CounterVec
	chainRejected    *prometheus.CounterVec
	chainLength      *prometheus.GaugeVec
	messagesReceived *prometheus.CounterVec
}

// New constructs the collectors and registers them with the registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := Metrics{
		blocksMined: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powmesh_blocks_mined_total",
				Help: "The total number of blocks mined and appended locally",
			},
			[]string{"node"},
		),
		miningDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "powmesh_mining_duration_seconds",
				Help:    "Duration in seconds of proof of work searches that found a solution",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		blocksAccepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powmesh_peer_blocks_accepted_total",
				Help: "The total number of peer blocks appended to the local chain",
			},
			[]string{"node"},
		),
		blocksRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powmesh_peer_blocks_rejected_total",
				Help: "The total number of peer blocks rejected by reason",
			},
			[]string{"node", "reason"},
		),
		chainRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powmesh_chain_requests_total",
				Help: "The total number of chain requests sent to peers",
			},
			[]string{"node"},
		),
		chainReplaced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powmesh_chain_replaced_total",
				Help: "The total number of times the local chain was replaced",
			},
			[]string{"node"},
		),
		chainRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powmesh_chain_rejected_total",
				Help: "The total number of peer chains rejected by reason",
			},
			[]string{"node", "reason"},
		),
		chainLength: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "powmesh_chain_length",
				Help: "The current number of blocks in the local chain including genesis",
			},
			[]string{"node"},
		),
		messagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powmesh_messages_received_total",
				Help: "The total number of messages handled by kind",
			},
			[]string{"node", "kind"},
		),
	}

	collectors := []prometheus.Collector{
		m.blocksMined,
		m.miningDuration,
		m.blocksAccepted,
		m.blocksRejected,
		m.chainRequests,
		m.chainReplaced,
		m.chainRejected,
		m.chainLength,
		m.messagesReceived,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &m, nil
}

func label(id peer.ID) string {
	return strconv.FormatUint(uint64(id), 10)
}

// =============================================================================

// BlockMined records a block mined by the node and the time the search took.
func (m *Metrics) BlockMined(id peer.ID, seconds float64) {
	if m == nil {
		return
	}

	m.blocksMined.WithLabelValues(label(id)).Inc()
	m.miningDuration.Observe(seconds)
}

// BlockAccepted records a peer block appended to the local chain.
func (m *Metrics) BlockAccepted(id peer.ID) {
	if m == nil {
		return
	}

	m.blocksAccepted.WithLabelValues(label(id)).Inc()
}

// BlockRejected records a peer block that failed to append.
func (m *Metrics) BlockRejected(id peer.ID, reason string) {
	if m == nil {
		return
	}

	m.blocksRejected.WithLabelValues(label(id), reason).Inc()
}

// ChainRequested records a chain request sent to a peer.
func (m *Metrics) ChainRequested(id peer.ID) {
	if m == nil {
		return
	}

	m.chainRequests.WithLabelValues(label(id)).Inc()
}

// ChainReplaced records the local chain being replaced.
func (m *Metrics) ChainReplaced(id peer.ID) {
	if m == nil {
		return
	}

	m.chainReplaced.WithLabelValues(label(id)).Inc()
}

// ChainRejected records a peer chain that did not replace the local chain.
func (m *Metrics) ChainRejected(id peer.ID, reason string) {
	if m == nil {
		return
	}

	m.chainRejected.WithLabelValues(label(id), reason).Inc()
}

// ChainLength records the current length of the local chain.
func (m *Metrics) ChainLength(id peer.ID, length int) {
	if m == nil {
		return
	}

	m.chainLength.WithLabelValues(label(id)).Set(float64(length))
}

// MessageReceived records a message handled by the node.
func (m *Metrics) MessageReceived(id peer.ID, kind string) {
	if m == nil {
		return
	}

	m.messagesReceived.WithLabelValues(label(id), kind).Inc()
}
