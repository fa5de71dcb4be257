package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/openvdm/openvdm-web/internal/syslog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var allStatuses = []types.Status{types.StatusRunning, types.StatusIdle, types.StatusError, types.StatusDisabled}

type TransferLister interface {
	GetAllTransfers(filter types.TransferFilter) ([]types.Transfer, error)
}

type WarehouseGetter interface {
	GetWarehouse() (types.Warehouse, error)
}

type metrics struct {
	mu sync.Mutex

	transfersTotal    *prometheus.GaugeVec
	transfersByStatus *prometheus.GaugeVec
	transferStatus    *prometheus.GaugeVec
	transferRunning   *prometheus.GaugeVec
	systemOn          prometheus.Gauge
	warehouseHealthy  *prometheus.GaugeVec

	previousTransferLabels map[string]prometheus.Labels
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		transfersTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "openvdm_transfers_total",
				Help: "Number of configured transfers by kind",
			},
			[]string{"kind"},
		),
		transfersByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "openvdm_transfers_by_status",
				Help: "Number of transfers by kind and status",
			},
			[]string{"kind", "status"},
		),
		transferStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "openvdm_transfer_status",
				Help: "Status code of each transfer (1=Running, 2=Idle, 3=Error, 4=Disabled)",
			},
			[]string{"transfer_id", "kind", "name"},
		),
		transferRunning: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "openvdm_transfer_running",
				Help: "Transfer has a live worker job (1=running, 0=not running)",
			},
			[]string{"transfer_id", "kind", "name"},
		),
		systemOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "openvdm_system_on",
			Help: "System status (1=On, 0=Off)",
		}),
		warehouseHealthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "openvdm_warehouse_healthy",
				Help: "Result of the last warehouse test (1=ok, 0=error)",
			},
			[]string{"warehouse"},
		),
		previousTransferLabels: make(map[string]prometheus.Labels),
	}

	reg.MustRegister(
		m.transfersTotal,
		m.transfersByStatus,
		m.transferStatus,
		m.transferRunning,
		m.systemOn,
		m.warehouseHealthy,
	)
	return m
}

// Handler serves reg, refreshing the transfer and warehouse gauges on
// every scrape.
func Handler(reg *prometheus.Registry, transfers TransferLister, warehouse WarehouseGetter) http.HandlerFunc {
	m := newMetrics(reg)
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry: reg,
	})
	return func(w http.ResponseWriter, r *http.Request) {
		m.update(transfers, warehouse)
		handler.ServeHTTP(w, r)
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (m *metrics) update(lister TransferLister, warehouse WarehouseGetter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	transfers, err := lister.GetAllTransfers(types.TransferFilter{})
	if err != nil {
		syslog.L.Error(err).
			WithField("handler", "prometheus_metrics").
			WithMessage("failed to get transfers").Write()
		return
	}

	counts := map[types.TransferKind]map[types.Status]int{
		types.KindCollectionSystem: {},
		types.KindCruiseData:       {},
	}
	currentLabels := make(map[string]prometheus.Labels, len(transfers))

	for _, t := range transfers {
		if counts[t.Kind] == nil {
			counts[t.Kind] = map[types.Status]int{}
		}
		counts[t.Kind][t.Status]++

		labels := prometheus.Labels{
			"transfer_id": strconv.FormatInt(t.ID, 10),
			"kind":        string(t.Kind),
			"name":        t.Name,
		}
		currentLabels[labels["transfer_id"]] = labels
		m.transferStatus.With(labels).Set(float64(t.Status))
		m.transferRunning.With(labels).Set(boolGauge(t.PID != 0))
	}

	for key, labels := range m.previousTransferLabels {
		if current, ok := currentLabels[key]; ok && current["name"] == labels["name"] {
			continue
		}
		m.transferStatus.Delete(labels)
		m.transferRunning.Delete(labels)
	}
	m.previousTransferLabels = currentLabels

	for kind, byStatus := range counts {
		total := 0
		for _, status := range allStatuses {
			m.transfersByStatus.WithLabelValues(string(kind), status.String()).Set(float64(byStatus[status]))
			total += byStatus[status]
		}
		m.transfersTotal.WithLabelValues(string(kind)).Set(float64(total))
	}

	w, err := warehouse.GetWarehouse()
	if err != nil {
		syslog.L.Error(err).
			WithField("handler", "prometheus_metrics").
			WithMessage("failed to get warehouse").Write()
		return
	}
	m.systemOn.Set(boolGauge(w.SystemStatus == types.SystemOn))
	m.warehouseHealthy.WithLabelValues("shipboard").Set(boolGauge(w.ShipboardDataWarehouseStatus == types.WarehouseOK))
	m.warehouseHealthy.WithLabelValues("shoreside").Set(boolGauge(w.ShoresideDataWarehouseStatus == types.WarehouseOK))
}
