package serve

import (
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/ValentinKolb/qKV/lib/antientropy"
	"github.com/ValentinKolb/qKV/rpc/server"
)

// newMetricsServer serves the replica metrics in Prometheus text format on /metrics
func newMetricsServer(endpoint string, serv *server.Server, scheduler antientropy.IScheduler) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		serv.WriteMetrics(w)
		scheduler.WriteMetrics(w)
		metrics.WriteProcessMetrics(w)
	})

	server.Logger.Infof("Serving metrics on http://%s/metrics", endpoint)
	return &http.Server{Addr: endpoint, Handler: mux}
}
