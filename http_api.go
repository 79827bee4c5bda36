package sapflow

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

const httpTimeoutsMs = 3000

type probeReading struct {
	Id       string    `json:"id"`
	Name     string    `json:"name"`
	Index    int       `json:"index"`
	Value    float64   `json:"value"`
	LastSync time.Time `json:"last_sync"`
}

// HttpHandler serves the latest readings and on-demand measurements.
func (sf *SapFlow) HttpHandler() http.Handler {
	handler := httprouter.New()
	handler.GET("/readings", sf.handleReadings)
	handler.GET("/probes/:id", sf.handleProbe)
	handler.POST("/measure", sf.handleMeasure)
	return handler
}

// StartHttp serves HttpHandler on HttpAddr. It blocks like http.ListenAndServe.
func (sf *SapFlow) StartHttp() error {
	httpTimeout := httpTimeoutsMs * time.Millisecond

	server := &http.Server{
		Addr:              sf.HttpAddr,
		Handler:           sf.HttpHandler(),
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		// a measurement includes the heater pulse
		WriteTimeout: 10 * httpTimeout,
		IdleTimeout:  2 * httpTimeout,
	}

	return server.ListenAndServe()
}

func writeJson(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (sf *SapFlow) handleReadings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	m := sf.LastMeasurement()
	if m.Time.IsZero() {
		http.Error(w, "no measurement yet", http.StatusServiceUnavailable)
		return
	}
	writeJson(w, http.StatusOK, m)
}

func (sf *SapFlow) handleProbe(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id := p.ByName("id")

	var probe *Probe
	for _, pr := range sf.Probes {
		if pr.Id == id {
			probe = pr
		}
	}
	if probe == nil {
		http.Error(w, "probe not found", http.StatusNotFound)
		return
	}

	m := sf.LastMeasurement()
	value, ok := m.Temperatures[id]
	if !ok || time.Since(m.Time) > oldDataDuration {
		http.Error(w, "no recent reading for probe "+id, http.StatusServiceUnavailable)
		return
	}

	writeJson(w, http.StatusOK, probeReading{
		Id:       probe.Id,
		Name:     probe.Name,
		Index:    probe.Index,
		Value:    value,
		LastSync: m.Time,
	})
}

func (sf *SapFlow) handleMeasure(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	m, err := sf.Measure(r.Context())
	if err != nil && len(m.Temperatures) == 0 && m.Shunt == nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	pubErr := sf.Publish(r.Context(), m)
	if pubErr != nil {
		sf.getLogger().Error("failed to publish measurement", "err", pubErr)
	}

	writeJson(w, http.StatusOK, m)
}
