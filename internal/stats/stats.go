package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"time"
)

const (
	UsersRegistered      = "UsersRegistered"
	LoginsFailed         = "LoginsFailed"
	MessagesSent         = "MessagesSent"
	ConversationsDeleted = "ConversationsDeleted"
	BlocksCreated        = "BlocksCreated"
)

type StatsProvider interface {
	Incr(name string)
}

type StatsUpdater struct {
	vars       *expvar.Map
	updateChan chan string
	done       chan struct{}
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	expvarData := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		expvarData[kv.Key] = value
	})

	json.NewEncoder(w).Encode(expvarData)
}

// NewStatsUpdater creates a stats updater serving its counters on
// GET /debug/vars of mux.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		vars:       new(expvar.Map).Init(),
		updateChan: make(chan string, 512),
		done:       make(chan struct{}),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))
	su.initializeMetrics()

	return su
}

func (su *StatsUpdater) initializeMetrics() {
	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))

	for _, name := range []string{UsersRegistered, LoginsFailed, MessagesSent, ConversationsDeleted, BlocksCreated} {
		su.registerMetric(name)
	}
}

func (su *StatsUpdater) updateMetrics() {
	defer close(su.done)
	for name := range su.updateChan {
		metric, ok := su.vars.Get(name).(*expvar.Int)
		if !ok {
			continue
		}

		metric.Add(1)
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.updateChan <- name
}

func (su *StatsUpdater) registerMetric(name string) {
	su.vars.Set(name, new(expvar.Int))
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

// Stop drains pending updates and stops the updater. No Incr may follow.
func (su *StatsUpdater) Stop() {
	close(su.updateChan)
	<-su.done
}
