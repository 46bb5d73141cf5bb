// Command dcxserver exposes the execution engine over a thin HTTP surface:
// POST /pulses, POST /pulses/{pulseId}/verify, POST /pulses/{pulseId}/proof.
// It is a request/response API over one engine, not a peer network.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"dcx/core"
	"dcx/pkg/config"
)

var limiter = rate.NewLimiter(200, 100) // 200 req/s, burst 100

func rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "rate limit", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r)
		logrus.WithField("requestId", reqID).Infof("%s %s %s", r.Method, r.RequestURI, time.Since(start))
	})
}

type server struct {
	store    *core.Store
	registry *core.CodeRegistry
	engine   *core.Engine
}

// storeFromConfig builds the content store cfg.Store describes: memory-only
// by default, or memory fronting a SQLiteBackingStore when Backing is
// "sqlite", with the promotion cache sized from cfg.Store.PromotionSize.
func storeFromConfig(cfg *config.Config) (*core.Store, error) {
	if cfg.Store.Backing != "sqlite" {
		return core.NewStore(), nil
	}
	backing, err := core.OpenSQLiteBackingStore(cfg.Store.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite backing store: %w", err)
	}
	opts := []core.StoreOption{core.WithBackingStore(backing)}
	if cfg.Store.PromotionSize > 0 {
		opts = append(opts, core.WithPromotionCacheSize(cfg.Store.PromotionSize))
	}
	return core.NewStore(opts...), nil
}

func newServer(cfg *config.Config) *server {
	store, err := storeFromConfig(cfg)
	if err != nil {
		logrus.WithError(err).Warn("sqlite backing store unavailable, falling back to memory-only store")
		store = core.NewStore()
	}
	registry := core.NewCodeRegistry(store)
	engine := core.NewEngine(store, registry)
	if _, err := registry.Register(core.KindBuiltin, "fibonacci", core.Metadata{Name: "fibonacci"}, core.FibonacciBuiltin()); err != nil {
		logrus.WithError(err).Fatal("register fibonacci builtin")
	}
	if _, err := registry.Register(core.KindBuiltin, "bubble-sort", core.Metadata{Name: "bubble-sort"}, core.BubbleSortBuiltin()); err != nil {
		logrus.WithError(err).Fatal("register bubble-sort builtin")
	}
	return &server{store: store, registry: registry, engine: engine}
}

func (s *server) submitPulse(w http.ResponseWriter, r *http.Request) {
	var pulse core.Pulse
	if err := json.NewDecoder(r.Body).Decode(&pulse); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result := s.engine.Execute(pulse)
	writeJSON(w, result)
}

func (s *server) verifyPulse(w http.ResponseWriter, r *http.Request) {
	pulseID := core.CID(mux.Vars(r)["pulseId"])
	raw, ok := s.store.Fetch(pulseID)
	if !ok {
		http.Error(w, "pulse not found", http.StatusNotFound)
		return
	}
	var pulse core.Pulse
	if err := json.Unmarshal(raw, &pulse); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, core.Verify(s.engine, s.store, pulse))
}

func (s *server) proofPulse(w http.ResponseWriter, r *http.Request) {
	pulseID := core.CID(mux.Vars(r)["pulseId"])
	rawPulse, ok := s.store.Fetch(pulseID)
	if !ok {
		http.Error(w, "pulse not found", http.StatusNotFound)
		return
	}
	var pulse core.Pulse
	if err := json.Unmarshal(rawPulse, &pulse); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rawTrace, ok := s.store.Fetch(pulse.TraceCID)
	if !ok {
		http.Error(w, "trace not found", http.StatusNotFound)
		return
	}
	var trace core.Trace
	if err := json.Unmarshal(rawTrace, &trace); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	proof, err := core.GenerateProof(s.store, pulse, trace)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, proof)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logrus.WithError(err).Warn("using default configuration")
		cfg = &config.Config{}
		cfg.HTTP.ListenAddr = ":8088"
	}

	s := newServer(cfg)

	r := mux.NewRouter()
	r.Use(requestLogger, rateLimited)
	r.HandleFunc("/pulses", s.submitPulse).Methods(http.MethodPost)
	r.HandleFunc("/pulses/{pulseId}/verify", s.verifyPulse).Methods(http.MethodPost)
	r.HandleFunc("/pulses/{pulseId}/proof", s.proofPulse).Methods(http.MethodPost)

	addr := cfg.HTTP.ListenAddr
	if addr == "" {
		addr = ":8088"
	}
	logrus.WithField("addr", addr).Info("dcxserver listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		logrus.WithError(err).Fatal("dcxserver exited")
	}
}
