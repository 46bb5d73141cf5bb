// Package cli implements dcx's cobra subcommands. It is the one place in
// this repository that relies on a process-wide convenience instance; core
// itself never does.
package cli

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"dcx/core"
	"dcx/pkg/config"
)

func init() {
	_ = godotenv.Load()
}

var (
	defaultOnce     sync.Once
	defaultStore    *core.Store
	defaultRegistry *core.CodeRegistry
	defaultEngine   *core.Engine
)

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

// Default lazily constructs the process-wide Store/CodeRegistry/Engine
// triple the CLI commands share, and registers the built-in demo
// operations (Fibonacci, bubble sort) under stable names. The store is
// built from the loaded Config, so `DCX_STORE_BACKING=sqlite` (or a
// dcx.yaml with store.backing: sqlite) fronts it with a durable
// SQLiteBackingStore instead of the memory-only default.
func Default() (*core.Store, *core.CodeRegistry, *core.Engine) {
	defaultOnce.Do(func() {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			logrus.WithError(err).Warn("using default configuration")
			cfg = &config.Config{}
		}

		store, err := storeFromConfig(cfg)
		if err != nil {
			logrus.WithError(err).Warn("sqlite backing store unavailable, falling back to memory-only store")
			store = core.NewStore()
		}

		defaultStore = store
		defaultRegistry = core.NewCodeRegistry(defaultStore)
		defaultEngine = core.NewEngine(defaultStore, defaultRegistry)

		mustRegisterBuiltin(defaultRegistry, "fibonacci", core.FibonacciBuiltin())
		mustRegisterBuiltin(defaultRegistry, "bubble-sort", core.BubbleSortBuiltin())
	})
	return defaultStore, defaultRegistry, defaultEngine
}

func mustRegisterBuiltin(reg *core.CodeRegistry, name string, r core.Runnable) core.CID {
	cid, err := reg.Register(core.KindBuiltin, name, core.Metadata{Name: name}, r)
	if err != nil {
		panic(err)
	}
	return cid
}
