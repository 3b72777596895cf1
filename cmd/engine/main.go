package main

import (
	"log"
	"os"

	"github.com/danielpatrickdp/adaptive-cat/internal/bank"
	"github.com/danielpatrickdp/adaptive-cat/internal/config"
	"github.com/danielpatrickdp/adaptive-cat/internal/server"
	"github.com/danielpatrickdp/adaptive-cat/internal/session"
)

// #region main

func main() {
	addr := envOr("CAT_ADDR", ":8080")
	configPath := envOr("CAT_CONFIG", "study.yaml")
	bankPath := envOr("CAT_BANK", "items.json")
	dbPath := envOr("CAT_DB", "adaptive_cat.db")

	study, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	b, err := bank.LoadFile(bankPath)
	if err != nil {
		log.Fatalf("load bank: %v", err)
	}

	store, err := session.NewStore(dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	srv, err := server.New(study, b, store)
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	log.Printf("[ENGINE] study %q: %d items over %d dimensions | db=%s | listening on %s",
		study.Name, b.Len(), len(study.Dimensions), dbPath, addr)
	if err := srv.Router().Run(addr); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

// #endregion main

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
