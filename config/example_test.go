package config_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/memops/config"
)

func ExampleLoader_Load() {
	env := map[string]string{
		"DATABASE_URL": "postgres://${PGHOST}/mem",
		"PGHOST":       "localhost",
		"TRANSPORT":    "stdio",
		"LLM_PROVIDER": "ollama",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg, err := config.NewLoader(lookup).Load(context.Background())
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(cfg.Database.DSN, cfg.Server.Transport, len(cfg.Warnings()))
	// Output: postgres://localhost/mem stdio 0
}
