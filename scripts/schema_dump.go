// Prints the dataset tables visible to players, and the schema capabilities
// the server would detect, without starting the server.
//
// Usage: go run scripts/schema_dump.go [configs/config.yaml]

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"query_clash_backend/internal/config"
	"query_clash_backend/internal/repository"
	"query_clash_backend/pkg/database"
	"query_clash_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	path := "configs/config.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read config: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("parse config: %v", err)
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "database.db"
	}

	logger.InitLogger(&cfg)

	db, err := database.Open(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	caps := database.Probe(db)

	schema, err := repository.NewDatasetRepository(db).VisibleSchema(context.Background())
	if err != nil {
		log.Fatalf("read schema: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]interface{}{
		"capabilities": caps,
		"tables":       schema,
	}); err != nil {
		log.Fatalf("encode: %v", err)
	}
}
