package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/cargoflow/partner-pulse/internal/config"
	"github.com/cargoflow/partner-pulse/internal/dataset"
	"github.com/cargoflow/partner-pulse/internal/model"
	"github.com/cargoflow/partner-pulse/internal/store"
)

// loadDataset reads the canonical dataset from a CSV or XLSX file, picking
// the loader by extension.
func loadDataset(path, sheet string) ([]model.OrderRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return dataset.LoadXLSX(path, dataset.XLSXOptions{SheetName: sheet})
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "open dataset")
		}
		defer f.Close()
		return dataset.LoadCSV(f)
	}
}

func initStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "partner-pulse.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}
