package cli

import (
	"context"
	"fmt"

	"todo/internal/backend/filestore"
	"todo/internal/backend/googletasks"
	"todo/internal/backend/httpapi"
	"todo/internal/config"
	"todo/internal/service"
)

// OpenStore is the production ServiceFactory. It builds the store named
// by cfg.Backend:
//   - file: the JSON document at cfg.DataFile
//   - remote: the REST API at cfg.APIURL
//   - google: the Google Tasks list cfg.GoogleList (needs `todo login`)
func OpenStore(ctx context.Context, cfg *config.Config) (service.Service, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return filestore.New(cfg.DataFile), nil
	case config.BackendRemote:
		client, err := httpapi.New(cfg.APIURL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendGoogle:
		client, err := googletasks.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
