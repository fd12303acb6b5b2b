// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-video-wizard/internal/api"
	"github.com/jaycherian/gcp-go-video-wizard/internal/cloud"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
)

// StateManager holds the dependencies shared by the routes and listeners.
type StateManager struct {
	config     *cloud.Config
	cloud      *cloud.ServiceClients // nil when no Google project is configured.
	store      services.ProjectStore
	closeStore func() error
	locker     services.ProjectLocker
	groups     *services.SceneGroupService
	assets     *services.AssetService
}

var state = &StateManager{}

// SetupOS defaults the configuration directory to "configs" and the runtime
// to "local", leaving values already set in the environment alone.
func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// InitState creates the clients, the project store and the services. Without
// a Google project id the service runs stand-alone: no Pub/Sub, no GCS and
// no location planner.
func InitState(ctx context.Context) error {
	config := GetConfig()

	if config.Application.GoogleProjectId != "" {
		clients, err := cloud.NewCloudServiceClients(ctx, config)
		if err != nil {
			return err
		}
		state.cloud = clients
	} else {
		slog.Warn("no google project configured, running without cloud services")
	}

	store, closeStore, err := newProjectStore(ctx, config, state.cloud)
	if err != nil {
		return err
	}
	state.store, state.closeStore = store, closeStore

	if state.locker, err = newLocker(config, state.cloud); err != nil {
		return err
	}

	var publisher services.EventPublisher
	if state.cloud != nil && state.cloud.Publisher != nil {
		publisher = state.cloud.Publisher
	}
	state.groups = services.NewSceneGroupService(state.store, state.locker, publisher)

	state.assets = &services.AssetService{
		Store:       state.store,
		Locker:      state.locker,
		AssetBucket: config.Storage.AssetBucket,
		URLExpiry:   15 * time.Minute,
	}
	if objects := objectStore(config, state.cloud); objects != nil {
		state.assets.Writer = objects
		state.assets.Signer = objects
	} else {
		state.assets.Writer = unavailableWriter{}
	}
	return nil
}

// Dependencies returns what the HTTP routes need.
func (s *StateManager) Dependencies() *api.Dependencies {
	return &api.Dependencies{Store: s.store, Groups: s.groups, Assets: s.assets}
}

// Close releases the store and the cloud clients.
func (s *StateManager) Close() {
	if s.closeStore != nil {
		if err := s.closeStore(); err != nil {
			slog.Warn("failed to close project store", "error", err)
		}
	}
	if s.cloud != nil {
		s.cloud.Close()
	}
}

func newProjectStore(ctx context.Context, config *cloud.Config, clients *cloud.ServiceClients) (services.ProjectStore, func() error, error) {
	noop := func() error { return nil }
	switch config.ProjectStore.Kind {
	case "", cloud.StoreMemory:
		return services.NewMemoryProjectStore(), noop, nil
	case cloud.StoreSQLite:
		store, err := services.OpenSQLiteProjectStore(ctx, config.ProjectStore.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case cloud.StoreBigQuery:
		if clients == nil || clients.BiqQueryClient == nil {
			return nil, nil, fmt.Errorf("the bigquery project store needs a google project")
		}
		return &services.BigQueryProjectStore{
			BigqueryClient: clients.BiqQueryClient,
			DatasetName:    config.ProjectStore.DatasetName,
			ProjectTable:   config.ProjectStore.ProjectTable,
		}, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown project store kind %q", config.ProjectStore.Kind)
	}
}

func newLocker(config *cloud.Config, clients *cloud.ServiceClients) (services.ProjectLocker, error) {
	switch config.Locks.Kind {
	case "", cloud.LockLocal:
		return services.NewLocalLocker(), nil
	case cloud.LockRedis:
		if clients == nil || clients.RedisClient == nil {
			return nil, fmt.Errorf("redis locks need a google project and locks.redis_addr")
		}
		return services.NewRedisLocker(clients.RedisClient, time.Duration(config.Locks.TTLSeconds)*time.Second), nil
	default:
		return nil, fmt.Errorf("unknown lock kind %q", config.Locks.Kind)
	}
}

func objectStore(config *cloud.Config, clients *cloud.ServiceClients) *cloud.GCSObjectStore {
	if clients == nil {
		return nil
	}
	return &cloud.GCSObjectStore{
		Client:      clients.StorageClient,
		IAMClient:   clients.IAMClient,
		SignerEmail: config.Application.SignerServiceAccountEmail,
	}
}

// unavailableWriter rejects uploads when no bucket can be reached.
type unavailableWriter struct{}

func (unavailableWriter) WriteObject(_ context.Context, obj *cloud.GCSObject, _ []byte) (string, error) {
	return "", fmt.Errorf("asset storage is not configured, cannot write %s", obj.Name)
}
