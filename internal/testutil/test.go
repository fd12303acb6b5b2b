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

// Package test provides helpers shared by the test suites: a cached test
// configuration and sample Pub/Sub payloads.
package test

import (
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-video-wizard/internal/cloud"
)

// StateManager caches the configuration so it is loaded once per test run.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test if err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestSceneOrderMessageText returns the payload the editor publishes
// after scenes of projectID were added, removed or reordered.
func GetTestSceneOrderMessageText(projectID string) string {
	return fmt.Sprintf(`{
  "project_id": %q,
  "reason": "scene_reordered"
}`, projectID)
}

// GetTestScenesReadyMessageText returns the payload published when the
// script of projectID has finished generating.
func GetTestScenesReadyMessageText(projectID string) string {
	return fmt.Sprintf(`{"project_id": %q}`, projectID)
}

// SetupOS points cloud.LoadConfig at the configs directory and the test
// runtime.
func SetupOS() (err error) {
	prefix := os.Getenv(cloud.EnvConfigFilePrefix)
	if prefix == "" {
		prefix = "configs"
	}
	if err = os.Setenv(cloud.EnvConfigFilePrefix, prefix); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig returns the cached test configuration, loading it on first use.
// Missing configuration files leave the defaults from cloud.NewConfig, so
// package tests run without any files on disk.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}
