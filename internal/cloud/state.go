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

// Package cloud. This file builds the Google Cloud and Redis clients the
// service needs from the configuration and keeps them in one place so they
// can be closed together on shutdown.
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	goredis "github.com/redis/go-redis/v9"
	"google.golang.org/genai"
)

// ServiceClients holds every external client.
type ServiceClients struct {
	StorageClient   *storage.Client                         // Google Cloud Storage.
	PubsubClient    *pubsub.Client                          // Google Cloud Pub/Sub.
	GenAIClient     *genai.Client                           // Vertex AI generative models.
	BiqQueryClient  *bigquery.Client                        // BigQuery; nil unless the bigquery store is configured.
	IAMClient       *credentials.IamCredentialsClient       // IAM Credentials, used to sign GCS URLs.
	RedisClient     *goredis.Client                         // Redis; nil unless redis locks are configured.
	PubSubListeners map[string]*PubSubListener              // Listeners keyed by the logical subscription name.
	AgentModels     map[string]*QuotaAwareGenerativeAIModel // Generative models keyed by logical name.
	Publisher       *PubSubPublisher                        // SceneGroupChanged publisher; nil when no topic is set.
}

// Close releases all clients. Errors are logged; shutdown continues.
func (c *ServiceClients) Close() {
	if c.Publisher != nil {
		c.Publisher.Stop()
	}
	closers := map[string]func() error{}
	if c.StorageClient != nil {
		closers["storage"] = c.StorageClient.Close
	}
	if c.PubsubClient != nil {
		closers["pubsub"] = c.PubsubClient.Close
	}
	if c.BiqQueryClient != nil {
		closers["bigquery"] = c.BiqQueryClient.Close
	}
	if c.IAMClient != nil {
		closers["iam"] = c.IAMClient.Close
	}
	if c.RedisClient != nil {
		closers["redis"] = c.RedisClient.Close
	}
	for name, closeFn := range closers {
		if err := closeFn(); err != nil {
			slog.Warn("failed to close client", "client", name, "error", err)
		}
	}
}

// NewCloudServiceClients creates the clients for config.
//
// Inputs:
//   - ctx: Used for client creation and the redis ping.
//   - config: The loaded configuration.
//
// Outputs:
//   - *ServiceClients: The clients. Listeners have no command yet.
//   - error: The first client that failed to start.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	cloud = &ServiceClients{
		PubSubListeners: make(map[string]*PubSubListener),
		AgentModels:     make(map[string]*QuotaAwareGenerativeAIModel),
	}
	defer func() {
		if err != nil {
			cloud.Close()
			cloud = nil
		}
	}()

	if cloud.StorageClient, err = storage.NewClient(ctx); err != nil {
		return cloud, fmt.Errorf("storage client: %w", err)
	}
	if cloud.IAMClient, err = credentials.NewIamCredentialsClient(ctx); err != nil {
		return cloud, fmt.Errorf("iam credentials client: %w", err)
	}
	if cloud.PubsubClient, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
		return cloud, fmt.Errorf("pubsub client: %w", err)
	}

	slog.Debug("creating genai client",
		"project", config.Application.GoogleProjectId,
		"location", config.Application.GoogleLocation)
	if cloud.GenAIClient, err = genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	}); err != nil {
		return cloud, fmt.Errorf("genai client: %w", err)
	}

	if config.ProjectStore.Kind == StoreBigQuery {
		if cloud.BiqQueryClient, err = bigquery.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
			return cloud, fmt.Errorf("bigquery client: %w", err)
		}
	}

	if config.Locks.Kind == LockRedis {
		cloud.RedisClient = goredis.NewClient(&goredis.Options{
			Addr:        config.Locks.RedisAddr,
			DialTimeout: 5 * time.Second,
		})
		if err = cloud.RedisClient.Ping(ctx).Err(); err != nil {
			return cloud, fmt.Errorf("redis ping %s: %w", config.Locks.RedisAddr, err)
		}
	}

	for subKey, values := range config.TopicSubscriptions {
		listener, lerr := NewPubSubListener(cloud.PubsubClient, values.Name, config.Application.ThreadPoolSize, nil)
		if lerr != nil {
			return cloud, lerr
		}
		cloud.PubSubListeners[subKey] = listener
	}

	if config.Topics.SceneGroupChanged != "" {
		cloud.Publisher = NewPubSubPublisher(cloud.PubsubClient, config.Topics.SceneGroupChanged)
	}

	for amKey, values := range config.AgentModels {
		modelConfig := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
		}
		cloud.AgentModels[amKey] = NewQuotaAwareModel(modelConfig, values.Model, cloud.GenAIClient.Models, values.RateLimit)
	}

	return cloud, nil
}
