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

package cloud

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
)

// PubSubPublisher publishes SceneGroupChanged events to a topic.
type PubSubPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubPublisher returns a publisher for topicID. Events for the same
// project are ordered by the project id ordering key.
func NewPubSubPublisher(client *pubsub.Client, topicID string) *PubSubPublisher {
	topic := client.Topic(topicID)
	topic.EnableMessageOrdering = true
	return &PubSubPublisher{topic: topic}
}

// Publish sends the event and waits for the server to accept it.
func (p *PubSubPublisher) Publish(ctx context.Context, event *model.SceneGroupChanged) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding scene group event: %w", err)
	}
	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:        data,
		OrderingKey: event.ProjectId,
		Attributes: map[string]string{
			"project_id": event.ProjectId,
			"reason":     event.Reason,
		},
	})
	if _, err := res.Get(ctx); err != nil {
		p.topic.ResumePublish(event.ProjectId)
		return fmt.Errorf("publishing scene group event: %w", err)
	}
	return nil
}

// Stop flushes pending messages.
func (p *PubSubPublisher) Stop() {
	p.topic.Stop()
}
