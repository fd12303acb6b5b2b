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

// Package services. This file holds the per-project locks that serialize
// scene group writes, so two toggles on the same project never interleave
// their read-modify-write cycles.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ProjectLocker grants exclusive access to one project at a time.
type ProjectLocker interface {
	// Lock blocks until the project is free or ctx is done. The returned
	// unlock func must be called exactly once.
	Lock(ctx context.Context, projectID string) (unlock func(), err error)
}

// LocalLocker serializes access within one process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch      chan struct{}
	waiters int
}

// NewLocalLocker returns an empty locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*lockSlot)}
}

// Lock acquires the project's slot. Slots are dropped once nobody holds or
// waits for them.
func (l *LocalLocker) Lock(ctx context.Context, projectID string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[projectID]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[projectID] = slot
	}
	slot.waiters++
	l.mu.Unlock()

	release := func() {
		l.mu.Lock()
		slot.waiters--
		if slot.waiters == 0 {
			delete(l.slots, projectID)
		}
		l.mu.Unlock()
	}

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		release()
		return nil, fmt.Errorf("locking project %s: %w", projectID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			release()
		})
	}, nil
}

// releaseScript deletes the lock only if it still holds our token, so an
// expired holder cannot release a lock taken over by someone else.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes access across service instances with a lease in
// Redis. A holder that dies loses the lock after TTL.
type RedisLocker struct {
	Client    *goredis.Client
	TTL       time.Duration
	RetryWait time.Duration
	KeyPrefix string
}

// NewRedisLocker returns a locker with the given lease length.
func NewRedisLocker(client *goredis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		Client:    client,
		TTL:       ttl,
		RetryWait: 50 * time.Millisecond,
		KeyPrefix: "video-wizard:lock:project:",
	}
}

func (l *RedisLocker) Lock(ctx context.Context, projectID string) (func(), error) {
	key := l.KeyPrefix + projectID
	token := uuid.NewString()
	wait := l.RetryWait

	for {
		ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("locking project %s: %w", projectID, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("locking project %s: %w", projectID, ctx.Err())
		case <-time.After(wait):
		}
		wait = min(wait*2, time.Second)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's ctx may already be cancelled; release regardless.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.Client, []string{key}, token).Err(); err != nil {
				slog.Warn("failed to release project lock", "project_id", projectID, "error", err)
			}
		})
	}, nil
}
