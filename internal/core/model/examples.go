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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides factory functions for hardcoded example instances
// used for few-shot prompting, so the model returns JSON in the exact shape
// we parse.
package model

// GetExampleLocationPlan returns a sample LocationPlan for a six scene script
// set in three places.
//
// Outputs:
//   - *LocationPlan: A pointer to a hardcoded plan.
func GetExampleLocationPlan() *LocationPlan {
	return &LocationPlan{
		LocationCount: 3,
		Locations: []*Location{
			{Name: "Harbour at dawn", Scenes: []any{1, 2}},
			{Name: "Lighthouse interior", Scenes: []any{3, 4, 5}},
			{Name: "Cliff path", Scenes: []any{6}},
		},
	}
}
