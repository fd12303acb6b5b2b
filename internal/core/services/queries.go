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

// Package services contains the business logic for interacting with data sources.
// This file, `queries.go`, centralizes the BigQuery SQL used by the
// BigQueryProjectStore. The only `%s` verb in each query is the fully
// qualified table name; every value is passed as a named query parameter.
package services

const (
	// QryFindProjectById loads one project document.
	QryFindProjectById = "SELECT * FROM `%s` WHERE id = @id"

	// QryListProjects returns the most recently updated projects.
	QryListProjects = "SELECT * FROM `%s` ORDER BY update_date DESC, id LIMIT @limit"

	// QryInsertProject inserts through DML rather than the streaming API, so
	// the row can be updated immediately afterwards. Streamed rows sit in a
	// buffer that rejects UPDATE statements.
	QryInsertProject = "INSERT INTO `%s` (id, title, topic, character, stage, location_count, scenes, scene_group, create_date, update_date) " +
		"VALUES (@id, @title, @topic, @character, @stage, @location_count, @scenes, @scene_group, @create_date, @update_date)"

	// QryUpdateSceneGroup replaces the scene_group column only. scene_group is
	// ARRAY<STRUCT<scenes ARRAY<STRING>>>; BigQuery does not allow an array to
	// hold arrays directly.
	QryUpdateSceneGroup = "UPDATE `%s` SET scene_group = @scene_group, update_date = CURRENT_TIMESTAMP() WHERE id = @id"

	// QryUpdateScenes replaces the scenes column.
	QryUpdateScenes = "UPDATE `%s` SET scenes = @scenes, update_date = CURRENT_TIMESTAMP() WHERE id = @id"

	// QryUpdateLocationCount replaces location_count; a NULL parameter clears it.
	QryUpdateLocationCount = "UPDATE `%s` SET location_count = @location_count, update_date = CURRENT_TIMESTAMP() WHERE id = @id"
)
