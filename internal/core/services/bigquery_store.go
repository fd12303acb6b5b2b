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

// Package services. This file defines BigQueryProjectStore, which keeps
// project documents in a BigQuery table, and the row types it maps them to.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
	"google.golang.org/api/iterator"
)

// SceneRow is the BigQuery shape of a scene. Ids are stored as STRING so
// numeric and opaque ids share one column.
type SceneRow struct {
	Id            string   `bigquery:"id"`
	Index         int64    `bigquery:"scene_index"`
	Narration     string   `bigquery:"narration"`
	ImagePrompt   string   `bigquery:"image_prompt"`
	ImageURL      string   `bigquery:"image_url"`
	CandidateURLs []string `bigquery:"candidate_urls"`
}

// GroupRow is the BigQuery shape of one scene group.
type GroupRow struct {
	Scenes []string `bigquery:"scenes"`
}

// ProjectRow is the BigQuery shape of a project.
type ProjectRow struct {
	Id            string             `bigquery:"id"`
	Title         string             `bigquery:"title"`
	Topic         string             `bigquery:"topic"`
	Character     string             `bigquery:"character"`
	Stage         string             `bigquery:"stage"`
	LocationCount bigquery.NullInt64 `bigquery:"location_count"`
	Scenes        []SceneRow         `bigquery:"scenes"`
	SceneGroup    []GroupRow         `bigquery:"scene_group"`
	CreateDate    time.Time          `bigquery:"create_date"`
	UpdateDate    time.Time          `bigquery:"update_date"`
}

// ToGroupRows converts records to their BigQuery shape.
func ToGroupRows(records []scenegroup.Record) []GroupRow {
	out := make([]GroupRow, 0, len(records))
	for _, r := range records {
		ids := make([]string, len(r.Scenes))
		for i, id := range r.Scenes {
			ids[i] = id.Key()
		}
		out = append(out, GroupRow{Scenes: ids})
	}
	return out
}

// FromGroupRows converts BigQuery group rows back to records. Ids are
// normalized, so "3" comes back as the numeric id 3.
func FromGroupRows(rows []GroupRow) []scenegroup.Record {
	raw := make([][]string, len(rows))
	for i, r := range rows {
		raw[i] = r.Scenes
	}
	return scenegroup.DecodeRecords(raw)
}

// ToSceneRow converts a scene to its BigQuery shape.
func ToSceneRow(s *model.Scene) SceneRow {
	return SceneRow{
		Id:            s.Id.Key(),
		Index:         int64(s.Index),
		Narration:     s.Narration,
		ImagePrompt:   s.ImagePrompt,
		ImageURL:      s.ImageURL,
		CandidateURLs: append([]string{}, s.CandidateURLs...),
	}
}

// ToProjectRow converts a project to its BigQuery shape.
func ToProjectRow(p *model.Project) *ProjectRow {
	row := &ProjectRow{
		Id:         p.Id,
		Title:      p.Title,
		Topic:      p.Topic,
		Character:  p.Character,
		Stage:      p.Stage,
		Scenes:     make([]SceneRow, 0, len(p.Scenes)),
		SceneGroup: ToGroupRows(p.SceneGroup),
		CreateDate: p.CreateDate,
		UpdateDate: p.UpdateDate,
	}
	if p.LocationCount != nil {
		row.LocationCount = bigquery.NullInt64{Int64: int64(*p.LocationCount), Valid: true}
	}
	for _, s := range p.Scenes {
		if s != nil {
			row.Scenes = append(row.Scenes, ToSceneRow(s))
		}
	}
	return row
}

// ToProject converts a BigQuery row to a project.
func (r *ProjectRow) ToProject() *model.Project {
	p := &model.Project{
		Id:         r.Id,
		Title:      r.Title,
		Topic:      r.Topic,
		Character:  r.Character,
		Stage:      r.Stage,
		Scenes:     make([]*model.Scene, 0, len(r.Scenes)),
		SceneGroup: FromGroupRows(r.SceneGroup),
		CreateDate: r.CreateDate,
		UpdateDate: r.UpdateDate,
	}
	if r.LocationCount.Valid {
		n := int(r.LocationCount.Int64)
		p.LocationCount = &n
	}
	for _, s := range r.Scenes {
		p.Scenes = append(p.Scenes, &model.Scene{
			Id:            scenegroup.NormalizeID(s.Id),
			Index:         int(s.Index),
			Narration:     s.Narration,
			ImagePrompt:   s.ImagePrompt,
			ImageURL:      s.ImageURL,
			CandidateURLs: append([]string{}, s.CandidateURLs...),
		})
	}
	return p
}

// BigQueryProjectStore keeps projects in DatasetName.ProjectTable.
type BigQueryProjectStore struct {
	BigqueryClient *bigquery.Client // Client for interacting with Google BigQuery.
	DatasetName    string           // The BigQuery dataset (e.g. "video_wizard").
	ProjectTable   string           // The table holding project documents.
}

// GetFQN returns the table name in the dotted form standard SQL expects,
// e.g. `gcp-project-id.video_wizard.projects`.
func (s *BigQueryProjectStore) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.ProjectTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

func (s *BigQueryProjectStore) query(queryText string, params map[string]any) *bigquery.Query {
	q := s.BigqueryClient.Query(fmt.Sprintf(queryText, s.GetFQN()))
	for name, value := range params {
		q.Parameters = append(q.Parameters, bigquery.QueryParameter{Name: name, Value: value})
	}
	return q
}

// runDML runs a DML statement and returns the number of affected rows.
func (s *BigQueryProjectStore) runDML(ctx context.Context, queryText string, params map[string]any) (int64, error) {
	job, err := s.query(queryText, params).Run(ctx)
	if err != nil {
		return 0, err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, err
	}
	if err := status.Err(); err != nil {
		return 0, err
	}
	if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return stats.NumDMLAffectedRows, nil
	}
	return 0, nil
}

func (s *BigQueryProjectStore) update(ctx context.Context, id, queryText string, params map[string]any) error {
	params["id"] = id
	n, err := s.runDML(ctx, queryText, params)
	if err != nil {
		return fmt.Errorf("updating project %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return nil
}

func (s *BigQueryProjectStore) Get(ctx context.Context, id string) (*model.Project, error) {
	itr, err := s.query(QryFindProjectById, map[string]any{"id": id}).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", id, err)
	}
	row := &ProjectRow{}
	err = itr.Next(row)
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", id, err)
	}
	return row.ToProject(), nil
}

func (s *BigQueryProjectStore) Create(ctx context.Context, project *model.Project) error {
	row := ToProjectRow(project)
	_, err := s.runDML(ctx, QryInsertProject, map[string]any{
		"id":             row.Id,
		"title":          row.Title,
		"topic":          row.Topic,
		"character":      row.Character,
		"stage":          row.Stage,
		"location_count": row.LocationCount,
		"scenes":         row.Scenes,
		"scene_group":    row.SceneGroup,
		"create_date":    row.CreateDate,
		"update_date":    row.UpdateDate,
	})
	if err != nil {
		return fmt.Errorf("creating project %s: %w", project.Id, err)
	}
	return nil
}

func (s *BigQueryProjectStore) UpdateSceneGroup(ctx context.Context, id string, groups []scenegroup.Record) error {
	return s.update(ctx, id, QryUpdateSceneGroup, map[string]any{"scene_group": ToGroupRows(groups)})
}

func (s *BigQueryProjectStore) UpdateLocationCount(ctx context.Context, id string, count *int) error {
	var n bigquery.NullInt64
	if count != nil {
		n = bigquery.NullInt64{Int64: int64(*count), Valid: true}
	}
	return s.update(ctx, id, QryUpdateLocationCount, map[string]any{"location_count": n})
}

// UpdateScene reads the scene list, swaps the scene in and writes the whole
// list back. Callers serialize writes per project.
func (s *BigQueryProjectStore) UpdateScene(ctx context.Context, id string, scene *model.Scene) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rows := make([]SceneRow, 0, len(p.Scenes))
	found := false
	for _, existing := range p.Scenes {
		if existing.Id.Equal(scene.Id) {
			existing = scene
			found = true
		}
		rows = append(rows, ToSceneRow(existing))
	}
	if !found {
		return fmt.Errorf("%w: %s in project %s", ErrSceneNotFound, scene.Id, id)
	}
	return s.update(ctx, id, QryUpdateScenes, map[string]any{"scenes": rows})
}

func (s *BigQueryProjectStore) List(ctx context.Context, limit int) ([]*model.Project, error) {
	if limit <= 0 {
		limit = 100
	}
	itr, err := s.query(QryListProjects, map[string]any{"limit": limit}).Read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Project, 0)
	for {
		row := &ProjectRow{}
		err := itr.Next(row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, row.ToProject())
	}
	return out, nil
}
