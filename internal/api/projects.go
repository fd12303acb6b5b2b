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

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxSceneCount    = 500
)

// CreateProjectRequest is the body of POST /projects.
type CreateProjectRequest struct {
	Title         string `json:"title" binding:"required"`
	Topic         string `json:"topic"`
	Character     string `json:"character"`
	SceneCount    int    `json:"scene_count" binding:"min=0"`
	LocationCount *int   `json:"location_count"`
}

// ProjectRouter registers the project document routes.
func ProjectRouter(r *gin.RouterGroup, store services.ProjectStore, groups *services.SceneGroupService) {
	projects := r.Group("/projects")
	{
		projects.GET("", func(c *gin.Context) {
			limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
			if err != nil || limit <= 0 {
				abortWithError(c, badRequest(fmt.Errorf("limit must be a positive integer")))
				return
			}
			out, err := store.List(c.Request.Context(), min(limit, maxListLimit))
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		projects.POST("", func(c *gin.Context) {
			var req CreateProjectRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				abortWithError(c, badRequest(err))
				return
			}
			if req.SceneCount > maxSceneCount {
				abortWithError(c, badRequest(fmt.Errorf("scene_count must be at most %d", maxSceneCount)))
				return
			}

			p := model.NewProject(req.Title, req.SceneCount)
			p.Topic = req.Topic
			p.Character = req.Character
			if err := store.Create(c.Request.Context(), p); err != nil {
				abortWithError(c, err)
				return
			}
			if req.LocationCount != nil {
				if _, err := groups.AutoGroup(c.Request.Context(), p.Id, req.LocationCount); err != nil {
					abortWithError(c, err)
					return
				}
			}
			out, err := store.Get(c.Request.Context(), p.Id)
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusCreated, out)
		})

		projects.GET("/:id", func(c *gin.Context) {
			out, err := store.Get(c.Request.Context(), c.Param("id"))
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, out)
		})
	}
}
