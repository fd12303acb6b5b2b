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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
)

// ToggleRequest is the body of POST /scene-groups/toggle. Ids may be JSON
// numbers or strings.
type ToggleRequest struct {
	A *scenegroup.SceneID `json:"a"`
	B *scenegroup.SceneID `json:"b"`
}

// AutoGroupRequest is the optional body of POST /scene-groups/auto. A null
// or missing location_count makes every scene its own location.
type AutoGroupRequest struct {
	LocationCount *int `json:"location_count"`
}

// ReplaceRequest is the body of PUT /scene-groups. scene_group may be in
// any stored shape; it is normalized before it is saved.
type ReplaceRequest struct {
	SceneGroup json.RawMessage `json:"scene_group"`
}

// SceneGroupRouter registers the grouping routes of a project.
func SceneGroupRouter(r *gin.RouterGroup, groups *services.SceneGroupService) {
	sg := r.Group("/projects/:id/scene-groups")
	{
		sg.GET("", func(c *gin.Context) {
			respondView(c)(groups.Get(c.Request.Context(), c.Param("id")))
		})

		sg.PUT("", func(c *gin.Context) {
			var req ReplaceRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				abortWithError(c, badRequest(err))
				return
			}
			if len(req.SceneGroup) == 0 {
				abortWithError(c, badRequest(errors.New("scene_group is required")))
				return
			}
			respondView(c)(groups.Replace(c.Request.Context(), c.Param("id"), req.SceneGroup))
		})

		sg.POST("/auto", func(c *gin.Context) {
			var req AutoGroupRequest
			if c.Request.ContentLength != 0 {
				if err := c.ShouldBindJSON(&req); err != nil {
					abortWithError(c, badRequest(err))
					return
				}
			}
			respondView(c)(groups.AutoGroup(c.Request.Context(), c.Param("id"), req.LocationCount))
		})

		sg.POST("/toggle", func(c *gin.Context) {
			var req ToggleRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				abortWithError(c, badRequest(err))
				return
			}
			if req.A == nil || req.B == nil {
				abortWithError(c, badRequest(errors.New("a and b are required")))
				return
			}
			respondView(c)(groups.ToggleLink(c.Request.Context(), c.Param("id"), *req.A, *req.B))
		})

		sg.POST("/repair", func(c *gin.Context) {
			respondView(c)(groups.Repair(c.Request.Context(), c.Param("id")))
		})
	}

	r.GET("/projects/:id/scenes/:scene_id/group", func(c *gin.Context) {
		info, err := groups.GroupInfo(c.Request.Context(), c.Param("id"), sceneParam(c))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	})
}

func respondView(c *gin.Context) func(*services.View, error) {
	return func(v *services.View, err error) {
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// sceneParam reads :scene_id. Digits become a numeric id, anything else a
// string id, the same way ids in stored documents are read.
func sceneParam(c *gin.Context) scenegroup.SceneID {
	return scenegroup.NormalizeID(c.Param("scene_id"))
}
