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
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
)

// MaxUploadBytes bounds a single asset upload.
const MaxUploadBytes = 64 << 20

// AssetRouter registers the scene asset routes.
func AssetRouter(r *gin.RouterGroup, assets *services.AssetService) {
	asset := r.Group("/projects/:id/scenes/:scene_id/asset")
	{
		asset.GET("", func(c *gin.Context) {
			out, err := assets.Resolve(c.Request.Context(), c.Param("id"), sceneParam(c))
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		asset.POST("", func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)
			file, err := c.FormFile("file")
			if err != nil {
				abortWithError(c, badRequest(fmt.Errorf("form file \"file\": %w", err)))
				return
			}
			f, err := file.Open()
			if err != nil {
				abortWithError(c, badRequest(err))
				return
			}
			defer f.Close()
			content, err := io.ReadAll(f)
			if err != nil {
				abortWithError(c, badRequest(err))
				return
			}
			if len(content) == 0 {
				abortWithError(c, badRequest(errors.New("file is empty")))
				return
			}

			scene, err := assets.Upload(c.Request.Context(), c.Param("id"), sceneParam(c), file.Filename, content)
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusCreated, scene)
		})
	}
}
