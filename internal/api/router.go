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
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Dependencies are the services the routes call.
type Dependencies struct {
	Store  services.ProjectStore
	Groups *services.SceneGroupService
	Assets *services.AssetService
}

// NewRouter builds the gin engine with tracing, CORS and every route under
// /api/v1.
func NewRouter(serviceName string, deps *Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		ProjectRouter(apiV1, deps.Store, deps.Groups)
		SceneGroupRouter(apiV1, deps.Groups)
		AssetRouter(apiV1, deps.Assets)
		Dashboard(apiV1, deps.Groups)
	}
	return r
}
