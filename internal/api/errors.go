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

// Package api defines the HTTP routes of the scene group service. Handlers
// are thin: they bind the request, call a service and map its errors onto
// a small JSON error envelope.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/services"
)

// Error codes carried in the error envelope.
const (
	CodeBadRequest       = "bad_request"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeUnsupportedMedia = "unsupported_media"
	CodeInternal         = "internal"
)

// ErrorBody is the payload of every failed request:
//
//	{"error": {"message": "...", "code": "not_found"}}
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// requestError marks an error caused by the client's input.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{err: err}
}

// StatusFor maps an error to its HTTP status and envelope code.
func StatusFor(err error) (int, string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, services.ErrProjectNotFound), errors.Is(err, services.ErrSceneNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, services.ErrConcurrentUpdate):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, services.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType, CodeUnsupportedMedia
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// abortWithError writes the envelope for err. Internal errors are logged and
// their text is not sent to the client.
func abortWithError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		message = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, errorEnvelope{Error: ErrorBody{Message: message, Code: code}})
}
