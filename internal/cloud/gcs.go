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

// Package cloud. This file holds the Google Cloud Storage adapters: parsing
// object URIs, writing objects and signing download URLs.
package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
)

// Hosts that serve authenticated GCS objects over https.
var gcsHTTPPrefixes = []string{
	"https://storage.googleapis.com/",
	"https://storage.cloud.google.com/",
	"https://storage.mtls.cloud.google.com/",
}

// GCSObject identifies an object in a bucket.
type GCSObject struct {
	Bucket   string // The name of the GCS bucket.
	Name     string // The name of the object.
	MIMEType string // The MIME type of the object, when known.
}

// URI returns the gs:// form of the object.
func (o *GCSObject) URI() string {
	return fmt.Sprintf("gs://%s/%s", o.Bucket, o.Name)
}

// ParseGCSURI splits a gs:// or https storage URL into bucket and object.
//
// Inputs:
//   - uri: e.g. "gs://bucket/a/b.png" or
//     "https://storage.mtls.cloud.google.com/bucket/a/b.png".
//
// Outputs:
//   - *GCSObject: The bucket and object name.
//   - error: If the URI is not a storage URL or lacks an object name.
func ParseGCSURI(uri string) (*GCSObject, error) {
	var path string
	switch {
	case strings.HasPrefix(uri, "gs://"):
		path = strings.TrimPrefix(uri, "gs://")
	default:
		for _, prefix := range gcsHTTPPrefixes {
			if strings.HasPrefix(uri, prefix) {
				path = strings.TrimPrefix(uri, prefix)
				break
			}
		}
	}
	if path == "" {
		return nil, fmt.Errorf("invalid GCS URI format: %s", uri)
	}
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid GCS URI: unable to determine bucket and object from %s", uri)
	}
	return &GCSObject{Bucket: parts[0], Name: parts[1]}, nil
}

// ObjectWriter stores a blob and returns its gs:// URI.
type ObjectWriter interface {
	WriteObject(ctx context.Context, obj *GCSObject, data []byte) (string, error)
}

// ObjectDeleter removes a stored blob.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, obj *GCSObject) error
}

// URLSigner creates time limited GET URLs for stored objects.
type URLSigner interface {
	SignedURL(ctx context.Context, obj *GCSObject, expires time.Duration) (string, error)
}

// GCSObjectStore implements ObjectWriter, ObjectDeleter and URLSigner on
// Cloud Storage.
// When SignerEmail is set, URLs are signed through the IAM Credentials
// SignBlob API so no private key has to be present locally.
type GCSObjectStore struct {
	Client      *storage.Client
	IAMClient   *credentials.IamCredentialsClient
	SignerEmail string
}

// WriteObject uploads data, guessing the content type when obj has none.
func (s *GCSObjectStore) WriteObject(ctx context.Context, obj *GCSObject, data []byte) (string, error) {
	w := s.Client.Bucket(obj.Bucket).Object(obj.Name).NewWriter(ctx)
	w.ContentType = obj.MIMEType
	if w.ContentType == "" {
		w.ContentType = http.DetectContentType(data)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("writing %s: %w", obj.URI(), err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", obj.URI(), err)
	}
	return obj.URI(), nil
}

// DeleteObject removes obj. A missing object is not an error.
func (s *GCSObjectStore) DeleteObject(ctx context.Context, obj *GCSObject) error {
	err := s.Client.Bucket(obj.Bucket).Object(obj.Name).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("deleting %s: %w", obj.URI(), err)
	}
	return nil
}

// SignedURL returns a V4 signed GET URL valid for expires.
func (s *GCSObjectStore) SignedURL(ctx context.Context, obj *GCSObject, expires time.Duration) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(expires),
	}
	if s.SignerEmail != "" && s.IAMClient != nil {
		opts.GoogleAccessID = s.SignerEmail
		opts.SignBytes = func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		}
	}
	u, err := s.Client.Bucket(obj.Bucket).SignedURL(obj.Name, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", obj.Bucket, obj.Name, err)
	}
	return u, nil
}
