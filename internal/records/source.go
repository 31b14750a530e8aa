// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/wneessen/geonamer/internal/http"
)

const APITimeout = time.Second * 15

var ErrNoSource = errors.New("no records source configured")

// Source provides the list of searches to display.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]Search, error)
}

// FileSource reads searches from a JSON file holding the backend list response.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Load(context.Context) ([]Search, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open records file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	var searches []Search
	if err = json.NewDecoder(file).Decode(&searches); err != nil {
		return nil, fmt.Errorf("failed to decode records file: %w", err)
	}
	return searches, nil
}

// APISource fetches searches from the backend search list endpoint.
type APISource struct {
	http     *http.Client
	endpoint string
	token    string
}

func NewAPISource(client *http.Client, endpoint, token string) *APISource {
	return &APISource{http: client, endpoint: endpoint, token: token}
}

func (a *APISource) Name() string {
	return "api"
}

func (a *APISource) Load(ctx context.Context) ([]Search, error) {
	var headers map[string]string
	if a.token != "" {
		headers = map[string]string{"Authorization": "Bearer " + a.token}
	}

	var searches []Search
	if _, err := a.http.GetWithTimeout(ctx, a.endpoint, &searches, nil, headers, APITimeout); err != nil {
		return nil, fmt.Errorf("failed to fetch searches from API: %w", err)
	}
	return searches, nil
}

// NewSource picks the records source. A file takes precedence over the API endpoint.
func NewSource(client *http.Client, file, endpoint, token string) (Source, error) {
	switch {
	case file != "":
		return NewFileSource(file), nil
	case endpoint != "":
		return NewAPISource(client, endpoint, token), nil
	default:
		return nil, ErrNoSource
	}
}
