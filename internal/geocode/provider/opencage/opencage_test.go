// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package opencage

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"os"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/wneessen/geonamer/internal/coord"
	"github.com/wneessen/geonamer/internal/geocode"
	"github.com/wneessen/geonamer/internal/http"
	"github.com/wneessen/geonamer/internal/logger"
	"github.com/wneessen/geonamer/internal/testhelper"
)

const (
	cityExpected      = "Piazza del Ferrarese, 70122 Bari BA, Italia"
	cityShortExpected = "Piazza del Ferrarese, 70122 Bari BA"
	cityFile          = "../../../../testdata/opencage_bari.json"
	emptyFile         = "../../../../testdata/opencage_empty.json"

	townExpected = "Alberobello"
	townFile     = "../../../../testdata/opencage_alberobello.json"
)

var (
	cityCoords = coord.Coordinate{Lat: 41.12799, Lon: 16.87126}
	townCoords = coord.Coordinate{Lat: 40.78365, Lon: 17.23724}
)

func TestNew(t *testing.T) {
	t.Run("provider name is correct", func(t *testing.T) {
		coder := New(nil, language.Italian, "abc")
		if coder.Name() != name {
			t.Errorf("expected provider name to be %q, got %q", name, coder.Name())
		}
	})
	t.Run("options are applied", func(t *testing.T) {
		coder := New(nil, language.Italian, "abc", WithEndpoint("http://localhost:8080/json"),
			WithTimeout(0), WithShortNames(true))
		if coder.endpoint != "http://localhost:8080/json" {
			t.Errorf("expected endpoint to be overridden, got %q", coder.endpoint)
		}
		if coder.timeout != APITimeout {
			t.Errorf("expected default timeout, got %s", coder.timeout)
		}
		if !coder.short {
			t.Error("expected short names to be enabled")
		}
	})
}

func TestOpenCage_Reverse(t *testing.T) {
	t.Run("reverse geocoding succeeds", func(t *testing.T) {
		var gotReq *stdhttp.Request
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			gotReq = req
			return fileResponse(t, cityFile), nil
		}

		coder := New(testHTTPClient(rtFn), language.Italian, "abc")
		addr, err := coder.Reverse(t.Context(), cityCoords)
		if err != nil {
			t.Fatal(err)
		}
		if !addr.AddressFound {
			t.Fatal("expected address to be found")
		}
		if !strings.EqualFold(addr.DisplayName, cityExpected) {
			t.Errorf("expected address to be %q, got %q", cityExpected, addr.DisplayName)
		}
		if addr.City != "Bari" {
			t.Errorf("expected city to be %q, got %q", "Bari", addr.City)
		}
		query := gotReq.URL.Query()
		if query.Get("key") != "abc" || query.Get("language") != "it" {
			t.Errorf("unexpected query: %s", gotReq.URL.RawQuery)
		}
		if query.Get("q") != "41.127990,16.871260" {
			t.Errorf("unexpected coordinates in query: %s", query.Get("q"))
		}
	})
	t.Run("reverse geocoding with short names", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, cityFile), nil
		}

		coder := New(testHTTPClient(rtFn), language.Italian, "abc", WithShortNames(true))
		addr, err := coder.Reverse(t.Context(), cityCoords)
		if err != nil {
			t.Fatal(err)
		}
		if addr.DisplayName != cityShortExpected {
			t.Errorf("expected address to be %q, got %q", cityShortExpected, addr.DisplayName)
		}
	})
	t.Run("reverse geocoding with town set should return the correct city", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, townFile), nil
		}

		coder := New(testHTTPClient(rtFn), language.Italian, "abc")
		addr, err := coder.Reverse(t.Context(), townCoords)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.EqualFold(addr.City, townExpected) {
			t.Errorf("expected city to be %q, got %q", townExpected, addr.City)
		}
	})
	t.Run("reverse geocoding fails", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return nil, errors.New("intentionally failing")
		}

		coder := New(testHTTPClient(rtFn), language.Italian, "abc")
		if _, err := coder.Reverse(t.Context(), cityCoords); err == nil {
			t.Fatal("expected API request to fail")
		}
	})
	t.Run("no results return ErrNoResult", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, emptyFile), nil
		}

		coder := New(testHTTPClient(rtFn), language.Italian, "abc")
		_, err := coder.Reverse(t.Context(), coord.Coordinate{Lat: 0.5, Lon: -30.5})
		if !errors.Is(err, geocode.ErrNoResult) {
			t.Errorf("expected ErrNoResult, got %v", err)
		}
	})
	t.Run("API responding with more than one result should fail", func(t *testing.T) {
		response := Response{TotalResults: 2, Results: []Result{{}, {}}}
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			buf := bytes.NewBuffer(nil)
			if err := json.NewEncoder(buf).Encode(response); err != nil {
				return nil, err
			}
			return &stdhttp.Response{
				StatusCode: 200,
				Body:       io.NopCloser(buf),
				Header:     make(stdhttp.Header),
			}, nil
		}

		coder := New(testHTTPClient(rtFn), language.Italian, "abc")
		_, err := coder.Reverse(t.Context(), cityCoords)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		wantErr := "ambiguous amount of results returned for coordinates"
		if !strings.Contains(err.Error(), wantErr) {
			t.Errorf("expected error to contain %q, got %q", wantErr, err)
		}
	})
}

func TestOpenCage_Reverse_integration(t *testing.T) {
	testhelper.PerformIntegrationTests(t)
	apikey := os.Getenv("OPENCAGE_APIKEY")
	if apikey == "" {
		t.Skip("no opencage API key set, skipping tests")
	}
	coder := New(http.New(logger.New(slog.LevelDebug)), language.Italian, apikey)
	addr, err := coder.Reverse(t.Context(), cityCoords)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(addr.DisplayName, "Bari") {
		t.Errorf("expected address to contain %q, got %q", "Bari", addr.DisplayName)
	}
}

func fileResponse(t *testing.T, file string) *stdhttp.Response {
	t.Helper()
	data, err := os.Open(file)
	if err != nil {
		t.Fatalf("failed to open JSON response file: %s", err)
	}
	return &stdhttp.Response{
		StatusCode: 200,
		Body:       data,
		Header:     make(stdhttp.Header),
	}
}

func testHTTPClient(fn func(req *stdhttp.Request) (*stdhttp.Response, error)) *http.Client {
	client := http.New(logger.New(slog.LevelDebug))
	client.Transport = testhelper.MockRoundTripper{Fn: fn}
	return client
}
