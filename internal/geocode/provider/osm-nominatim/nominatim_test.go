// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package nominatim

import (
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/wneessen/geonamer/internal/coord"
	"github.com/wneessen/geonamer/internal/geocode"
	"github.com/wneessen/geonamer/internal/http"
	"github.com/wneessen/geonamer/internal/logger"
	"github.com/wneessen/geonamer/internal/testhelper"
)

const (
	cityExpected      = "Piazza del Ferrarese, Bari Vecchia, Municipio 1, Bari, Puglia, 70122, Italia"
	cityShortExpected = "Piazza del Ferrarese, Bari Vecchia"
	cityFile          = "../../../../testdata/nominatim_bari.json"
	cityFileBrokenLat = "../../../../testdata/nominatim_brokenlat.json"
	unableFile        = "../../../../testdata/nominatim_unable.json"

	townExpected = "Alberobello"
	townFile     = "../../../../testdata/nominatim_alberobello.json"
)

var (
	cityCoords = coord.Coordinate{Lat: 41.12799, Lon: 16.87126}
	townCoords = coord.Coordinate{Lat: 40.78365, Lon: 17.23724}
)

func TestNew(t *testing.T) {
	t.Run("creating a new provider succeeds", func(t *testing.T) {
		coder := testCoder(t)
		if coder == nil {
			t.Fatal("expected a non-nil geocoder")
		}
	})
	t.Run("provider name is correct", func(t *testing.T) {
		coder := testCoder(t)
		if coder.Name() != name {
			t.Errorf("expected provider name to be %q, got %q", name, coder.Name())
		}
	})
	t.Run("options are applied", func(t *testing.T) {
		n := New(nil, language.Italian, WithEndpoint("http://localhost:8080/reverse"),
			WithTimeout(time.Second), WithShortNames(true))
		if n.endpoint != "http://localhost:8080/reverse" {
			t.Errorf("expected endpoint to be overridden, got %q", n.endpoint)
		}
		if n.timeout != time.Second {
			t.Errorf("expected timeout to be 1s, got %s", n.timeout)
		}
		if !n.short {
			t.Error("expected short names to be enabled")
		}
	})
	t.Run("empty options keep the defaults", func(t *testing.T) {
		n := New(nil, language.Italian, WithEndpoint(""), WithTimeout(0))
		if n.endpoint != APIReverseEndpoint {
			t.Errorf("expected default endpoint, got %q", n.endpoint)
		}
		if n.timeout != APITimeout {
			t.Errorf("expected default timeout, got %s", n.timeout)
		}
	})
}

func TestNominatim_Reverse(t *testing.T) {
	t.Run("reverse geocoding succeeds", func(t *testing.T) {
		var gotReq *stdhttp.Request
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			gotReq = req
			return fileResponse(t, cityFile), nil
		}

		coder := testCoderWithRoundtripFunc(t, rtFn)
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
		if query.Get("format") != "jsonv2" {
			t.Errorf("expected jsonv2 format, got %q", query.Get("format"))
		}
		if query.Get("lat") != "41.127990" || query.Get("lon") != "16.871260" {
			t.Errorf("unexpected coordinates in query: %s", gotReq.URL.RawQuery)
		}
		if query.Get("accept-language") != "it" {
			t.Errorf("expected accept-language to be %q, got %q", "it", query.Get("accept-language"))
		}
	})
	t.Run("reverse geocoding with short names", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, cityFile), nil
		}

		coder := New(testHTTPClient(rtFn), language.Italian, WithShortNames(true))
		addr, err := coder.Reverse(t.Context(), cityCoords)
		if err != nil {
			t.Fatal(err)
		}
		if addr.DisplayName != cityShortExpected {
			t.Errorf("expected address to be %q, got %q", cityShortExpected, addr.DisplayName)
		}
	})
	t.Run("reverse cached geocoding succeeds", func(t *testing.T) {
		calls := 0
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			calls++
			return fileResponse(t, cityFile), nil
		}

		coder, err := geocode.NewCachedGeocoder(testCoderWithRoundtripFunc(t, rtFn), 16, coord.DefaultPrecision, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err = coder.Reverse(t.Context(), cityCoords); err != nil {
			t.Fatal(err)
		}
		addr, err := coder.Reverse(t.Context(), cityCoords)
		if err != nil {
			t.Fatal(err)
		}
		if !addr.CacheHit {
			t.Error("expected cache hit")
		}
		if calls != 1 {
			t.Errorf("expected 1 API call, got %d", calls)
		}
	})
	t.Run("reverse geocoding with town set should return the correct city", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, townFile), nil
		}

		coder := testCoderWithRoundtripFunc(t, rtFn)
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

		coder := testCoderWithRoundtripFunc(t, rtFn)
		_, err := coder.Reverse(t.Context(), cityCoords)
		if err == nil {
			t.Fatal("expected API request to fail")
		}
	})
	t.Run("reverse geocoding fails on rate limit status", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return &stdhttp.Response{
				StatusCode: 429,
				Body:       stdhttp.NoBody,
				Header:     make(stdhttp.Header),
			}, nil
		}

		coder := testCoderWithRoundtripFunc(t, rtFn)
		_, err := coder.Reverse(t.Context(), cityCoords)
		var statusErr *http.StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected a status error, got %v", err)
		}
	})
	t.Run("unknown places return ErrNoResult", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, unableFile), nil
		}

		coder := testCoderWithRoundtripFunc(t, rtFn)
		_, err := coder.Reverse(t.Context(), coord.Coordinate{Lat: 0.5, Lon: -30.5})
		if !errors.Is(err, geocode.ErrNoResult) {
			t.Errorf("expected ErrNoResult, got %v", err)
		}
	})
	t.Run("reverse geocoding fails on broken latitude response", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, cityFileBrokenLat), nil
		}

		coder := testCoderWithRoundtripFunc(t, rtFn)
		_, err := coder.Reverse(t.Context(), cityCoords)
		if err == nil {
			t.Fatal("expected API request to fail")
		}
		if !strings.Contains(err.Error(), "failed to parse latitude") {
			t.Errorf("expected error to contain 'failed to parse latitude', got %s", err)
		}
	})
}

func TestNominatim_Reverse_integration(t *testing.T) {
	testhelper.PerformIntegrationTests(t)
	t.Run("reverse geocoding succeeds", func(t *testing.T) {
		coder := testCoder(t)
		addr, err := coder.Reverse(t.Context(), cityCoords)
		if err != nil {
			t.Fatal(err)
		}
		if !addr.AddressFound {
			t.Fatal("expected address to be found")
		}
		if !strings.Contains(addr.DisplayName, "Bari") {
			t.Errorf("expected address to contain %q, got %q", "Bari", addr.DisplayName)
		}
	})
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

func testCoder(_ *testing.T) geocode.Geocoder {
	return New(http.New(logger.New(slog.LevelDebug)), language.Italian)
}

func testCoderWithRoundtripFunc(_ *testing.T, fn func(req *stdhttp.Request) (*stdhttp.Response, error)) geocode.Geocoder {
	return New(testHTTPClient(fn), language.Italian)
}
