// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/vorlif/spreak"

	"github.com/wneessen/geonamer/internal/config"
	"github.com/wneessen/geonamer/internal/i18n"
	"github.com/wneessen/geonamer/internal/records"
	"github.com/wneessen/geonamer/internal/resolver"
)

var search = records.Search{
	ID:       103,
	FromLat:  41.1171,
	FromLon:  16.8719,
	ToLat:    40.3515,
	ToLon:    18.1750,
	TripDate: time.Now().Add(-3 * time.Hour),
	Modes:    " RAIL,TRAIN ",
}

func testConfLang(t *testing.T, locale string) (*config.Config, *spreak.Localizer) {
	t.Helper()
	conf, err := config.New()
	if err != nil {
		t.Fatalf("failed to load config: %s", err)
	}
	lang, err := i18n.New(locale)
	if err != nil {
		t.Fatalf("failed to create localizer: %s", err)
	}
	return conf, lang
}

func TestNew(t *testing.T) {
	t.Run("creating a new presenter succeeds", func(t *testing.T) {
		conf, lang := testConfLang(t, "en")
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		if pres == nil {
			t.Fatal("expected presenter to be non-nil")
		}
	})
	t.Run("creating presenter with an invalid template fails", func(t *testing.T) {
		conf, lang := testConfLang(t, "en")
		conf.Output.Template = "{{invalid"
		_, err := New(conf, lang)
		if err == nil {
			t.Fatal("expected presenter to fail, but didn't")
		}
		if !strings.Contains(err.Error(), "failed to parse") {
			t.Errorf("expected error to contain %q, got %q", "failed to parse", err)
		}
	})
	t.Run("creating presenter with template execution errors fails", func(t *testing.T) {
		conf, lang := testConfLang(t, "en")
		conf.Output.Template = "{{.Data}}"
		_, err := New(conf, lang)
		if err == nil {
			t.Fatal("expected presenter to fail, but didn't")
		}
		if !strings.Contains(err.Error(), "failed to render") {
			t.Errorf("expected error to contain %q, got %q", "failed to render", err)
		}
	})
}

func TestPresenter_BuildRow(t *testing.T) {
	t.Run("resolved names are used as is", func(t *testing.T) {
		conf, lang := testConfLang(t, "en")
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatal(err)
		}
		names := resolver.Names{Origin: "Bari Centrale", Destination: "40.3515, 18.1750", DestinationFallback: true}
		row := pres.BuildRow(search, names, resolver.Fallback)
		if row.ID != "103" {
			t.Errorf("expected ID 103, got %s", row.ID)
		}
		if row.From != "Bari Centrale" || row.To != "40.3515, 18.1750" || !row.ToFallback {
			t.Errorf("unexpected names in row: %+v", row)
		}
		if row.State != "fallback" {
			t.Errorf("expected state fallback, got %s", row.State)
		}
		if row.Modes != "rail,train" {
			t.Errorf("expected lower-cased modes, got %q", row.Modes)
		}
		if row.Mode != "train" {
			t.Errorf("expected normalized mode train, got %q", row.Mode)
		}
		if row.DistanceKm < 125 || row.DistanceKm > 145 {
			t.Errorf("expected a distance of roughly 135 km, got %f", row.DistanceKm)
		}
	})
	t.Run("missing names show a localized placeholder", func(t *testing.T) {
		conf, lang := testConfLang(t, "it")
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatal(err)
		}
		row := pres.BuildRow(search, resolver.Names{}, resolver.Resolving)
		if row.From != "Risoluzione…" || row.To != "Risoluzione…" {
			t.Errorf("expected italian placeholders, got %q and %q", row.From, row.To)
		}
	})
}

func TestPresenter_Render(t *testing.T) {
	t.Run("rows are rendered with the default template", func(t *testing.T) {
		conf, lang := testConfLang(t, "en")
		conf.Output.Width = 12
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatal(err)
		}
		rows := []Row{
			pres.BuildRow(search, resolver.Names{Origin: "Piazza del Ferrarese, Bari Vecchia", Destination: "Lecce"},
				resolver.Resolved),
		}
		buf := bytes.NewBuffer(nil)
		if err = pres.Render(buf, TitleHistory, rows); err != nil {
			t.Fatalf("failed to render rows: %s", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected title and one row, got %q", buf.String())
		}
		if lines[0] != "Trip history" {
			t.Errorf("expected title %q, got %q", "Trip history", lines[0])
		}
		if !strings.HasPrefix(lines[1], "Piazza del …") {
			t.Errorf("expected a truncated origin, got %q", lines[1])
		}
		if !strings.Contains(lines[1], "Lecce       ") {
			t.Errorf("expected a padded destination, got %q", lines[1])
		}
		if !strings.Contains(lines[1], "km  train  ") || !strings.Contains(lines[1], "3 hours ago") {
			t.Errorf("expected mode and natural time, got %q", lines[1])
		}
	})
	t.Run("an empty list renders a notice", func(t *testing.T) {
		conf, lang := testConfLang(t, "de")
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatal(err)
		}
		buf := bytes.NewBuffer(nil)
		if err = pres.Render(buf, TitleRecent, nil); err != nil {
			t.Fatalf("failed to render rows: %s", err)
		}
		if buf.String() != "Letzte Suchen\nKeine Reisen gefunden\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
	t.Run("custom templates can use the template functions", func(t *testing.T) {
		conf, lang := testConfLang(t, "it")
		conf.Output.Template = `{{loc "from"}}: {{uc .From}} {{loc "to"}}: {{truncate .To 4}} ` +
			`{{timeFormat .TripDate "2006-01-02"}} {{floatFormat .DistanceKm 0}}`
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatal(err)
		}
		row := Row{From: "Bari", To: "Lecce", TripDate: time.Date(2025, 10, 3, 17, 30, 0, 0, time.UTC),
			DistanceKm: 139.4}
		buf := bytes.NewBuffer(nil)
		if err = pres.Render(buf, TitleHistory, []Row{row}); err != nil {
			t.Fatalf("failed to render rows: %s", err)
		}
		want := "Cronologia viaggi\nDa: BARI A: Lec… 2025-10-03 139\n"
		if buf.String() != want {
			t.Errorf("expected %q, got %q", want, buf.String())
		}
	})
}

func TestPresenter_fit(t *testing.T) {
	pres := &Presenter{width: 6}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short values are padded", "Bari", "Bari  "},
		{"long values are truncated", "Alberobello", "Alber…"},
		{"wide runes count double", "東京都庁", "東京… "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := pres.fit(tc.in)
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
			if w := runewidth.StringWidth(got); w != 6 {
				t.Errorf("expected a width of 6 cells, got %d", w)
			}
		})
	}
}
