// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/de"
	"github.com/vorlif/humanize/locale/it"
	"github.com/vorlif/spreak"
	"github.com/vorlif/spreak/localize"

	"github.com/wneessen/geonamer/internal/config"
	"github.com/wneessen/geonamer/internal/records"
	"github.com/wneessen/geonamer/internal/resolver"
)

const (
	TitleHistory localize.MsgID = "Trip history"
	TitleRecent  localize.MsgID = "Recent searches"

	msgResolving localize.MsgID = "Resolving…"
	msgNoTrips   localize.MsgID = "No trips found"
)

// Row is the template context of a single record.
type Row struct {
	ID           string
	From         string
	To           string
	FromFallback bool
	ToFallback   bool
	State        string
	Modes        string
	Mode         string
	TripDate     time.Time
	DistanceKm   float64
}

type Presenter struct {
	localizer *spreak.Localizer
	humanizer *humanize.Humanizer
	row       *template.Template
	width     int
}

func New(conf *config.Config, loc *spreak.Localizer) (*Presenter, error) {
	collection, err := humanize.New(humanize.WithLocale(de.New(), it.New()))
	if err != nil {
		return nil, fmt.Errorf("failed to create humanizer: %w", err)
	}

	pres := &Presenter{
		localizer: loc,
		humanizer: collection.CreateHumanizer(loc.Language()),
		width:     conf.Output.Width,
	}
	tpl, err := template.New("row").Funcs(pres.templateFuncMap()).Parse(conf.Output.Template)
	if err != nil {
		return nil, fmt.Errorf("failed to parse row template: %w", err)
	}
	if err = tpl.Execute(io.Discard, Row{}); err != nil {
		return nil, fmt.Errorf("failed to render row template: %w", err)
	}
	pres.row = tpl

	return pres, nil
}

// BuildRow combines a search with its current names. Sides without a name yet show a
// localized placeholder.
func (p *Presenter) BuildRow(search records.Search, names resolver.Names, state resolver.State) Row {
	row := Row{
		ID:           search.Key(),
		From:         names.Origin,
		To:           names.Destination,
		FromFallback: names.OriginFallback,
		ToFallback:   names.DestinationFallback,
		State:        state.String(),
		Modes:        strings.ToLower(strings.TrimSpace(search.Modes)),
		Mode:         string(records.NormalizeMode(search.Modes)),
		TripDate:     search.TripDate,
		DistanceKm:   search.Distance() / 1000,
	}
	if row.From == "" {
		row.From = p.localizer.Get(msgResolving)
	}
	if row.To == "" {
		row.To = p.localizer.Get(msgResolving)
	}
	return row
}

// Render writes the localized title followed by one line per row.
func (p *Presenter) Render(w io.Writer, title localize.MsgID, rows []Row) error {
	if _, err := fmt.Fprintln(w, p.localizer.Get(title)); err != nil {
		return fmt.Errorf("failed to write title: %w", err)
	}
	if len(rows) == 0 {
		if _, err := fmt.Fprintln(w, p.localizer.Get(msgNoTrips)); err != nil {
			return fmt.Errorf("failed to write empty notice: %w", err)
		}
		return nil
	}
	for _, row := range rows {
		if err := p.row.Execute(w, row); err != nil {
			return fmt.Errorf("failed to render row %s: %w", row.ID, err)
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return fmt.Errorf("failed to write row %s: %w", row.ID, err)
		}
	}
	return nil
}
