// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vorlif/spreak"
	"github.com/vorlif/spreak/localize"

	"github.com/wneessen/geonamer/internal/config"
	"github.com/wneessen/geonamer/internal/geocode"
	"github.com/wneessen/geonamer/internal/http"
	"github.com/wneessen/geonamer/internal/logger"
	"github.com/wneessen/geonamer/internal/observability"
	"github.com/wneessen/geonamer/internal/presenter"
	"github.com/wneessen/geonamer/internal/records"
	"github.com/wneessen/geonamer/internal/resolver"
)

const (
	RefreshJobName   = "records_refresh_job"
	subscriberBuffer = 32

	msgUnknownLocation localize.MsgID = "Unknown location"
)

type Service struct {
	config    *config.Config
	logger    *logger.Logger
	t         *spreak.Localizer
	clock     clockwork.Clock
	output    io.Writer
	scheduler gocron.Scheduler
	signals   signalSource

	geocoder  geocode.Geocoder
	source    records.Source
	presenter *presenter.Presenter
	registry  *prometheus.Registry
	metrics   *observability.Metrics

	refreshLock sync.Mutex
	resolver    *resolver.Resolver
}

func New(conf *config.Config, log *logger.Logger, t *spreak.Localizer) (*Service, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	httpClient := http.New(log)

	geocoder, err := selectGeocodeProvider(conf, httpClient, t.Language(), metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoder: %w", err)
	}
	source, err := records.NewSource(httpClient, conf.Records.File, conf.Records.Endpoint, conf.Records.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create records source: %w", err)
	}
	pres, err := presenter.New(conf, t)
	if err != nil {
		return nil, fmt.Errorf("failed to create presenter: %w", err)
	}

	service := &Service{
		config:    conf,
		logger:    log,
		t:         t,
		clock:     clockwork.NewRealClock(),
		output:    os.Stdout,
		scheduler: scheduler,
		signals:   stdLibSignalSource{},
		geocoder:  geocoder,
		source:    source,
		presenter: pres,
		registry:  registry,
		metrics:   metrics,
	}
	return service, nil
}

// Run resolves and prints the configured records. With a refresh interval set, the records
// are reloaded periodically and on SIGUSR1 until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.resolver = resolver.New(ctx, s.geocoder, s.logger, resolver.Options{
		BatchSize:    s.config.Resolver.BatchSize,
		InitialBatch: s.config.Resolver.InitialBatch,
		UnknownLabel: s.t.Get(msgUnknownLocation),
		Metrics:      s.metrics,
		Clock:        s.clock,
	})
	defer s.resolver.Close()

	updates, unsub := s.resolver.Store().Subscribe(subscriberBuffer)
	defer unsub()
	go s.processStoreUpdates(ctx, updates)

	if s.config.Metrics.Listen != "" {
		stop := s.startMetricsServer()
		defer stop()
	}

	if s.config.Records.RefreshInterval <= 0 {
		return s.refresh(ctx)
	}

	s.refreshJob(ctx)
	if err := s.createScheduledJob(ctx, s.config.Records.RefreshInterval, s.refreshJob,
		RefreshJobName); err != nil {
		return err
	}
	s.scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	s.signals.Notify(sigChan, syscall.SIGUSR1)
	defer s.signals.Stop(sigChan)
	go s.HandleRefreshSignal(ctx, sigChan)

	// Wait for the context to cancel
	<-ctx.Done()
	return s.scheduler.Shutdown()
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

func (s *Service) refreshJob(ctx context.Context) {
	if err := s.refresh(ctx); err != nil {
		s.logger.Error("failed to refresh records", logger.Err(err))
	}
}

// refresh loads the records, resolves them page by page the way a scrolling list reports
// its visible rows, and prints the result.
func (s *Service) refresh(ctx context.Context) error {
	s.refreshLock.Lock()
	defer s.refreshLock.Unlock()

	searches, err := s.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load records from %s source: %w", s.source.Name(), err)
	}
	list, title := s.selectSearches(searches)
	s.logger.Debug("records selected", slog.Int("loaded", len(searches)), slog.Int("selected", len(list)),
		slog.String("source", s.source.Name()))

	s.resolver.LoadRecords(records.ToRecords(list))
	if err = s.resolveVisible(ctx, list); err != nil {
		return err
	}

	rows := make([]presenter.Row, 0, len(list))
	for _, search := range list {
		names, state := s.resolver.Display(search.Key())
		if !records.MatchesQuery(s.config.Records.Query, search, names.Origin, names.Destination) {
			continue
		}
		rows = append(rows, s.presenter.BuildRow(search, names, state))
	}
	if err = s.presenter.Render(s.output, title, rows); err != nil {
		return fmt.Errorf("failed to print records: %w", err)
	}
	return nil
}

// resolveVisible reports one page after the other as visible and waits for each to drain.
// A final pass over all records grants fallbacks their retry.
func (s *Service) resolveVisible(ctx context.Context, list []records.Search) error {
	pageSize := s.config.Output.PageSize
	ids := make([]string, len(list))
	for i, search := range list {
		ids[i] = search.Key()
	}

	for start := 0; start < len(ids); start += pageSize {
		end := min(start+pageSize, len(ids))
		s.resolver.ReportVisible(ids[start:end]...)
		if err := s.resolver.Wait(ctx); err != nil {
			return fmt.Errorf("failed to resolve page %d: %w", start/pageSize+1, err)
		}
	}
	if retries := s.resolver.ReportVisible(ids...); retries > 0 {
		s.logger.Debug("retrying fallback names", slog.Int("records", retries))
		if err := s.resolver.Wait(ctx); err != nil {
			return fmt.Errorf("failed to retry fallback names: %w", err)
		}
	}
	return nil
}

func (s *Service) selectSearches(searches []records.Search) ([]records.Search, localize.MsgID) {
	if s.config.Output.RecentOnly {
		return records.Recent(s.config.Records.Recent, searches), presenter.TitleRecent
	}

	list := records.Valid(searches)
	list = records.Within(s.clock, s.config.Records.Window, list)
	list = records.WithMode(s.config.Records.Mode, list)
	mode, err := records.ParseSortMode(s.config.Records.Sort)
	if err != nil {
		s.logger.Warn("unsupported sort mode, using most recent first", logger.Err(err))
	}
	records.Sort(mode, list)
	return list, presenter.TitleHistory
}

// processStoreUpdates logs every batch merged into the resolved-name store.
func (s *Service) processStoreUpdates(ctx context.Context, updates <-chan resolver.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.logger.Debug("resolved names merged", slog.Int("records", len(update.IDs)),
				slog.Int("stored", s.resolver.Store().Len()))
		}
	}
}
