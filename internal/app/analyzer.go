package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/loginsight/internal/adapters/analytics"
	"github.com/xoelrdgz/loginsight/internal/adapters/detection"
	"github.com/xoelrdgz/loginsight/internal/domain"
	"github.com/xoelrdgz/loginsight/internal/ports"
)

type AnalyzerConfig struct {
	Source        string // Name reported in the summary
	MaxRecords    int64  // Stop after this many records, 0 for no limit
	TopHosts      int    // Rows in the hosts report (default: 10)
	TopResources  int    // Rows in the resources report (default: 10)
	ProgressEvery int64  // Records between progress reports (default: 10000)
}

func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		TopHosts:      10,
		TopResources:  10,
		ProgressEvery: 10000,
	}
}

// Analyzer drives one pass over a record stream. Records are consumed in
// input order by a single goroutine that owns the blocker, the busy window
// tracker and the frequency counter.
type Analyzer struct {
	cfg    AnalyzerConfig
	runID  string
	reader ports.RecordReader

	blocker *detection.LoginBlocker
	tracker *analytics.BusyWindowTracker
	counter *analytics.FrequencyCounter
	blocked ports.BlockedSink

	stats *domain.RunStats

	processing []ports.ProcessingObserver
	progress   []ports.ProgressObserver
	rejects    []ports.RejectObserver
}

// NewAnalyzer wires a pass together. The analyzer takes ownership of blocked
// and closes it when Run returns; blocked may be nil.
func NewAnalyzer(
	reader ports.RecordReader,
	blocker *detection.LoginBlocker,
	tracker *analytics.BusyWindowTracker,
	counter *analytics.FrequencyCounter,
	blocked ports.BlockedSink,
	cfg AnalyzerConfig,
) *Analyzer {
	def := DefaultAnalyzerConfig()
	if cfg.TopHosts <= 0 {
		cfg.TopHosts = def.TopHosts
	}
	if cfg.TopResources <= 0 {
		cfg.TopResources = def.TopResources
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = def.ProgressEvery
	}
	if cfg.MaxRecords < 0 {
		cfg.MaxRecords = 0
	}

	a := &Analyzer{
		cfg:     cfg,
		runID:   domain.NewID(),
		reader:  reader,
		blocker: blocker,
		tracker: tracker,
		counter: counter,
		blocked: blocked,
		stats:   domain.NewRunStats(),
	}

	blocker.AddObserver(a)
	if r, ok := reader.(interface{ AddRejectObserver(ports.RejectObserver) }); ok {
		r.AddRejectObserver(a)
	}
	return a
}

func (a *Analyzer) AddProcessingObserver(o ports.ProcessingObserver) {
	a.processing = append(a.processing, o)
}

func (a *Analyzer) AddProgressObserver(o ports.ProgressObserver) {
	a.progress = append(a.progress, o)
}

// AddRejectObserver registers o for lines the parser refused. Register
// observers before Run; they are called from the reader goroutine.
func (a *Analyzer) AddRejectObserver(o ports.RejectObserver) {
	a.rejects = append(a.rejects, o)
}

func (a *Analyzer) AddBlockObserver(o ports.BlockObserver) {
	a.blocker.AddObserver(o)
}

// OnBlock implements ports.BlockObserver.
func (a *Analyzer) OnBlock(event *domain.BlockEvent) {
	a.stats.IncrementBlocks()
}

// OnReject implements ports.RejectObserver.
func (a *Analyzer) OnReject(line string, err error) {
	a.stats.IncrementLines()
	a.stats.IncrementRejected()
	for _, o := range a.rejects {
		o.OnReject(line, err)
	}
}

// Run consumes the whole input and returns the finalized summary.
//
// Returns:
//   - Summary once the input is exhausted or the record limit is reached
//   - Error if the input cannot be read, the blocked report cannot be
//     written, or ctx is cancelled before the input is exhausted
func (a *Analyzer) Run(ctx context.Context) (*domain.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := log.With().Str("run_id", a.runID).Str("source", a.cfg.Source).Logger()
	logger.Info().Int64("max_records", a.cfg.MaxRecords).Msg("Analysis started")

	records, errs := a.reader.Start(ctx)
	a.stats.SetPhase(domain.PhaseRunning)

	err := a.consume(ctx, records, errs)
	if stopErr := a.reader.Stop(); stopErr != nil {
		logger.Debug().Err(stopErr).Msg("Error stopping reader")
	}
	if closeErr := a.closeBlocked(); err == nil && closeErr != nil {
		err = fmt.Errorf("close blocked report: %w", closeErr)
	}
	if err != nil {
		a.stats.Finish(domain.PhaseFailed)
		logger.Error().Err(err).Int64("records", a.stats.Records()).Msg("Analysis failed")
		return nil, err
	}

	a.stats.SetPhase(domain.PhaseFinalizing)
	summary := a.finalize()
	a.stats.Finish(domain.PhaseDone)
	summary.Stats = a.stats.Snapshot()

	logger.Info().
		Int64("records", summary.Stats.Records).
		Int64("blocked", summary.Stats.Blocked).
		Int64("rejected", summary.Stats.Rejected).
		Int64("blocks", summary.Stats.BlocksScheduled).
		Dur("elapsed", summary.Stats.Elapsed).
		Msg("Analysis complete")

	return summary, nil
}

func (a *Analyzer) consume(ctx context.Context, records <-chan *domain.LogRecord, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("analysis interrupted: %w", ctx.Err())
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			return fmt.Errorf("read input: %w", err)
		case rec, ok := <-records:
			if !ok {
				if errs != nil {
					if err, ok := <-errs; ok && err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				}
				// A cancelled reader closes its channels too.
				if ctx.Err() != nil {
					return fmt.Errorf("analysis interrupted: %w", ctx.Err())
				}
				return nil
			}
			if err := a.process(rec); err != nil {
				return err
			}
			if a.cfg.MaxRecords > 0 && a.stats.Records() >= a.cfg.MaxRecords {
				log.Info().Int64("max_records", a.cfg.MaxRecords).Msg("Record limit reached")
				return nil
			}
		}
	}
}

func (a *Analyzer) process(rec *domain.LogRecord) error {
	a.stats.IncrementLines()
	a.stats.IncrementRecords()

	decision := a.blocker.Process(rec)
	if decision == domain.DecisionBlocked {
		a.stats.IncrementBlocked()
		if a.blocked != nil {
			if err := a.blocked.Record(rec); err != nil {
				return fmt.Errorf("write blocked record: %w", err)
			}
		}
	}

	// Blocked records still count as traffic.
	a.counter.Add(rec)
	a.tracker.RecordVisit(rec)

	for _, o := range a.processing {
		o.ObserveRecord(rec, decision)
	}

	if a.stats.Records()%a.cfg.ProgressEvery == 0 {
		a.reportProgress()
	}
	return nil
}

func (a *Analyzer) finalize() *domain.Summary {
	top := a.tracker.Finalize()
	a.reportProgress()

	if n := a.tracker.Overflows(); n > 0 {
		log.Warn().Int64("visits", n).Msg("Visits fell outside the dense counter; first window may be undercounted")
	}
	if n := a.tracker.OutOfOrder(); n > 0 {
		log.Warn().Int64("records", n).Msg("Input was not in time order; busy windows are approximate")
	}

	return &domain.Summary{
		RunID:        a.runID,
		Source:       a.cfg.Source,
		BusyWindows:  top.Entries(),
		TopHosts:     a.counter.TopHosts(a.cfg.TopHosts),
		TopResources: a.counter.TopResources(a.cfg.TopResources),
	}
}

func (a *Analyzer) reportProgress() {
	if len(a.progress) == 0 {
		return
	}
	p := domain.Progress{
		TrackedSources:  a.blocker.TrackedSources(),
		BlockedSources:  a.blocker.BlockedSources(),
		TimelineEntries: a.tracker.TimelineLen(),
		DenseOverflows:  a.tracker.Overflows(),
	}
	for _, o := range a.progress {
		o.ObserveProgress(p)
	}
}

func (a *Analyzer) closeBlocked() error {
	if a.blocked == nil {
		return nil
	}
	return a.blocked.Close()
}

func (a *Analyzer) RunID() string {
	return a.runID
}

// Stats exposes the live counters, e.g. for a readiness probe.
func (a *Analyzer) Stats() *domain.RunStats {
	return a.stats
}
