package cli

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/blockgraph/internal/blocks"
	"github.com/roach88/blockgraph/internal/blueprint"
	"github.com/roach88/blockgraph/internal/graph"
	"github.com/roach88/blockgraph/internal/journal"
)

// session is a graph built from a blueprint for the lifetime of one command,
// with its optional journal.
type session struct {
	graph      *graph.Graph
	blueprint  *blueprint.Blueprint
	journal    *journal.Journal
	deliveries *deliveryLog
	logger     *slog.Logger
}

type sessionConfig struct {
	ids graph.IDGenerator
}

type sessionOption func(*sessionConfig)

func withIDs(gen graph.IDGenerator) sessionOption {
	return func(c *sessionConfig) { c.ids = gen }
}

// newLogger returns a text logger on w, at debug level when verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openSession loads and builds the blueprint at path. The graph is not
// committed. Callers must close the session.
func openSession(ctx context.Context, opts *RootOptions, path string, logger *slog.Logger, sopts ...sessionOption) (*session, error) {
	var cfg sessionConfig
	for _, o := range sopts {
		o(&cfg)
	}

	bp, err := blueprint.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load blueprint", err)
	}
	logger.Debug("blueprint loaded", "path", path, "name", bp.Name, "blocks", len(bp.Blocks), "edges", len(bp.Edges))

	s := &session{blueprint: bp, deliveries: &deliveryLog{}, logger: logger}
	observers := graph.Observers{s.deliveries}
	if opts.Journal != "" {
		s.journal, err = journal.Open(opts.Journal, journal.WithLogger(logger))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		observers = append(observers, s.journal)
	}

	g, err := blueprint.Build(ctx, bp, blocks.DefaultRegistry(),
		graph.WithLogger(logger),
		graph.WithMaxPasses(opts.MaxPasses),
		graph.WithIDGenerator(cfg.ids),
		graph.WithObserver(observers),
	)
	if err != nil {
		s.close()
		return nil, WrapExitError(ExitCommandError, "failed to build blueprint", err)
	}
	s.graph = g
	return s, nil
}

func (s *session) close() {
	if s.graph != nil {
		s.graph.Shutdown(context.Background())
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Error("error closing journal", "error", err)
		}
	}
}

// deliveryLog keeps the deliveries of the current command in order.
type deliveryLog struct {
	mu      sync.Mutex
	records []graph.DeliveryRecord
}

func (l *deliveryLog) ResolutionFinished(context.Context, graph.ResolutionRecord) {}

func (l *deliveryLog) ActionDelivered(_ context.Context, r graph.DeliveryRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
}

func (l *deliveryLog) all() []graph.DeliveryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]graph.DeliveryRecord(nil), l.records...)
}
