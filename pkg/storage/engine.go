// Package storage implements the dual-tree storage engine.
//
// The engine stores every object in the identifier-sharded primary store and,
// for structured (DICOM) content, additionally links it into the shadow tree
// under a patient/study/series path derived from its metadata. The primary
// store is authoritative; the shadow tree is best-effort and its failures are
// logged, never returned.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/shadowfs/internal/logger"
	"github.com/marmos91/shadowfs/pkg/content"
	"github.com/marmos91/shadowfs/pkg/content/fs"
	"github.com/marmos91/shadowfs/pkg/dicom"
	"github.com/marmos91/shadowfs/pkg/shadow"
)

// Engine is the storage area exposed to the host. It implements content.Store.
//
// Concurrency:
// Safe for concurrent use across distinct IDs. The host must not issue
// concurrent Put/Get/Delete calls for the same ID; this precondition is not
// enforced. No locks are held across filesystem calls.
type Engine struct {
	cfg       Config
	primary   *fs.FSContentStore
	extractor dicom.Extractor
	linker    *shadow.Linker
	metrics   Metrics
}

var _ content.Store = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithExtractor sets the metadata extractor (default: DICOM parser with
// default options).
func WithExtractor(extractor dicom.Extractor) Option {
	return func(e *Engine) {
		if extractor != nil {
			e.extractor = extractor
		}
	}
}

// WithLinker sets the shadow linker (default: shadow.NewLinker()).
func WithLinker(linker *shadow.Linker) Option {
	return func(e *Engine) {
		if linker != nil {
			e.linker = linker
		}
	}
}

// WithMetrics sets the metrics collector. A nil collector keeps the no-op
// implementation.
func WithMetrics(metrics Metrics) Option {
	return func(e *Engine) {
		if metrics != nil {
			e.metrics = metrics
		}
	}
}

// New creates a storage engine.
//
// The configuration is validated once here. Both roots are created if
// missing, and the primary fan-out is pre-created when
// cfg.InitializeFanout is set.
//
// Parameters:
//   - ctx: Context for cancellation of the startup I/O
//   - cfg: Engine configuration
//   - opts: Optional collaborators
//
// Returns:
//   - *Engine: Ready-to-use engine
//   - error: ErrInvalidConfig (wrapped) or directory creation errors
func New(ctx context.Context, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	primary, err := fs.NewFSContentStore(ctx, cfg.PrimaryRoot)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.ShadowRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create shadow root: %w", err)
	}
	cfg.ShadowRoot = filepath.Clean(cfg.ShadowRoot)

	e := &Engine{
		cfg:       cfg,
		primary:   primary,
		extractor: dicom.NewParser(dicom.DefaultOptions()),
		linker:    shadow.NewLinker(),
		metrics:   noopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}

	if cfg.InitializeFanout {
		if err := primary.InitializeFanout(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize primary fan-out: %w", err)
		}
	}

	logger.Info("Storage engine ready: primary=%s shadow=%s", primary.BasePath(), cfg.ShadowRoot)
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// PrimaryPath returns the primary location of id.
func (e *Engine) PrimaryPath(id content.ContentID) (string, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}
	return e.primary.Path(id), nil
}

// ShadowPath derives the shadow location of an object from its bytes.
//
// This is the same pure derivation used by Put and Delete. Returns false for
// opaque content or when no usable metadata can be extracted.
func (e *Engine) ShadowPath(data []byte, kind content.ContentKind) (string, bool) {
	if kind != content.KindStructured {
		return "", false
	}

	md, err := e.extractor.Extract(data)
	if err != nil {
		logger.Debug("No shadow path: %v", err)
		e.metrics.RecordExtractionFailure()
		return "", false
	}

	path, ok := shadow.Path(e.cfg.ShadowRoot, md, e.cfg.ShadowExtension)
	if !ok {
		logger.Debug("No shadow path: incomplete metadata (patient=%q date=%q time=%q series=%q instance=%q)",
			md.PatientKey(), md.StudyDate, md.StudyTime, md.SeriesNumber, md.InstanceID)
	}
	return path, ok
}

// Exists reports whether id is stored.
func (e *Engine) Exists(ctx context.Context, id content.ContentID) (bool, error) {
	return e.primary.ContentExists(ctx, id)
}

// statusOf maps an operation error to a metrics status label.
func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, content.ErrContentNotFound):
		return "not_found"
	case errors.Is(err, content.ErrContentExists):
		return "exists"
	case errors.Is(err, content.ErrInvalidContentID):
		return "invalid"
	case errors.Is(err, content.ErrCorruptedFile):
		return "corrupted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "io_error"
	}
}
