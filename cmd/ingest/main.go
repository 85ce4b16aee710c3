// Command ingest wires every pipeline component together and streams one or
// more paper files through claim extraction, indexing, and adjudication.
// Grounded on cmd/orchestrator/main.go's composition-root shape: config
// load, logger init, backend construction, graceful shutdown on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"claimgraph/internal/adjudicate"
	"claimgraph/internal/calibration"
	"claimgraph/internal/causalgraph"
	"claimgraph/internal/claim"
	"claimgraph/internal/config"
	"claimgraph/internal/dedup"
	"claimgraph/internal/embedding"
	"claimgraph/internal/extractor"
	"claimgraph/internal/graphstore"
	"claimgraph/internal/logging"
	"claimgraph/internal/objectstore"
	"claimgraph/internal/observability"
	"claimgraph/internal/paircache"
	"claimgraph/internal/vectorindex"

	"claimgraph/internal/orchestrator"
)

func main() {
	if err := run(); err != nil {
		logging.Log.WithError(err).Fatal("ingest")
	}
}

func run() error {
	configPath := "config.yaml"
	if v := os.Getenv("CLAIMGRAPH_CONFIG"); v != "" {
		configPath = v
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	observability.InitLogger("", "info")
	if cfg.OTel.Enabled {
		shutdown, oerr := observability.InitOTel(ctx, cfg.OTel)
		if oerr != nil {
			return fmt.Errorf("init otel: %w", oerr)
		}
		defer func() {
			if serr := shutdown(context.Background()); serr != nil {
				logging.Log.WithError(serr).Error("error shutting down otel")
			}
		}()
	}

	index, err := vectorindex.NewFromConfig(ctx, cfg.VectorIndex)
	if err != nil {
		return fmt.Errorf("init vector index: %w", err)
	}

	graph, err := graphstore.NewFromConfig(ctx, cfg.Graph)
	if err != nil {
		return fmt.Errorf("init graph store: %w", err)
	}
	defer func() {
		if cerr := graph.Close(); cerr != nil {
			logging.Log.WithError(cerr).Error("error closing graph store")
		}
	}()

	if cfg.Graph.KafkaBrokers != "" {
		publisher, perr := graphstore.NewKafkaPublisherFromConfig(cfg.Graph)
		if perr != nil {
			return fmt.Errorf("init kafka publisher: %w", perr)
		}
		graph = graphstore.WithKafkaPublishing(graph, publisher, func(pubErr error) {
			logging.Log.WithError(pubErr).Warn("graph event publish failed")
		})
	}

	dedupEngine, err := dedup.New(cfg.Dedup.DataDir, cfg.Dedup.ValidationMode, cfg.Dedup.SimilarityMin, nil)
	if err != nil {
		return fmt.Errorf("init dedup engine: %w", err)
	}

	if cfg.Snapshot.Enabled {
		snapshotStore, serr := objectstore.NewS3Store(ctx, cfg.Snapshot)
		if serr != nil {
			return fmt.Errorf("init snapshot object store: %w", serr)
		}

		if perr := vectorindex.PullSnapshotS3(ctx, snapshotStore, cfg.Snapshot.Prefix+"/vectorindex.gob", index); perr != nil {
			logging.Log.WithError(perr).Warn("vector index snapshot pull failed, starting empty")
		}
		if perr := dedupEngine.PullSnapshotS3(ctx, snapshotStore, cfg.Snapshot.Prefix+"/dedup"); perr != nil {
			logging.Log.WithError(perr).Warn("dedup registry snapshot pull failed, starting from local disk only")
		}
		defer func() {
			if perr := vectorindex.PushSnapshotS3(ctx, snapshotStore, cfg.Snapshot.Prefix+"/vectorindex.gob", index); perr != nil {
				logging.Log.WithError(perr).Error("vector index snapshot push failed")
			}
			if perr := dedupEngine.PushSnapshotS3(ctx, snapshotStore, cfg.Snapshot.Prefix+"/dedup"); perr != nil {
				logging.Log.WithError(perr).Error("dedup registry snapshot push failed")
			}
		}()
	}

	calibrator := calibration.New(cfg.Calibration.ModelPath)
	if err := calibrator.Load(); err != nil {
		logging.Log.WithError(err).Warn("calibration model load failed, continuing untrained")
	}

	adjudicator, err := adjudicate.NewFromConfig(ctx, cfg.Adjudication)
	if err != nil {
		return fmt.Errorf("init adjudicator: %w", err)
	}

	cacheStore, err := newPairStore(cfg)
	if err != nil {
		return fmt.Errorf("init pair cache store: %w", err)
	}

	pairs := paircache.New(cacheStore, index, adjudicator, calibrator,
		paircache.WithPrefilterBounds(cfg.Adjudication.LowerBound, cfg.Adjudication.UpperBound))

	embedder := embedding.NewHTTP(cfg.Embedding)
	if pingErr := embedder.Ping(ctx); pingErr != nil {
		logging.Log.WithError(pingErr).Warn("embedding endpoint unreachable at startup")
	}

	mirror := causalgraph.New()
	if err := rebuildMirror(ctx, cfg.Graph.EventLogPath, mirror); err != nil {
		logging.Log.WithError(err).Warn("event log replay failed, starting with an empty mirror")
	}

	var publisher orchestrator.EventPublisher = orchestrator.NoopEventPublisher{}
	if cfg.Graph.KafkaBrokers != "" {
		kp, perr := graphstore.NewKafkaPublisherFromConfig(cfg.Graph)
		if perr != nil {
			return fmt.Errorf("init orchestrator event publisher: %w", perr)
		}
		publisher = kp
	}

	dedupeStore, err := newDedupeStore(cfg)
	if err != nil {
		return fmt.Errorf("init orchestrator dedupe store: %w", err)
	}

	svc := orchestrator.New(
		extractor.NewSentenceSplitter(),
		embedder,
		index,
		graph,
		mirror,
		pairs,
		orchestrator.WithLogger(logrusAdapter{logging.Log}),
		orchestrator.WithMaxConcurrency(cfg.Orchestrator.MaxConcurrency),
		orchestrator.WithDedupeStore(dedupeStore),
		orchestrator.WithEventPublisher(publisher),
	)

	for _, path := range os.Args[1:] {
		if err := ingestFile(ctx, svc, dedupEngine, embedder, path); err != nil {
			logging.Log.WithError(err).WithField("path", path).Error("ingest failed")
		}
	}
	return nil
}

// ingestFile runs a paper through the duplicate-detection chain before
// streaming it to the orchestrator, registering it in the dedup registry on
// first sight so a later resubmission under a different path is still
// recognized.
func ingestFile(ctx context.Context, svc *orchestrator.Service, dedupEngine *dedup.Engine, embedder embedding.Provider, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	summary, err := paperSummaryEmbedding(ctx, embedder, string(data))
	if err != nil {
		logging.Log.WithError(err).WithField("path", path).Warn("paper summary embedding failed, dedup similarity check skipped")
	}

	result, err := dedupEngine.CheckDuplicate(path, dedup.Metadata{Title: path}, summary)
	if err != nil {
		return fmt.Errorf("dedup check %s: %w", path, err)
	}
	if result.Status != dedup.StatusNew && !result.ShouldReplace {
		logging.Log.WithFields(logrus.Fields{"path": path, "status": result.Status, "existing_id": result.ExistingID}).Info("skipping duplicate paper")
		return nil
	}

	paperID := path
	if err := dedupEngine.RegisterPaper(paperID, path, dedup.Metadata{Title: path}, summary, time.Now().UTC().Format(time.RFC3339)); err != nil {
		logging.Log.WithError(err).WithField("path", path).Warn("dedup registration failed")
	}

	return svc.ProcessPaperStream(ctx, data, paperID, func(c claim.Claim) {
		logging.Log.WithFields(logrus.Fields{"claim_id": c.ID, "paper_id": c.PaperID}).Info("claim extracted")
	})
}

// paperSummaryEmbedding embeds a bounded prefix of the paper's raw text, so
// the dedup engine's semantic-similarity stage has something to compare
// without re-embedding the full document.
func paperSummaryEmbedding(ctx context.Context, embedder embedding.Provider, text string) ([]float32, error) {
	const maxSummaryRunes = 4000
	runes := []rune(text)
	if len(runes) > maxSummaryRunes {
		runes = runes[:maxSummaryRunes]
	}
	vecs, err := embedder.Embed(ctx, []string{string(runes)})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding: empty response")
	}
	return vecs[0], nil
}

func newPairStore(cfg *config.Config) (paircache.Store, error) {
	if cfg.Adjudication.RedisAddr != "" {
		return paircache.NewRedisStore(cfg.Adjudication.RedisAddr)
	}
	return paircache.NewMemoryStore(cfg.Adjudication.CachePath)
}

func newDedupeStore(cfg *config.Config) (orchestrator.DedupeStore, error) {
	if cfg.Orchestrator.DedupeRedisDSN != "" {
		return orchestrator.NewRedisDedupeStore(cfg.Orchestrator.DedupeRedisDSN)
	}
	return orchestrator.NewMemoryDedupeStore(), nil
}

// rebuildMirror replays the persisted event log into an empty causal graph
// mirror, so contradiction/frontier/importance queries work immediately
// after a restart without re-running adjudication.
func rebuildMirror(ctx context.Context, eventLogPath string, mirror *causalgraph.Graph) error {
	events, err := graphstore.ReplayEvents(eventLogPath)
	if err != nil {
		return err
	}
	var claims []claim.Claim
	var edges []claim.Edge
	for _, ev := range events {
		switch ev.Kind {
		case graphstore.EventAddNode:
			claims = append(claims, claim.Claim{
				ID:         ev.NodeID,
				Section:    stringProp(ev.Props, "section"),
				Type:       claim.Type(stringProp(ev.Props, "claim_type")),
				Text:       stringProp(ev.Props, "text"),
				Confidence: floatProp(ev.Props, "confidence"),
			})
		case graphstore.EventAddEdge:
			edges = append(edges, claim.Edge{
				FromID:       ev.FromID,
				ToID:         ev.ToID,
				RelationType: claim.Verdict(ev.RelType),
				Confidence:   floatProp(ev.Props, "confidence"),
			})
		}
	}
	causalgraph.Sync(ctx, mirror, claims, edges)
	return nil
}

func stringProp(props map[string]any, key string) string {
	v, _ := props[key].(string)
	return v
}

func floatProp(props map[string]any, key string) float64 {
	v, _ := props[key].(float64)
	return v
}

// logrusAdapter satisfies orchestrator.Logger with the teacher's own
// structured logger.
type logrusAdapter struct {
	log *logrus.Logger
}

func (l logrusAdapter) Info(msg string, fields map[string]any) {
	l.log.WithFields(logrus.Fields(fields)).Info(msg)
}

func (l logrusAdapter) Error(msg string, fields map[string]any) {
	l.log.WithFields(logrus.Fields(fields)).Error(msg)
}

func (l logrusAdapter) Debug(msg string, fields map[string]any) {
	l.log.WithFields(logrus.Fields(fields)).Debug(msg)
}
