package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"copywatch/internal/citation"
	"copywatch/internal/domain"
	"copywatch/internal/ports"
	"copywatch/internal/wiki"
)

// AutoReviewSink receives ids of records dismissed by policy. The write is
// best-effort and must never fail the enrichment response.
type AutoReviewSink interface {
	Enqueue(id int64)
}

// EnricherDeps wires all driven adapters into the enrichment pipeline.
type EnricherDeps struct {
	Store      ports.RecordStore
	Directory  ports.WikiDirectory
	Scores     ports.ScoreClient
	AutoReview AutoReviewSink
	Target     wiki.Target
	// DisplayThreshold hides automated scores at or below it from output.
	DisplayThreshold float64
	Logger           *slog.Logger
}

// Enricher transforms a raw record batch into the filtered, display-ready
// batch shown to reviewers.
type Enricher struct {
	store      ports.RecordStore
	directory  ports.WikiDirectory
	scores     ports.ScoreClient
	autoReview AutoReviewSink
	target     wiki.Target
	threshold  float64
	logger     *slog.Logger
}

// NewEnricher constructs the pipeline component.
func NewEnricher(deps EnricherDeps) *Enricher {
	return &Enricher{
		store:      deps.Store,
		directory:  deps.Directory,
		scores:     deps.Scores,
		autoReview: deps.AutoReview,
		target:     deps.Target,
		threshold:  deps.DisplayThreshold,
		logger:     deps.Logger,
	}
}

// EnrichBatch decorates records in their original order, dropping the ones
// the dismissal policy fires on. Any batched lookup failure aborts the whole
// batch; no partially enriched record is ever emitted.
func (e *Enricher) EnrichBatch(ctx context.Context, records []domain.Record, view domain.ViewContext) ([]domain.Record, error) {
	out := []domain.Record{}
	if len(records) == 0 {
		return out, nil
	}

	whitelist, err := e.store.UserWhitelist(ctx)
	if err != nil {
		return nil, fmt.Errorf("load whitelist: %w", err)
	}

	revIDs := make([]int64, 0, len(records))
	titles := make([]string, 0, len(records))
	for _, rec := range records {
		revIDs = append(revIDs, rec.DiffRevisionID)
		titles = append(titles, domain.DisplayTitle(rec.PageNamespace, rec.PageTitle))
	}

	// Editor resolution is a hard prerequisite for the edit-count lookup.
	editors, err := e.directory.RevisionEditors(ctx, revIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve editors: %w", err)
	}

	editorSet := make([]string, 0, len(editors))
	seen := map[string]struct{}{}
	for _, editor := range editors {
		if _, dup := seen[editor]; dup {
			continue
		}
		seen[editor] = struct{}{}
		editorSet = append(editorSet, editor)
	}

	// Edit counts and page liveness have no data dependency on each other;
	// both must complete before any record is decorated.
	var editCounts map[string]int
	var deadPages map[string]bool

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		editCounts, err = e.directory.EditCounts(gctx, editorSet)
		if err != nil {
			return fmt.Errorf("load edit counts: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		deadPages, err = e.directory.DeadPages(gctx, titles)
		if err != nil {
			return fmt.Errorf("load dead pages: %w", err)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	scores, err := e.scores.Scores(ctx, revIDs)
	if err != nil {
		return nil, fmt.Errorf("load automated scores: %w", err)
	}

	policy := NewAutoDismissalPolicy(whitelist)
	dismissed := map[int64]struct{}{}

	for _, rec := range records {
		title := domain.DisplayTitle(rec.PageNamespace, rec.PageTitle)
		editor := editors[rec.DiffRevisionID]
		pageDead := deadPages[title]

		if policy.Dismiss(editor, pageDead, view) {
			if _, dup := dismissed[rec.ID]; !dup {
				dismissed[rec.ID] = struct{}{}
				e.enqueueAutoReview(rec.ID)
			}
			continue
		}

		rec.PageIsDead = pageDead
		rec.DiffTimestampText = domain.FormatWikiTime(rec.DiffTimestamp)
		rec.Citations = citation.Parse(rec.ReportText)

		if editor != "" {
			rec.Editor = editor
			if c, ok := editCounts[editor]; ok {
				count := c
				rec.EditCount = &count
			}
		}

		if rec.Status != domain.StatusReady && rec.StatusUser != "" {
			rec.ReviewedByURL = e.target.UserPageURL(rec.StatusUser)
			if rec.ReviewTimestamp != nil {
				rec.ReviewTimestampText = domain.FormatWikiTime(*rec.ReviewTimestamp)
			}
		}

		projects, err := e.store.WikiProjects(ctx, view.Lang, title)
		if err != nil {
			return nil, fmt.Errorf("load wikiprojects for %s: %w", title, err)
		}
		rec.RelatedProjects = make([]string, 0, len(projects))
		for _, project := range projects {
			rec.RelatedProjects = append(rec.RelatedProjects, domain.UnderscoresToSpaces(project))
		}

		rec.PageTitle = domain.UnderscoresToSpaces(title)

		if score, ok := scores[rec.DiffRevisionID]; ok && score > e.threshold {
			s := score
			rec.AutomatedScore = &s
		}

		rec.ReportText = ""
		out = append(out, rec)
	}

	return out, nil
}

func (e *Enricher) enqueueAutoReview(id int64) {
	if e.autoReview == nil {
		if e.logger != nil {
			e.logger.Warn("no auto-review sink configured, record stays open", "id", id)
		}
		return
	}
	e.autoReview.Enqueue(id)
}
