package jobs

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kosavsech/SchoolDiary-sub000/internal/events"
	"github.com/kosavsech/SchoolDiary-sub000/internal/identity"
	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
	"github.com/kosavsech/SchoolDiary-sub000/internal/portal"
	"github.com/kosavsech/SchoolDiary-sub000/internal/reconcile"
	"github.com/kosavsech/SchoolDiary-sub000/internal/scheduler"
)

// Terms in a school year
const Terms = 4

// PerformanceJob syncs final term marks. All term pages are fetched
// concurrently and every fetch must succeed before anything is written.
type PerformanceJob struct {
	base
}

func (j *PerformanceJob) Run(ctx context.Context) scheduler.Report {
	pages := make([][]portal.TermMarkDTO, Terms)

	g, gctx := errgroup.WithContext(ctx)
	for term := 1; term <= Terms; term++ {
		g.Go(func() error {
			doc, err := j.fetch(gctx, portal.Selector{Page: portal.PagePerformance, Term: term})
			if err != nil {
				return err
			}
			rows, err := portal.PerformanceParser.Parse(doc)
			if err != nil {
				return fmt.Errorf("term %d: %w", term, err)
			}
			pages[term-1] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return j.fail(err)
	}

	j.state(stateReconciling)
	subjects := newSubjectResolver(j.d.Store)
	skipped := 0
	var items []reconcile.Item[*models.TermMark]
	for i, rows := range pages {
		term := i + 1
		for _, r := range rows {
			label := fmt.Sprintf("%s term %d", strings.TrimSpace(r.Subject), term)
			subjectID, ok, err := subjects.resolve(ctx, r.Subject)
			if err != nil {
				return j.fail(err)
			}
			if !ok {
				skipped++
				j.skip(events.EntityTermMarks, label, "subject %q not found", strings.TrimSpace(r.Subject))
				continue
			}
			id := identity.TermMarkID(subjectID, term)
			items = append(items, reconcile.Item[*models.TermMark]{
				ID:    id,
				Label: label,
				Value: &models.TermMark{ID: id, SubjectID: subjectID, Term: term, Mark: strings.TrimSpace(r.Mark)},
			})
		}
	}
	items = reconcile.Dedupe(items)

	res, err := reconcile.Reconcile(ctx, reconcile.StoreFuncs[*models.TermMark]{
		ExistsFunc: j.d.Store.TermMarkExists,
		UpsertFunc: j.d.Store.UpsertTermMark,
	}, items)
	if err != nil {
		return j.fail(err)
	}
	for _, it := range res.New {
		j.announce(events.EntityTermMarks, it.ID, it.Label)
	}
	return scheduler.Succeeded(len(res.New), skipped)
}
