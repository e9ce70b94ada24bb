package jobs

import (
	"context"
	"strings"

	"github.com/kosavsech/SchoolDiary-sub000/internal/db"
	"github.com/kosavsech/SchoolDiary-sub000/internal/events"
	"github.com/kosavsech/SchoolDiary-sub000/internal/identity"
	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
	"github.com/kosavsech/SchoolDiary-sub000/internal/portal"
	"github.com/kosavsech/SchoolDiary-sub000/internal/reconcile"
	"github.com/kosavsech/SchoolDiary-sub000/internal/scheduler"
)

// SubjectsJob mirrors the portal's subject list. It is append-only:
// missing subjects are created and existing rows are never updated.
type SubjectsJob struct {
	base
}

// subjectInserter writes subjects only when absent
type subjectInserter struct{ store *db.DB }

func (s subjectInserter) Exists(ctx context.Context, id string) (bool, error) {
	return s.store.SubjectExists(ctx, id)
}

func (s subjectInserter) Insert(ctx context.Context, sub *models.Subject) error {
	_, err := s.store.InsertSubjectIfAbsent(ctx, sub)
	return err
}

func (j *SubjectsJob) Run(ctx context.Context) scheduler.Report {
	doc, err := j.fetch(ctx, portal.Selector{Page: portal.PageSubjects})
	if err != nil {
		return j.fail(err)
	}

	j.state(stateParsing)
	rows, err := portal.SubjectsParser.Parse(doc)
	if err != nil {
		return j.fail(err)
	}

	now := j.now()
	items := make([]reconcile.Item[*models.Subject], 0, len(rows))
	for _, r := range rows {
		name := strings.TrimSpace(r.Name)
		id := identity.SubjectID(name)
		items = append(items, reconcile.Item[*models.Subject]{
			ID:    id,
			Label: name,
			Value: &models.Subject{ID: id, FullName: name, Cabinet: strings.TrimSpace(r.Cabinet), CreatedAt: now},
		})
	}
	items = reconcile.Dedupe(items)

	j.state(stateReconciling, "items", len(items))
	res, err := reconcile.InsertMissing(ctx, subjectInserter{j.d.Store}, items)
	for _, it := range res.New {
		j.announce(events.EntitySubjects, it.ID, it.Label)
	}
	if err != nil {
		return j.fail(err)
	}
	return scheduler.Succeeded(len(res.New), 0)
}
