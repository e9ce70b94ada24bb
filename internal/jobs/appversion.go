package jobs

import (
	"context"

	"github.com/kosavsech/SchoolDiary-sub000/internal/events"
	"github.com/kosavsech/SchoolDiary-sub000/internal/scheduler"
)

// AppVersionJob compares the latest published release with this build
// and publishes the result to the version holder. Nothing is persisted.
type AppVersionJob struct {
	base
}

func (j *AppVersionJob) Run(ctx context.Context) scheduler.Report {
	j.state(stateFetching, "url", j.d.Versions.URL)
	st, err := j.d.Versions.Check(ctx, j.d.Config.BuildVersionCode)
	if err != nil {
		return j.fail(err)
	}

	if j.d.VersionState != nil {
		j.d.VersionState.Publish(st)
	}
	j.publish(events.Event{
		Kind:    events.KindVersion,
		Entity:  events.EntityAppVersion,
		Label:   st.RemoteName,
		Message: st.UpdateURL,
		Data: map[string]any{
			"state":       st.State.String(),
			"local_code":  st.LocalCode,
			"remote_code": st.RemoteCode,
		},
	})
	return scheduler.Succeeded(0, 0)
}
