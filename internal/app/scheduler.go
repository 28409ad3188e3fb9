package app

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ErrUnknownJob = errors.New("unknown job")

// JobInfo a registered background job and its schedule
type JobInfo struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev"`
}

type job struct {
	spec    string
	run     func()
	entryID cron.EntryID
}

// jobs the background jobs by name
func (a *Application) jobs() map[string]*job {
	if a.jobTable != nil {
		return a.jobTable
	}
	a.jobTable = map[string]*job{
		"process_monitor": {spec: "@every 30s", run: a.SchedProcessMonitorTask},
		"oprlog_purge":    {spec: "@daily", run: func() { a.SchedOprLogPurgeTask() }},
		"overdue_trips":   {spec: "@hourly", run: func() { a.SchedOverdueTripsTask() }},
	}
	return a.jobTable
}

// Jobs lists the registered jobs with their next and previous run
func (a *Application) Jobs() []JobInfo {
	out := make([]JobInfo, 0, len(a.jobs()))
	for name, j := range a.jobs() {
		info := JobInfo{Name: name, Spec: j.spec}
		if a.sched != nil && j.entryID != 0 {
			e := a.sched.Entry(j.entryID)
			info.Next, info.Prev = e.Next, e.Prev
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// RunJobNow runs a job in the background outside its schedule
func (a *Application) RunJobNow(name string) error {
	j, ok := a.jobs()[name]
	if !ok {
		return errors.Wrap(ErrUnknownJob, name)
	}
	zap.L().Info("job triggered", zap.String("job", name))
	go j.run()
	return nil
}
