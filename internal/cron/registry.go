package cron

import (
	"context"
	"strings"
)

// Job is a periodic maintenance task run by the worker. Name doubles as the
// metric label, so it must be stable.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in registration order, one per name.
type Registry struct {
	jobs  []Job
	index map[string]int
}

func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{index: map[string]int{}}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register adds job, or swaps it in for an earlier job with the same name
// while keeping that job's slot. Nil and unnamed jobs are ignored.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return
	}
	if r.index == nil {
		r.index = map[string]int{}
	}
	if pos, ok := r.index[name]; ok {
		r.jobs[pos] = job
		return
	}
	r.index[name] = len(r.jobs)
	r.jobs = append(r.jobs, job)
}

func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}
