package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndSkipsNil(t *testing.T) {
	registry := NewRegistry(namedJob("outbox-retention"), nil)
	registry.Register(nil)
	registry.Register(namedJob("notification-retention"))

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	require.Equal(t, "outbox-retention", jobs[0].Name())
	require.Equal(t, "notification-retention", jobs[1].Name())

	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0], "callers must not mutate the registry")
}

type versionedJob struct {
	name    string
	version int
}

func (v versionedJob) Name() string              { return v.name }
func (v versionedJob) Run(context.Context) error { return nil }

func TestRegistryReplacesSameNameInPlace(t *testing.T) {
	registry := NewRegistry(
		versionedJob{name: "outbox-retention", version: 1},
		namedJob("notification-retention"),
		namedJob("  "),
	)
	registry.Register(versionedJob{name: "outbox-retention", version: 2})

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	require.Equal(t, versionedJob{name: "outbox-retention", version: 2}, jobs[0])
	require.Equal(t, "notification-retention", jobs[1].Name())
}

func TestZeroRegistryAcceptsJobs(t *testing.T) {
	var registry Registry
	registry.Register(namedJob("outbox-retention"))
	require.Len(t, registry.Jobs(), 1)
}
