package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "stale_order_expiry"}, nil)
	require.NoError(t, registry.Register(&stubJob{name: "outbox_retention"}))

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	require.Equal(t, []string{"stale_order_expiry", "outbox_retention"}, registry.Names())

	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0])
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "outbox_retention"})
	require.Error(t, registry.Register(&stubJob{name: "outbox_retention"}))
	require.Len(t, registry.Jobs(), 1)

	require.Panics(t, func() {
		NewRegistry(&stubJob{name: "a"}, &stubJob{name: "a"})
	})
}
