// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package access

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/talentgate/talentgate/internal/models"
)

type recordingRecorder struct {
	mu        sync.Mutex
	decisions map[string][]Decision
}

func (r *recordingRecorder) RecordGateDecision(moduleCode string, decision Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decisions == nil {
		r.decisions = make(map[string][]Decision)
	}
	r.decisions[moduleCode] = append(r.decisions[moduleCode], decision)
}

func TestGateCanEnter(t *testing.T) {
	t.Parallel()

	t.Run("allows licensed module", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{}
		fetcher.set([]models.License{license(models.ModuleATSChecker, true)}, nil)
		gate := NewGate(NewDirectory(fetcher), nil)

		feature := models.FeatureDescriptor{Name: "ATS Checker", RequiresModule: models.ModuleATSChecker}
		assert.Equal(t, DecisionAllow, gate.CanEnter(context.Background(), feature))
	})

	t.Run("denies unlicensed module", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{}
		fetcher.set(nil, nil)
		gate := NewGate(NewDirectory(fetcher), nil)

		assert.Equal(t, DecisionDeny, gate.CanEnterModule(context.Background(), models.ModuleCodeAssessment))
	})

	t.Run("allows ungated feature without fetching", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{}
		gate := NewGate(NewDirectory(fetcher), nil)

		assert.Equal(t, DecisionAllow, gate.CanEnter(context.Background(), models.FeatureDescriptor{Name: "Dashboard"}))
		assert.Equal(t, int64(0), fetcher.calls.Load())
	})

	t.Run("denies on fetch error", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{}
		fetcher.set(nil, errors.New("platform down"))
		gate := NewGate(NewDirectory(fetcher), nil)

		assert.Equal(t, DecisionDeny, gate.CanEnterModule(context.Background(), models.ModuleATSChecker))
	})

	t.Run("re-evaluates on every check", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{}
		fetcher.set([]models.License{license(models.ModuleATSChecker, true)}, nil)
		gate := NewGate(NewDirectory(fetcher), nil)

		assert.Equal(t, DecisionAllow, gate.CanEnterModule(context.Background(), models.ModuleATSChecker))

		// Trial expired server-side between navigations.
		fetcher.set([]models.License{license(models.ModuleATSChecker, false)}, nil)

		assert.Equal(t, DecisionDeny, gate.CanEnterModule(context.Background(), models.ModuleATSChecker),
			"a past allow must not be cached")
	})
}

func TestGateRecordsDecisions(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	fetcher.set([]models.License{license(models.ModuleATSChecker, true)}, nil)
	recorder := &recordingRecorder{}
	gate := NewGate(NewDirectory(fetcher), recorder)

	gate.CanEnterModule(context.Background(), models.ModuleATSChecker)
	gate.CanEnterModule(context.Background(), models.ModuleCodeAssessment)

	assert.Equal(t, []Decision{DecisionAllow}, recorder.decisions[models.ModuleATSChecker])
	assert.Equal(t, []Decision{DecisionDeny}, recorder.decisions[models.ModuleCodeAssessment])
}
