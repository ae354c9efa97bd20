// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package access

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/talentgate/talentgate/internal/models"
)

// Decision is the outcome of a feature gate check. Denial is an expected,
// recoverable state that routes the user to the marketplace, never an error.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// MarketplaceHref is where denied users are sent to unlock the feature.
const MarketplaceHref = "/marketplace"

// DecisionRecorder observes gate outcomes, e.g. for metrics.
type DecisionRecorder interface {
	RecordGateDecision(moduleCode string, decision Decision)
}

// Gate makes page-entry access decisions. Every check takes a fresh
// directory snapshot, so an allow is never cached across navigations and a
// trial expiry or revocation is honored on the next request.
type Gate struct {
	directory *Directory
	recorder  DecisionRecorder
}

func NewGate(directory *Directory, recorder DecisionRecorder) *Gate {
	return &Gate{
		directory: directory,
		recorder:  recorder,
	}
}

// CanEnter decides whether the feature may be entered right now. A fetch
// failure denies (fail-closed) without surfacing an error page.
func (g *Gate) CanEnter(ctx context.Context, feature models.FeatureDescriptor) Decision {
	return g.CanEnterModule(ctx, feature.RequiresModule)
}

// CanEnterModule is CanEnter for a bare module code; dashboard quick
// actions and proxied feature routes use it directly.
func (g *Gate) CanEnterModule(ctx context.Context, moduleCode string) Decision {
	if moduleCode == "" {
		g.record(moduleCode, DecisionAllow)
		return DecisionAllow
	}

	directory, err := g.directory.Snapshot(ctx)
	if err != nil {
		g.record(moduleCode, DecisionDeny)
		return DecisionDeny
	}

	decision := DecisionDeny
	if HasAccess(moduleCode, directory) {
		decision = DecisionAllow
	}

	log.Debug().
		Str("module", moduleCode).
		Str("decision", string(decision)).
		Msg("feature gate evaluated")

	g.record(moduleCode, decision)
	return decision
}

func (g *Gate) record(moduleCode string, decision Decision) {
	if g.recorder != nil {
		g.recorder.RecordGateDecision(moduleCode, decision)
	}
}
