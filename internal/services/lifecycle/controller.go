// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package lifecycle drives license mutations: trial start, purchase and
// trial-to-paid upgrade. It is the only writer against the license
// directory; navigation and the gate recompute as a consequence of the
// invalidate/refresh it performs after each confirmed mutation.
package lifecycle

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/talentgate/talentgate/internal/models"
	"github.com/talentgate/talentgate/internal/platform"
	"github.com/talentgate/talentgate/internal/services/access"
)

var (
	ErrTrialNotOffered       = errors.New("module does not offer a trial")
	ErrPaymentMethodRequired = errors.New("payment method is required for paid plans")
	ErrInvalidPlan           = errors.New("invalid plan type")
)

// Outcome labels for operation metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// PurchaseClient is the slice of the platform client the controller needs.
type PurchaseClient interface {
	Purchase(ctx context.Context, moduleID string, req platform.PurchaseRequest) (*platform.PurchaseResult, error)
}

// OperationRecorder observes lifecycle outcomes, e.g. for metrics.
type OperationRecorder interface {
	RecordLifecycleOperation(operation, outcome string)
}

// Result is the explicit mutation outcome carried back to the UI instead of
// fire-and-forget dialogs.
type Result struct {
	Message  string         `json:"message"`
	License  models.License `json:"license"`
	ChargeID string         `json:"chargeId,omitempty"`
}

// Controller performs single-shot license mutations. No retries, no
// optimistic updates: the directory changes only after the platform
// confirms, and a failure leaves it untouched.
type Controller struct {
	client    PurchaseClient
	directory *access.Directory
	recorder  OperationRecorder
}

func NewController(client PurchaseClient, directory *access.Directory, recorder OperationRecorder) *Controller {
	return &Controller{
		client:    client,
		directory: directory,
		recorder:  recorder,
	}
}

// StartTrial begins a trial for the module. The platform enforces one trial
// per module per tenant; its rejection surfaces as
// platform.ErrTrialAlreadyUsed so the UI can show a specific message.
func (c *Controller) StartTrial(ctx context.Context, module *models.Module) (*Result, error) {
	if !module.OffersTrial() {
		c.record("start_trial", OutcomeRejected)
		return nil, ErrTrialNotOffered
	}

	result, err := c.client.Purchase(ctx, module.ID, platform.PurchaseRequest{
		LicenseType: models.LicenseTypeTrial,
	})
	if err != nil {
		c.record("start_trial", outcomeFor(err))
		log.Warn().Err(err).Str("module", module.Code).Msg("trial start rejected")
		return nil, err
	}

	log.Info().
		Str("module", module.Code).
		Str("licenseType", result.License.LicenseType).
		Msg("trial started")

	c.record("start_trial", OutcomeSuccess)
	return c.confirm(ctx, result)
}

// Purchase buys a paid plan for the module. When the tenant holds a trial
// license the platform converts it; the request shape is identical either
// way, so Upgrade delegates here.
func (c *Controller) Purchase(ctx context.Context, module *models.Module, planType, paymentMethodRef string) (*Result, error) {
	switch planType {
	case models.LicenseTypeMonthly, models.LicenseTypeAnnual, models.LicenseTypeLifetime:
	default:
		c.record("purchase", OutcomeRejected)
		return nil, errors.Wrap(ErrInvalidPlan, planType)
	}
	if paymentMethodRef == "" {
		c.record("purchase", OutcomeRejected)
		return nil, ErrPaymentMethodRequired
	}

	result, err := c.client.Purchase(ctx, module.ID, platform.PurchaseRequest{
		LicenseType:     planType,
		PaymentMethodID: paymentMethodRef,
	})
	if err != nil {
		c.record("purchase", outcomeFor(err))
		log.Warn().Err(err).Str("module", module.Code).Str("plan", planType).Msg("purchase rejected")
		return nil, err
	}

	log.Info().
		Str("module", module.Code).
		Str("plan", planType).
		Str("chargeId", result.ChargeID).
		Msg("module purchased")

	c.record("purchase", OutcomeSuccess)
	return c.confirm(ctx, result)
}

// Upgrade converts a trial into a paid plan. The platform is the source of
// truth for whether this is an upgrade or a new purchase.
func (c *Controller) Upgrade(ctx context.Context, module *models.Module, planType, paymentMethodRef string) (*Result, error) {
	return c.Purchase(ctx, module, planType, paymentMethodRef)
}

// confirm invalidates the directory and refetches it so callers returning
// to the UI observe the mutation. The refetch happens after the platform
// confirmed the write, bounding staleness to one round trip.
func (c *Controller) confirm(ctx context.Context, result *platform.PurchaseResult) (*Result, error) {
	c.directory.Invalidate()

	if _, err := c.directory.Snapshot(ctx); err != nil {
		// The mutation succeeded; only the refresh failed. The directory
		// stays invalidated and the next gate check refetches.
		log.Warn().Err(err).Msg("directory refresh after mutation failed")
	}

	return &Result{
		Message:  result.Message,
		License:  result.License,
		ChargeID: result.ChargeID,
	}, nil
}

func (c *Controller) record(operation, outcome string) {
	if c.recorder != nil {
		c.recorder.RecordLifecycleOperation(operation, outcome)
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, platform.ErrTrialAlreadyUsed),
		errors.Is(err, platform.ErrAlreadyLicensed),
		errors.Is(err, platform.ErrPaymentFailed):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}
