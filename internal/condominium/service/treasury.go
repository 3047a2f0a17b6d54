package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"condo/internal/condominium/metrics"
	"condo/internal/condominium/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/sentinel"
)

// PayQuota pays one period of dues for unit. Anyone may pay on behalf of a
// registered unit.
func (s *Service) PayQuota(ctx context.Context, callerID id.ParticipantID, unit id.ResidenceID, value id.Amount) (*models.Receipt, error) {
	return s.mutate(ctx, "pay_quota", func(ctx context.Context, t *txn) error {
		if !s.directory.Exists(unit) {
			return dErrors.Newf(dErrors.CodeUnknownResidence, "residence %d does not exist", unit)
		}
		r, err := s.store.FindResidentByUnit(ctx, unit)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeUnknownResident, "residence %d has no resident", unit)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resident")
		}
		state, err := s.store.State(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load backend state")
		}
		if value.LessThan(state.MonthlyQuota) {
			return dErrors.Newf(dErrors.CodeInsufficientValue,
				"the quota is %s, received %s", state.MonthlyQuota, value)
		}
		if !r.CanPay(t.now, s.period) {
			return dErrors.Newf(dErrors.CodeAlreadyPaidThisPeriod,
				"residence %d already paid until %s", unit, r.NextPaymentDue(s.period).Format(time.RFC3339))
		}
		if err := state.Deposit(value); err != nil {
			return err
		}
		r.ApplyPayment(t.now)
		if err := s.store.SaveResident(ctx, r); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment")
		}
		if err := s.store.SaveState(ctx, state); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update treasury")
		}
		t.count(func(m *metrics.Metrics) {
			m.QuotaPayments.WithLabelValues(string(s.address)).Inc()
		})
		t.audit("quota_paid", "caller", callerID, "unit", unit, "value", value)
		return nil
	})
}

// Transfer releases up to the approved amount of an APPROVED SPENT topic to
// its responsible participant. Manager only.
func (s *Service) Transfer(ctx context.Context, callerID id.ParticipantID, title string, amount id.Amount) (*models.Receipt, error) {
	return s.mutate(ctx, "transfer", func(ctx context.Context, t *txn) error {
		c, state, err := s.resolveCaller(ctx, callerID)
		if err != nil {
			return err
		}
		if err := s.requireManager(c); err != nil {
			return err
		}
		if amount.IsZero() {
			return dErrors.New(dErrors.CodeInvalidArgument, "amount must be positive")
		}
		topic, err := s.findTopic(ctx, strings.TrimSpace(title))
		if err != nil {
			return err
		}
		if err := topic.CanSpend(amount); err != nil {
			return err
		}
		if err := state.Withdraw(amount); err != nil {
			return err
		}
		topic.ApplySpend()
		if err := s.store.SaveState(ctx, state); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update treasury")
		}
		if err := s.store.UpdateTopic(ctx, topic); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update topic")
		}
		// last step: the memory ledger cannot roll back
		if err := s.ledger.Credit(ctx, topic.Responsible, amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to credit responsible")
		}
		t.emit(models.FundsTransferred{To: topic.Responsible, Amount: amount, Topic: topic.Title})
		t.emit(models.TopicChanged{Title: topic.Title, Status: topic.Status})
		t.count(func(m *metrics.Metrics) {
			m.TransferredUnits.WithLabelValues(string(s.address)).Add(amount.Float64())
		})
		t.audit("funds_transferred", "caller", callerID, "title", topic.Title,
			"to", topic.Responsible, "amount", amount)
		return nil
	})
}
