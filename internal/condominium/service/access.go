package service

import (
	"context"
	"errors"

	"condo/internal/condominium/metrics"
	"condo/internal/condominium/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/sentinel"
)

// AddResident registers participant for unit. The manager and counselors may
// call it.
//
// Re-adding a registered participant moves it to unit and keeps its counselor
// flag. A unit held by another participant changes hands unless the holder is
// a counselor. Dues are tracked per unit, so the unit's last payment carries
// over to whoever holds it.
func (s *Service) AddResident(ctx context.Context, callerID id.ParticipantID, participant id.ParticipantID, unit id.ResidenceID) (*models.Receipt, error) {
	return s.mutate(ctx, "add_resident", func(ctx context.Context, t *txn) error {
		c, _, err := s.resolveCaller(ctx, callerID)
		if err != nil {
			return err
		}
		if err := s.requireCouncil(c); err != nil {
			return err
		}
		if err := validParticipant(participant); err != nil {
			return err
		}
		if !s.directory.Exists(unit) {
			return dErrors.Newf(dErrors.CodeUnknownResidence, "residence %d does not exist", unit)
		}

		existing, err := s.store.FindResidentByParticipant(ctx, participant)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resident")
		}
		holder, err := s.store.FindResidentByUnit(ctx, unit)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load unit holder")
		}

		next := &models.Resident{ParticipantID: participant, Unit: unit}
		action := "added"
		if existing != nil {
			next.IsCounselor = existing.IsCounselor
			if existing.Unit == unit {
				next.LastPaymentAt = existing.LastPaymentAt
				action = "readded"
			} else {
				action = "moved"
			}
		}

		if holder != nil && holder.ParticipantID != participant {
			if holder.IsCounselor {
				return dErrors.Newf(dErrors.CodeProtectedRole,
					"residence %d belongs to a counselor; demote them first", unit)
			}
			if err := s.store.DeleteResident(ctx, holder.ParticipantID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to replace unit holder")
			}
			next.LastPaymentAt = holder.LastPaymentAt
			t.emit(models.ResidentChanged{Participant: holder.ParticipantID, Unit: holder.Unit, Removed: true})
			s.countResidentChange(t, "replaced")
		}

		if err := s.store.SaveResident(ctx, next); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save resident")
		}
		t.emit(models.ResidentChanged{Participant: participant, Unit: unit, IsCounselor: next.IsCounselor})
		s.countResidentChange(t, action)
		t.audit("resident_added",
			"caller", callerID, "participant", participant, "unit", unit, "action", action)
		return nil
	})
}

// RemoveResident deregisters participant. Manager only; counselors must be
// demoted first.
func (s *Service) RemoveResident(ctx context.Context, callerID id.ParticipantID, participant id.ParticipantID) (*models.Receipt, error) {
	return s.mutate(ctx, "remove_resident", func(ctx context.Context, t *txn) error {
		c, _, err := s.resolveCaller(ctx, callerID)
		if err != nil {
			return err
		}
		if err := s.requireManager(c); err != nil {
			return err
		}
		if err := validParticipant(participant); err != nil {
			return err
		}
		r, err := s.store.FindResidentByParticipant(ctx, participant)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "the resident does not exist")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resident")
		}
		if r.IsCounselor {
			return dErrors.New(dErrors.CodeProtectedRole, "a counselor cannot be removed; demote them first")
		}
		if err := s.store.DeleteResident(ctx, participant); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove resident")
		}
		t.emit(models.ResidentChanged{Participant: participant, Unit: r.Unit, Removed: true})
		s.countResidentChange(t, "removed")
		t.audit("resident_removed", "caller", callerID, "participant", participant, "unit", r.Unit)
		return nil
	})
}

// SetCounselor promotes or demotes a resident. Manager only.
func (s *Service) SetCounselor(ctx context.Context, callerID id.ParticipantID, participant id.ParticipantID, isCounselor bool) (*models.Receipt, error) {
	return s.mutate(ctx, "set_counselor", func(ctx context.Context, t *txn) error {
		c, _, err := s.resolveCaller(ctx, callerID)
		if err != nil {
			return err
		}
		if err := s.requireManager(c); err != nil {
			return err
		}
		if err := validParticipant(participant); err != nil {
			return err
		}
		r, err := s.store.FindResidentByParticipant(ctx, participant)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotAResident, "the counselor must be a resident")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resident")
		}
		r.IsCounselor = isCounselor
		if err := s.store.SaveResident(ctx, r); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save resident")
		}
		t.emit(models.ResidentChanged{Participant: participant, Unit: r.Unit, IsCounselor: isCounselor})
		s.countResidentChange(t, "counselor")
		t.audit("counselor_set", "caller", callerID, "participant", participant, "is_counselor", isCounselor)
		return nil
	})
}

func (s *Service) countResidentChange(t *txn, action string) {
	t.count(func(m *metrics.Metrics) {
		m.ResidentChanges.WithLabelValues(string(s.address), action).Inc()
	})
}
