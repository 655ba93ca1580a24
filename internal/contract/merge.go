package contract

// merge folds an incoming snapshot into the stored one. Precedence, field by
// field:
//
//   - ID, CreatedAt: always from the stored row.
//   - Status: incoming (externally owned, last write wins).
//   - Title, Kind, ScopeOfWork, TermsAndConditions: incoming when non-empty,
//     otherwise stored. A partial payload with stale empty strings must not
//     blank locally held values.
//   - PublishingDate, OfferDeadlineAt: incoming when non-zero.
//   - Weighting: incoming when either percentage is set.
//   - Stakeholders, VersionsAndDocs: incoming when non-empty.
//   - Config: incoming unless zero (no accepted types, no rates, no
//     allow-lists).
//   - RawSnapshot: always incoming; it documents the last received payload.
func merge(stored, incoming Contract) Contract {
	out := incoming
	out.ID = stored.ID
	out.CreatedAt = stored.CreatedAt

	if out.Title == "" {
		out.Title = stored.Title
	}
	if out.Kind == "" {
		out.Kind = stored.Kind
	}
	if out.ScopeOfWork == "" {
		out.ScopeOfWork = stored.ScopeOfWork
	}
	if out.TermsAndConditions == "" {
		out.TermsAndConditions = stored.TermsAndConditions
	}
	if out.PublishingDate.IsZero() {
		out.PublishingDate = stored.PublishingDate
	}
	if out.OfferDeadlineAt.IsZero() {
		out.OfferDeadlineAt = stored.OfferDeadlineAt
	}
	if out.Weighting.FunctionalPercent == 0 && out.Weighting.CommercialPercent == 0 {
		out.Weighting = stored.Weighting
	}
	if len(out.Stakeholders) == 0 {
		out.Stakeholders = stored.Stakeholders
	}
	if len(out.VersionsAndDocs) == 0 {
		out.VersionsAndDocs = stored.VersionsAndDocs
	}
	if out.Config.IsZero() {
		out.Config = stored.Config
	}
	return out
}
