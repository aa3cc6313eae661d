package services

// SchedulePolicy controls schedule generation and due-date reporting across
// the service layer. Loaded once at startup; see app.Config.
type SchedulePolicy struct {
	// AdjustWeekends applies the weekend shift to contract-triggered
	// schedules (Saturday to the preceding Friday, Sunday to the following
	// Monday). Parameter-driven generation carries its own per-request flag.
	AdjustWeekends bool
	// AbsorbRemainder folds the rounding residue into the last installment.
	AbsorbRemainder bool
	// DueSoonDays is the horizon for the due-soon listing.
	DueSoonDays int
}

func DefaultSchedulePolicy() SchedulePolicy {
	return SchedulePolicy{
		AdjustWeekends:  true,
		AbsorbRemainder: false,
		DueSoonDays:     7,
	}
}
