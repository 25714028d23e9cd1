package habit

// DefaultLookback bounds the streak walk. Streaks longer than this are
// reported as the bound.
const DefaultLookback = 365

// StreakOptions tunes the streak walk.
type StreakOptions struct {
	// Lookback is the number of days inspected, today included.
	Lookback int
	// SkipOffDays lets past days on which the template is not due pass
	// without ending the streak.
	SkipOffDays bool
}

func (o StreakOptions) lookback() int {
	if o.Lookback <= 0 {
		return DefaultLookback
	}
	return o.Lookback
}

// Streak counts consecutive successful due days ending at today. Today is
// neutral until it is logged: an unlogged or missed today neither counts
// nor breaks the streak.
func Streak(b *Book, taskID, today string, opts StreakOptions) int {
	start, err := ParseDate(today)
	if err != nil {
		return 0
	}
	streak := 0
	for offset := 0; offset < opts.lookback(); offset++ {
		t, ok := b.Template(taskID)
		if !ok {
			break
		}
		date := DateOf(start.AddDate(0, 0, -offset))
		if !IsScheduledForDate(t, date) {
			if offset == 0 || opts.SkipOffDays {
				continue
			}
			break
		}
		if l, ok := b.Log(taskID, date); ok && l.Status.Successful() {
			streak++
			continue
		}
		if offset == 0 {
			continue
		}
		break
	}
	return streak
}
