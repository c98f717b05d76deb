package risk

import "time"

// Session labels for the New York trading clock. The valuation snapshot
// surfaces the active session and whether the model's forbidden trading
// window is currently in effect.

type Session string

const (
	SessionWeekendHoliday Session = "weekend_holiday"
	SessionDeadZone       Session = "dead_zone"
	SessionAsia           Session = "asia_session"
	SessionLondon         Session = "london_session"
	SessionUS             Session = "us_session"
	SessionDefault        Session = "default"
	SessionNoTrade        Session = "no_trade"

	DaysPerWeek          = 7
	OffsetDaysForNewYear = 1
	NewYearDay           = 1
	ThirdMondayOffset    = 2
	FourthThursdayOffset = 3
)

// WindowConfig carries the per-model toggle for the forbidden window.
type WindowConfig struct {
	EnableNoTradeWindow bool
}

// Evaluate returns the active session and whether the model's no-trade
// window is in effect at the given instant.
func Evaluate(now time.Time, cfg WindowConfig) (Session, bool) {
	et := getEasternTime(now)

	if cfg.EnableNoTradeWindow && isNoTradeWindowNY(et) {
		return SessionNoTrade, true
	}

	return detectSession(et), false
}

func getEasternTime(t time.Time) time.Time {
	nyLocation, err := time.LoadLocation("America/New_York")
	if err != nil {
		return t.UTC()
	}
	return t.In(nyLocation)
}

// isNoTradeWindowNY blocks from Friday 09.00 NY until Sunday 03.00 NY, plus
// full days on US market holidays. Sunday during the London session is
// explicitly allowed.
func isNoTradeWindowNY(t time.Time) bool {
	if t.Weekday() == time.Sunday && isLondonSession(t) {
		return t.Hour() < 3
	}

	if isHoliday(t) {
		return true
	}

	h := t.Hour()
	switch t.Weekday() {
	case time.Friday:
		return h >= 9
	case time.Saturday:
		return true
	case time.Sunday:
		return h < 3
	default:
		return false
	}
}

func detectSession(t time.Time) Session {
	if t.Weekday() == time.Sunday && isLondonSession(t) {
		return SessionLondon
	}

	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday || isHoliday(t) {
		return SessionWeekendHoliday
	}

	switch {
	case isDeadZone(t):
		return SessionDeadZone
	case isAsiaSession(t):
		return SessionAsia
	case isLondonSession(t):
		return SessionLondon
	case isUSSession(t):
		return SessionUS
	default:
		return SessionDefault
	}
}

func isDeadZone(t time.Time) bool {
	return t.Hour() >= 17 && t.Hour() < 20
}

func isAsiaSession(t time.Time) bool {
	return t.Hour() >= 20 || t.Hour() < 3
}

func isLondonSession(t time.Time) bool {
	return t.Hour() >= 3 && t.Hour() < 9
}

func isUSSession(t time.Time) bool {
	return t.Hour() >= 9 && t.Hour() <= 17
}

func isHoliday(t time.Time) bool {
	year := t.Year()

	newYearsDay := time.Date(year, time.January, NewYearDay, 0, 0, 0, 0, time.UTC)
	if newYearsDay.Weekday() == time.Sunday {
		newYearsDay = newYearsDay.AddDate(0, 0, OffsetDaysForNewYear)
	}

	mlkDay := calculateSpecificMonday(year, time.January, ThirdMondayOffset)
	presidentsDay := calculateSpecificMonday(year, time.February, ThirdMondayOffset)

	memorialDay := time.Date(year, time.May, 31, 0, 0, 0, 0, time.UTC)
	for memorialDay.Weekday() != time.Monday {
		memorialDay = memorialDay.AddDate(0, 0, -1)
	}

	independenceDay := time.Date(year, time.July, 4, 0, 0, 0, 0, time.UTC)
	if independenceDay.Weekday() == time.Sunday {
		independenceDay = independenceDay.AddDate(0, 0, OffsetDaysForNewYear)
	}

	laborDay := calculateSpecificMonday(year, time.September, 0)
	thanksgivingDay := calculateSpecificThursday(year, time.November, FourthThursdayOffset)

	christmasDay := time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC)
	if christmasDay.Weekday() == time.Sunday {
		christmasDay = christmasDay.AddDate(0, 0, OffsetDaysForNewYear)
	}

	holidays := []time.Time{
		newYearsDay,
		mlkDay,
		presidentsDay,
		memorialDay,
		independenceDay,
		laborDay,
		thanksgivingDay,
		christmasDay,
	}
	return isDateAmong(t, holidays)
}

func calculateSpecificMonday(year int, month time.Month, mondayOffset int) time.Time {
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := int(time.Monday-firstOfMonth.Weekday()+DaysPerWeek) % DaysPerWeek
	return firstOfMonth.AddDate(0, 0, offset+mondayOffset*DaysPerWeek)
}

func calculateSpecificThursday(year int, month time.Month, thursdayOffset int) time.Time {
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := int(time.Thursday-firstOfMonth.Weekday()+DaysPerWeek) % DaysPerWeek
	return firstOfMonth.AddDate(0, 0, offset+thursdayOffset*DaysPerWeek)
}

func isDateAmong(t time.Time, dates []time.Time) bool {
	for _, d := range dates {
		if t.Format("2006-01-02") == d.Format("2006-01-02") {
			return true
		}
	}
	return false
}
