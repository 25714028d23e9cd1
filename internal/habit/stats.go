package habit

import (
	"time"

	"routine-coach/internal/model"
)

// DayStat is the success rate of one calendar day.
type DayStat struct {
	Date    string       `json:"date"`
	Weekday time.Weekday `json:"weekday"`
	Logged  int          `json:"logged"`
	Done    int          `json:"done"`
	Percent float64      `json:"percent"`
}

// WeeklySuccess returns the seven days ending at today, oldest first. The
// percentage is done logs over all logs recorded that day, 0 for empty days.
func WeeklySuccess(b *Book, today string) []DayStat {
	end, err := ParseDate(today)
	if err != nil {
		return nil
	}
	byDate := make(map[string]*DayStat, 7)
	days := make([]DayStat, 7)
	for i := range days {
		d := end.AddDate(0, 0, i-6)
		days[i] = DayStat{Date: DateOf(d), Weekday: d.Weekday()}
		byDate[days[i].Date] = &days[i]
	}
	for _, l := range b.logs {
		day, ok := byDate[l.Date]
		if !ok {
			continue
		}
		day.Logged++
		if l.Status == model.StatusDone {
			day.Done++
		}
	}
	for i := range days {
		if days[i].Logged > 0 {
			days[i].Percent = float64(days[i].Done) / float64(days[i].Logged) * 100
		}
	}
	return days
}

// Totals summarizes a book.
type Totals struct {
	Templates int `json:"templates"`
	Active    int `json:"active"`
	Logs      int `json:"logs"`
}

func Summarize(b *Book) Totals {
	totals := Totals{Templates: len(b.templates), Logs: len(b.logs)}
	for _, t := range b.templates {
		if t.Active && !t.IsArchived && !t.IsPaused {
			totals.Active++
		}
	}
	return totals
}
