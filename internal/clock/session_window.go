package clock

import (
	"fmt"
	"time"
)

// SessionWindow holds the Eastern-Time session boundaries for one trading
// date, converted to UTC milliseconds.
type SessionWindow struct {
	Date          string // YYYY-MM-DD, America/New_York
	PremarketUTC  int64
	ZoneStartUTC  int64
	ZoneEndUTC    int64
	ExecutionEndUTC int64
}

// WindowPreset names an overridable session-window template.
type WindowPreset struct {
	Premarket    string // HH:MM in America/New_York
	ZoneStart    string
	ZoneEnd      string
	ExecutionEnd string
}

// DefaultPreset is the standard premarket/zone/execution window template.
var DefaultPreset = WindowPreset{
	Premarket:    "04:30",
	ZoneStart:    "09:30",
	ZoneEnd:      "10:00",
	ExecutionEnd: "12:00",
}

// HolidayCalendar reports full market closures and early-close truncations.
// StaticHolidayCalendar is the provided implementation; it holds no dates
// of its own, only the ones its caller supplies.
type HolidayCalendar interface {
	// IsMarketClosed reports whether the exchange is fully closed on date
	// (YYYY-MM-DD, America/New_York).
	IsMarketClosed(date string) bool
	// EarlyCloseTime returns the truncated close time (HH:MM, America/New_York)
	// for date if it is an early-close day, and ok=true.
	EarlyCloseTime(date string) (hhmm string, ok bool)
}

// StaticHolidayCalendar is a fixed lookup table rather than a computed
// calendar, injected so callers can supply their own closure schedule.
type StaticHolidayCalendar struct {
	closed     map[string]bool
	earlyClose map[string]string
}

func NewStaticHolidayCalendar(closed map[string]bool, earlyClose map[string]string) *StaticHolidayCalendar {
	if closed == nil {
		closed = map[string]bool{}
	}
	if earlyClose == nil {
		earlyClose = map[string]string{}
	}
	return &StaticHolidayCalendar{closed: closed, earlyClose: earlyClose}
}

func (c *StaticHolidayCalendar) IsMarketClosed(date string) bool {
	return c.closed[date]
}

func (c *StaticHolidayCalendar) EarlyCloseTime(date string) (string, bool) {
	v, ok := c.earlyClose[date]
	return v, ok
}

var easternLocation = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// America/New_York ships with the tzdata most Go toolchains bundle;
		// falling back to a fixed EST offset keeps session math usable even
		// without a system zoneinfo database.
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// ComputeWindow builds the UTC-ms session boundaries for date using preset,
// truncating executionEnd on early-close days per cal. An early-close time
// at or after the preset's executionEnd leaves it unchanged (both are
// compared as zero-padded HH:MM strings).
func ComputeWindow(date string, preset WindowPreset, cal HolidayCalendar) (SessionWindow, error) {
	executionEnd := preset.ExecutionEnd
	if cal != nil {
		if hhmm, ok := cal.EarlyCloseTime(date); ok && hhmm < executionEnd {
			executionEnd = hhmm
		}
	}
	premarket, err := parseETTime(date, preset.Premarket)
	if err != nil {
		return SessionWindow{}, fmt.Errorf("parse premarket time: %w", err)
	}
	zoneStart, err := parseETTime(date, preset.ZoneStart)
	if err != nil {
		return SessionWindow{}, fmt.Errorf("parse zoneStart time: %w", err)
	}
	zoneEnd, err := parseETTime(date, preset.ZoneEnd)
	if err != nil {
		return SessionWindow{}, fmt.Errorf("parse zoneEnd time: %w", err)
	}
	execEnd, err := parseETTime(date, executionEnd)
	if err != nil {
		return SessionWindow{}, fmt.Errorf("parse executionEnd time: %w", err)
	}
	return SessionWindow{
		Date:            date,
		PremarketUTC:    premarket.UnixMilli(),
		ZoneStartUTC:    zoneStart.UnixMilli(),
		ZoneEndUTC:      zoneEnd.UnixMilli(),
		ExecutionEndUTC: execEnd.UnixMilli(),
	}, nil
}

func parseETTime(date, hhmm string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", date+" "+hhmm, easternLocation)
}

// DateET converts a UTC-ms timestamp into its America/New_York calendar
// date string. All internal timestamps stay UTC ms; this conversion only
// happens at session-window boundaries.
func DateET(utcMs int64) string {
	return time.UnixMilli(utcMs).In(easternLocation).Format("2006-01-02")
}
