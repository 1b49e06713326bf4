// Package schedule decides which address managed records should point at
// for a given wall-clock time.
package schedule

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Policy is a day/night address schedule.
//
// The day window is the half-open hour range [DayStartHour, DayEndHour).
// When DayStartHour > DayEndHour the window wraps past midnight. When the
// two hours are equal the day window is empty and NightIP always applies.
type Policy struct {
	DayStartHour int
	DayEndHour   int
	DayIP        string
	NightIP      string

	// Location is the clock used to read the hour. Nil uses the location
	// of the timestamp passed in.
	Location *time.Location
}

// DesiredAddress returns the address managed records should currently have.
func DesiredAddress(now time.Time, p Policy) string {
	return p.Desired(now)
}

// Desired returns the address managed records should have at now.
func (p Policy) Desired(now time.Time) string {
	if p.IsDay(p.hour(now)) {
		return p.DayIP
	}
	return p.NightIP
}

// IsDay reports whether hour (0-23) falls inside the day window.
func (p Policy) IsDay(hour int) bool {
	start, end := p.DayStartHour, p.DayEndHour
	switch {
	case start < end:
		return hour >= start && hour < end
	case start > end:
		return hour >= start || hour < end
	default:
		return false
	}
}

// NextTransition returns the start of the next hour at which the desired
// address changes. The zero time is returned for policies that never change.
func (p Policy) NextTransition(now time.Time) time.Time {
	if p.DayStartHour == p.DayEndHour {
		return time.Time{}
	}

	local := p.localize(now)
	current := p.IsDay(local.Hour())
	next := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, local.Location())
	for i := 0; i < 24; i++ {
		next = next.Add(time.Hour)
		if p.IsDay(next.Hour()) != current {
			return next
		}
	}
	return time.Time{}
}

// Managed returns the set of addresses this policy is allowed to overwrite.
func (p Policy) Managed() ManagedSet {
	return NewManagedSet(p.DayIP, p.NightIP)
}

// Validate checks hour bounds and that both addresses are distinct IPv4 addresses.
func (p Policy) Validate() error {
	var errs []string

	if p.DayStartHour < 0 || p.DayStartHour > 23 {
		errs = append(errs, fmt.Sprintf("day_start_hour must be between 0 and 23, got %d", p.DayStartHour))
	}
	if p.DayEndHour < 0 || p.DayEndHour > 23 {
		errs = append(errs, fmt.Sprintf("day_end_hour must be between 0 and 23, got %d", p.DayEndHour))
	}

	day, dayErr := parseIPv4(p.DayIP)
	if dayErr != nil {
		errs = append(errs, "day_ip: "+dayErr.Error())
	}
	night, nightErr := parseIPv4(p.NightIP)
	if nightErr != nil {
		errs = append(errs, "night_ip: "+nightErr.Error())
	}
	if dayErr == nil && nightErr == nil && day == night {
		errs = append(errs, "day_ip and night_ip must differ")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (p Policy) hour(now time.Time) int {
	return p.localize(now).Hour()
}

func (p Policy) localize(now time.Time) time.Time {
	if p.Location != nil {
		return now.In(p.Location)
	}
	return now
}

func parseIPv4(s string) (netip.Addr, error) {
	if s == "" {
		return netip.Addr{}, errors.New("required")
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid address %q", s)
	}
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%q is not an IPv4 address", s)
	}
	return addr, nil
}
