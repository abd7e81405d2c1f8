package service

import "fmt"

// UrgentMillis is the remaining time under which the countdown is shown as urgent.
const UrgentMillis = 10000

// FormatCountdown renders milliseconds as mm:ss.
func FormatCountdown(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func (v View) Urgent() bool {
	return v.Phase == PhaseUnanswered && v.RemainingMillis < UrgentMillis
}

func (v View) Countdown() string {
	return FormatCountdown(v.RemainingMillis)
}
