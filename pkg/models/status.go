package models

// UnitStatus represents the terminal outcome of processing one crawl unit
// within a run.
type UnitStatus string

const (
	UnitStatusUnset       UnitStatus = ""            // Zero value = unset/unknown
	UnitStatusSuccess     UnitStatus = "success"     // Fetched, extracted and recorded
	UnitStatusFailed      UnitStatus = "failed"      // Terminal failure, recorded in the checkpoint
	UnitStatusInterrupted UnitStatus = "interrupted" // Cancelled mid-run; stays pending for the next run
)

// String implements fmt.Stringer for logging
func (s UnitStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// Terminal reports whether the status mutates the checkpoint. Interrupted
// units are deliberately neither completed nor failed.
func (s UnitStatus) Terminal() bool {
	return s == UnitStatusSuccess || s == UnitStatusFailed
}
