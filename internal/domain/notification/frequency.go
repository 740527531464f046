package notification

// Frequency is a notification cadence. Each cadence carries its own
// last-sent gate state on the subscriber record.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

func (f Frequency) IsValid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}
