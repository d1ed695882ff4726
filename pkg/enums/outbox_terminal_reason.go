package enums

// OutboxTerminalReason explains why the publisher stopped retrying a row.
type OutboxTerminalReason string

const (
	OutboxTerminalMaxAttempts  OutboxTerminalReason = "max_attempts"
	OutboxTerminalNonRetryable OutboxTerminalReason = "non_retryable"
)

func (r OutboxTerminalReason) IsValid() bool {
	switch r {
	case OutboxTerminalMaxAttempts, OutboxTerminalNonRetryable:
		return true
	}
	return false
}
