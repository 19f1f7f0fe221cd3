// ABOUTME: Outbound one-way commands the dashboard sends to the simulation server.
// ABOUTME: No acknowledgement exists; the next pushed snapshot reflects the effect.
package wire

// Outbound event names.
const (
	CommandRebuild              = "rebuild"
	CommandSkipWaitForSynthesis = "skip_wait_for_synthesis"
	CommandChangeFIFOs          = "change_fifos"
)

// MinFIFODepth is the smallest depth the server accepts.
const MinFIFODepth = 2

// ChangeFIFOs requests new depths keyed by FIFO display name.
type ChangeFIFOs map[string]int
