// ABOUTME: Icons and spinner frames used to draw pipeline stage states in the terminal.
// ABOUTME: Running stages animate through the spinner; other states use bracket markers.
package tui

import "github.com/2389-research/simwatch/pipeline"

// SpinnerFrames contains the Braille-dot animation frames for running stages.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// stateIcon returns the marker for a stage. frame selects the spinner frame
// for running stages.
func stateIcon(state pipeline.StageState, frame int) string {
	switch state {
	case pipeline.StageIdle:
		return "[ ]"
	case pipeline.StageRunning:
		if frame < 0 {
			frame = -frame
		}
		return "[" + SpinnerFrames[frame%len(SpinnerFrames)] + "]"
	case pipeline.StageSucceeded:
		return "[*]"
	case pipeline.StageFailed:
		return "[!]"
	default:
		return "[?]"
	}
}
