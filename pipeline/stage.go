// ABOUTME: Defines the fixed, ordered set of pipeline stages reported by the simulation server.
// ABOUTME: Provides wire names, parsing, and the human-readable labels used by the status views.
package pipeline

// Stage identifies one phase of the upstream synthesis and simulation
// pipeline. The numeric order is the declared order and drives summary
// selection.
type Stage int

const (
	WaitingForNextSynthesis Stage = iota
	AnalyzingProject
	WaitingForBitcode
	GeneratingSupportCode
	LinkingBitcode
	CompilingBitcode
	LinkingTestbench
	RunningTestbench
	ParsingScheduleData
	ResolvingTrace
	RunningSimulationActual
	RunningSimulationOptimal

	stageCount
)

// Stages lists every stage in declared order.
var Stages = [stageCount]Stage{
	WaitingForNextSynthesis,
	AnalyzingProject,
	WaitingForBitcode,
	GeneratingSupportCode,
	LinkingBitcode,
	CompilingBitcode,
	LinkingTestbench,
	RunningTestbench,
	ParsingScheduleData,
	ResolvingTrace,
	RunningSimulationActual,
	RunningSimulationOptimal,
}

type stageText struct {
	wire    string
	label   string
	running string
	failed  string
}

var stageTexts = [stageCount]stageText{
	{"WAITING_FOR_NEXT_SYNTHESIS", "Waiting for next C synthesis run", "Waiting for next synthesis", "Error waiting for next synthesis"},
	{"ANALYZING_PROJECT", "Analyzing project", "Analyzing project", "Error analyzing project"},
	{"WAITING_FOR_BITCODE", "Waiting for bitcode to be generated", "Waiting for bitcode", "Error waiting for bitcode"},
	{"GENERATING_SUPPORT_CODE", "Generating support code", "Generating support code", "Error generating support code"},
	{"LINKING_BITCODE", "Linking bitcode", "Linking bitcode", "Error linking bitcode"},
	{"COMPILING_BITCODE", "Compiling bitcode", "Compiling bitcode", "Error compiling bitcode"},
	{"LINKING_TESTBENCH", "Linking testbench", "Linking testbench", "Error linking testbench"},
	{"RUNNING_TESTBENCH", "Running testbench", "Running testbench", "Error running testbench"},
	{"PARSING_SCHEDULE_DATA", "Parsing schedule data from C synthesis", "Parsing schedule data", "Error parsing schedule data"},
	{"RESOLVING_TRACE", "Resolving dynamic schedule from trace", "Resolving dynamic schedule", "Error resolving dynamic schedule"},
	{"RUNNING_SIMULATION_ACTUAL", "Calculating stalls", "Calculating stalls", "Error calculating stalls"},
	{"RUNNING_SIMULATION_OPTIMAL", "Calculating minimum stalls", "Calculating minimum stalls", "Error calculating minimum stalls"},
}

var stagesByWire = func() map[string]Stage {
	m := make(map[string]Stage, stageCount)
	for _, s := range Stages {
		m[stageTexts[s].wire] = s
	}
	return m
}()

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	return s >= 0 && s < stageCount
}

// String returns the wire identifier, e.g. "RUNNING_TESTBENCH".
func (s Stage) String() string {
	if !s.Valid() {
		return "UNKNOWN"
	}
	return stageTexts[s].wire
}

// Label is the long description shown on the status page.
func (s Stage) Label() string {
	if !s.Valid() {
		return "Unknown stage"
	}
	return stageTexts[s].label
}

// RunningPhrase is the short summary shown while the stage runs.
func (s Stage) RunningPhrase() string {
	if !s.Valid() {
		return "Working"
	}
	return stageTexts[s].running
}

// ErrorPhrase is the short summary shown when the stage failed.
func (s Stage) ErrorPhrase() string {
	if !s.Valid() {
		return "Error"
	}
	return stageTexts[s].failed
}

// ParseStage maps a wire identifier to its Stage.
func ParseStage(name string) (Stage, bool) {
	s, ok := stagesByWire[name]
	return s, ok
}
