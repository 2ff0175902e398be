package core

// Stage is a named phase of a learning session's workflow. The set is closed;
// Completed is terminal. Progress is not a strict total order: a session in
// StageValidating may legally backtrack to StageLearning after a weak quiz.
type Stage string

const (
	// StageIdle is the initial stage before any plan exists.
	StageIdle Stage = "idle"
	// StagePlanning is entered while the Planner produces a plan.
	StagePlanning Stage = "planning"
	// StageLearning is the tutoring phase.
	StageLearning Stage = "learning"
	// StageValidating is the quiz phase.
	StageValidating Stage = "validating"
	// StageReporting is entered once a quiz has been graded well enough.
	StageReporting Stage = "reporting"
	// StageCompleted is terminal; completed sessions are archived, not deleted.
	StageCompleted Stage = "completed"
)

// Valid reports whether s is a member of the closed stage set.
func (s Stage) Valid() bool {
	switch s {
	case StageIdle, StagePlanning, StageLearning, StageValidating, StageReporting, StageCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s Stage) Terminal() bool { return s == StageCompleted }
