package relocation

// State identifies the pipeline stage a relocation is in. It is carried in
// results and logs so a failed run names the stage that broke.
type State int

const (
	StateIdle State = iota
	StateDestinationCheck
	StateCopying
	StateVerifying
	StateControllerRepoint
	StateSourceSafetyCheck
	StateSourceDelete
	StateControllerResume
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDestinationCheck:
		return "destination-check"
	case StateCopying:
		return "copying"
	case StateVerifying:
		return "verifying"
	case StateControllerRepoint:
		return "controller-repoint"
	case StateSourceSafetyCheck:
		return "source-safety-check"
	case StateSourceDelete:
		return "source-delete"
	case StateControllerResume:
		return "controller-resume"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
