package controller

// Item is an immutable snapshot of one controller-managed unit. Fields beyond
// ID are populated only when the corresponding Field was requested; callers
// take a fresh snapshot for each decision point that needs current state.
type Item struct {
	ID          ID
	Name        string
	Path        string
	Directory   string
	SizeBytes   int64
	IsMultiFile bool
	Label       string
	Complete    bool
	// CompletedAt is the unix-seconds completion timestamp, zero when the
	// controller has not recorded one.
	CompletedAt int64
}

// Field selects which item attributes a fetch should populate.
type Field int

const (
	FieldName Field = iota
	FieldPath
	FieldDirectory
	FieldSize
	FieldMultiFile
	FieldLabel
	FieldComplete
	FieldCompletedAt
)

func (f Field) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldPath:
		return "path"
	case FieldDirectory:
		return "directory"
	case FieldSize:
		return "size"
	case FieldMultiFile:
		return "multi_file"
	case FieldLabel:
		return "label"
	case FieldComplete:
		return "complete"
	case FieldCompletedAt:
		return "completed_at"
	default:
		return "unknown"
	}
}

// InfoFields covers everything the copy and relocation paths need.
var InfoFields = []Field{
	FieldName, FieldPath, FieldDirectory, FieldSize, FieldMultiFile, FieldLabel,
	FieldComplete,
}

// CandidateFields extends InfoFields with the completion timestamp used by
// the reclamation candidate selector.
var CandidateFields = []Field{
	FieldName, FieldPath, FieldDirectory, FieldSize, FieldMultiFile, FieldLabel,
	FieldComplete, FieldCompletedAt,
}
