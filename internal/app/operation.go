package app

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks a CLI command that may mutate the catalog.
// Operations are created in memory with ID=0. Only mutating commands
// persist them (giving them an auto-increment ID from the database).
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Status     string
}

// NewOperation creates a new in-memory operation.
func NewOperation(name string) *Operation {
	return &Operation{
		Name:   name,
		Status: StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}
