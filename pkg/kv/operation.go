package kv

import "fmt"

// OpKind is the kind of an Operation.
type OpKind int

const (
	OpUnknown OpKind = iota
	OpSave
	OpGet
	OpDelete
)

// String returns the wire keyword for the kind.
func (k OpKind) String() string {
	switch k {
	case OpSave:
		return "SAVE"
	case OpGet:
		return "GET"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// ParseOpKind maps a keyword such as "SAVE" to its OpKind.
// Matching is exact; "save" is not recognised.
func ParseOpKind(s string) (OpKind, error) {
	switch s {
	case "SAVE":
		return OpSave, nil
	case "GET":
		return OpGet, nil
	case "DELETE":
		return OpDelete, nil
	default:
		return OpUnknown, fmt.Errorf("unknown operation %q: %w", s, ErrMalformed)
	}
}

// Operation is a normalized save/get/delete request, independent of the
// ingress surface it arrived on. Value is only meaningful for OpSave.
type Operation struct {
	Kind  OpKind
	Key   string
	Value string
}

// Validate checks that the operation can be routed to a backend.
func (op Operation) Validate() error {
	if op.Kind == OpUnknown {
		return fmt.Errorf("operation kind is required: %w", ErrMalformed)
	}
	if op.Key == "" {
		return fmt.Errorf("%s: key is required: %w", op.Kind, ErrMalformed)
	}
	return nil
}

// Result is the successful outcome of an Operation.
type Result struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Deleted bool   `json:"is_deleted,omitempty"`
}
