package pool

import (
	"fmt"

	"github.com/Full-finger/Loquat-sub001/errors"
)

// Type identifies one of the nine pipeline stages. The numeric order is the
// processing order.
type Type int

// Pipeline stages in processing order.
const (
	PreInput Type = iota
	Input
	InputMiddle
	PreProcess
	ProcessMiddle
	Process
	PostProcess
	Output
	PostOutput
)

var typeNames = [...]string{
	PreInput:      "pre_input",
	Input:         "input",
	InputMiddle:   "input_middle",
	PreProcess:    "pre_process",
	ProcessMiddle: "process_middle",
	Process:       "process",
	PostProcess:   "post_process",
	Output:        "output",
	PostOutput:    "post_output",
}

// Types returns every stage in processing order.
func Types() []Type {
	out := make([]Type, len(typeNames))
	for i := range typeNames {
		out[i] = Type(i)
	}
	return out
}

// Valid reports whether t is one of the nine stages.
func (t Type) Valid() bool {
	return t >= PreInput && t <= PostOutput
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("pool_type(%d)", int(t))
	}
	return typeNames[t]
}

// AllowsThirdParty reports whether plugins may register workers at t.
// Only Input, PreProcess, Process and Output are open; the remaining
// stages are reserved for framework-internal workers.
func (t Type) AllowsThirdParty() bool {
	switch t {
	case Input, PreProcess, Process, Output:
		return true
	default:
		return false
	}
}

// ParseType converts a snake_case stage name back to a Type.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, errors.InvalidFormat("pool", "ParseType", fmt.Sprintf("unknown pool type %q", s))
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, errors.InvalidFormat("pool", "MarshalText", fmt.Sprintf("invalid pool type %d", int(t)))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
