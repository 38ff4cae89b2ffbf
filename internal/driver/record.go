package driver

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/ir-emitter/internal/camera"
)

// Control is the payload of one UVC extension-unit SET_CUR query.
// It is stored in YAML as a list of byte values.
type Control []byte

// MarshalYAML renders the control as a flow sequence of integers.
func (c Control) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, b := range c {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!int",
			Value: fmt.Sprintf("%d", b),
		})
	}
	return node, nil
}

// UnmarshalYAML accepts a sequence of integers in 0..255.
func (c *Control) UnmarshalYAML(value *yaml.Node) error {
	var ints []int
	if err := value.Decode(&ints); err != nil {
		return fmt.Errorf("control must be a list of bytes: %w", err)
	}
	out := make(Control, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("control byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*c = out
	return nil
}

// String renders the control as space-separated decimal bytes.
func (c Control) String() string {
	parts := make([]string, len(c))
	for i, b := range c {
		parts[i] = fmt.Sprintf("%d", b)
	}
	return strings.Join(parts, " ")
}

// Instruction is one step of an activation pattern.
type Instruction struct {
	Unit     uint8   `yaml:"unit"`
	Selector uint8   `yaml:"selector"`
	Control  Control `yaml:"control"`
}

// Record is the persisted activation driver of one device.
type Record struct {
	// Device is the by-path device the pattern was discovered on.
	Device string `yaml:"device"`

	// Emitters is the number of emitters the search was asked for.
	Emitters int `yaml:"emitters"`

	// NegAnswerLimit is the limit the search ran with. -1 means unlimited.
	NegAnswerLimit int `yaml:"neg_answer_limit"`

	// Success marks a record produced by a search that found a pattern.
	// A record with Success false is treated as absent.
	Success bool `yaml:"success"`

	// Identity is filled in after configuration and feeds the udev rule.
	Identity *camera.Identity `yaml:"identity,omitempty"`

	// Pattern is replayed in order against the device.
	Pattern []Instruction `yaml:"pattern"`
}

// Validate checks that the record can be applied.
func (r Record) Validate() error {
	var errs []string

	if r.Device == "" {
		errs = append(errs, "device is required")
	}
	if r.Emitters < 1 {
		errs = append(errs, "emitters must be at least 1")
	}
	if r.Success && len(r.Pattern) == 0 {
		errs = append(errs, "a successful record needs a pattern")
	}
	for i, in := range r.Pattern {
		if len(in.Control) == 0 {
			errs = append(errs, fmt.Sprintf("pattern[%d].control is empty", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(errs, "; "))
	}
	return nil
}

// clone returns a deep copy so callers never share store state.
func (r Record) clone() Record {
	out := r
	if r.Identity != nil {
		id := *r.Identity
		out.Identity = &id
	}
	if r.Pattern != nil {
		out.Pattern = make([]Instruction, len(r.Pattern))
		for i, in := range r.Pattern {
			out.Pattern[i] = Instruction{
				Unit:     in.Unit,
				Selector: in.Selector,
				Control:  append(Control(nil), in.Control...),
			}
		}
	}
	return out
}
