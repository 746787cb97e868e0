package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/go-playground/validator/v10"
)

var (
	validate    = validator.New()
	dicePattern = regexp.MustCompile(`^(\d+)?d(\d+)([+-]\d+)?$`)
)

// DiceSpec is a parsed NdM+K notation.
type DiceSpec struct {
	Count    int `validate:"min=1,max=100"`
	Sides    int `validate:"min=1,max=1000"`
	Modifier int `validate:"min=-100000,max=100000"`
}

func (s DiceSpec) String() string {
	out := fmt.Sprintf("%dd%d", s.Count, s.Sides)
	if s.Modifier != 0 {
		out += fmt.Sprintf("%+d", s.Modifier)
	}
	return out
}

func ParseDice(notation string) (DiceSpec, error) {
	if notation == "" {
		return DiceSpec{Count: 1, Sides: 6}, nil
	}
	match := dicePattern.FindStringSubmatch(strings.ToLower(notation))
	if match == nil {
		return DiceSpec{}, &ArgumentError{Reason: "Invalid dice notation. Examples: `1d6`, `2d20`, `3d10+5`"}
	}
	spec := DiceSpec{Count: 1}
	var err error
	if match[1] != "" {
		if spec.Count, err = strconv.Atoi(match[1]); err != nil {
			return DiceSpec{}, &ArgumentError{Reason: "Too many dice! Max 100."}
		}
	}
	if spec.Sides, err = strconv.Atoi(match[2]); err != nil {
		return DiceSpec{}, &ArgumentError{Reason: "Too many sides! Max 1000."}
	}
	if match[3] != "" {
		if spec.Modifier, err = strconv.Atoi(match[3]); err != nil {
			return DiceSpec{}, &ArgumentError{Reason: "Invalid modifier."}
		}
	}
	if err := validate.Struct(spec); err != nil {
		return DiceSpec{}, diceError(err)
	}
	return spec, nil
}

func diceError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		switch fieldErrs[0].Field() {
		case "Count":
			return &ArgumentError{Reason: "Dice count must be between 1 and 100."}
		case "Sides":
			return &ArgumentError{Reason: "Dice sides must be between 1 and 1000."}
		}
	}
	return &ArgumentError{Reason: "Invalid modifier."}
}

// Roll draws every die with intn, which returns a value in [0, n).
func (s DiceSpec) Roll(intn func(int) int) (total int, rolls []int) {
	rolls = make([]int, s.Count)
	for i := range rolls {
		rolls[i] = intn(s.Sides) + 1
		total += rolls[i]
	}
	return total + s.Modifier, rolls
}
