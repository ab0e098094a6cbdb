// Package registration implements the agent signup wizard: the single form
// state, its per-step validation rules, step navigation and the submission
// hand-off to an AccountCreator.
package registration

import "fmt"

// Step is a wizard step. Each step owns one rule set.
type Step int

const (
	StepBasicInfo Step = iota + 1
	StepProfessional
	StepAccount
)

// TotalSteps is the number of wizard steps.
const TotalSteps = 3

// Steps lists the wizard steps in order.
func Steps() []Step {
	return []Step{StepBasicInfo, StepProfessional, StepAccount}
}

// Valid reports whether s is one of the defined steps.
func (s Step) Valid() bool {
	return s >= StepBasicInfo && s <= StepAccount
}

// Title returns the panel heading for the step.
func (s Step) Title() string {
	switch s {
	case StepBasicInfo:
		return "Basic Information"
	case StepProfessional:
		return "Professional Details"
	case StepAccount:
		return "Account Setup"
	default:
		return ""
	}
}

func (s Step) String() string {
	switch s {
	case StepBasicInfo:
		return "basic_info"
	case StepProfessional:
		return "professional"
	case StepAccount:
		return "account"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}
