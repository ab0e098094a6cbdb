package registration

// StepStatus is the rail state of one step relative to the current step.
type StepStatus string

const (
	StatusCompleted StepStatus = "completed"
	StatusActive    StepStatus = "active"
	StatusUpcoming  StepStatus = "upcoming"
)

// StepProgress is one entry of the progress rail.
type StepProgress struct {
	Step   Step
	Title  string
	Status StepStatus
}

// Progress maps the current step to the progress rail.
func Progress(current Step) []StepProgress {
	out := make([]StepProgress, 0, TotalSteps)
	for _, s := range Steps() {
		status := StatusUpcoming
		switch {
		case s < current:
			status = StatusCompleted
		case s == current:
			status = StatusActive
		}
		out = append(out, StepProgress{Step: s, Title: s.Title(), Status: status})
	}
	return out
}
