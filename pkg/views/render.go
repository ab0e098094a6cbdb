package views

import (
	"embed"
	"html/template"
	"strings"

	"github.com/gabrielmiguelok/agentsignup/pkg/forms"
	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

//go:embed templates/*.html
var templateFS embed.FS

var signupTemplate = template.Must(template.New("views").Funcs(template.FuncMap{
	"fieldID": fieldID,
}).ParseFS(templateFS, "templates/*.html"))

func fieldID(name string) string {
	return "field-" + strings.ReplaceAll(name, ".", "-")
}

type pageData struct {
	Progress    []registration.StepProgress
	Step        registration.Step
	Title       string
	Fields      []forms.Field
	IsFirst     bool
	IsLast      bool
	Loading     bool
	SubmitError string

	ShowStrength  bool
	Strength      registration.Strength
	TimezoneQuery string

	Success   bool
	FirstName string
	Email     string
}

func (v *SignupView) pageData() pageData {
	state := v.ctrl.State()
	errs := v.ctrl.Errors()
	step := v.ctrl.Step()

	return pageData{
		Progress:    registration.Progress(step),
		Step:        step,
		Title:       step.Title(),
		Fields:      stepFields(step, state, errs, v.cfg.Catalog, v.timezones),
		IsFirst:     step == registration.StepBasicInfo,
		IsLast:      step == registration.StepAccount,
		Loading:     v.ctrl.Loading(),
		SubmitError: errs.Get(registration.FieldSubmit),

		ShowStrength:  step == registration.StepAccount && state.Password != "",
		Strength:      v.ctrl.PasswordStrength(),
		TimezoneQuery: v.tzQuery,

		Success:   v.ctrl.Succeeded(),
		FirstName: state.FirstName,
		Email:     state.Email,
	}
}
