package registration

import (
	"github.com/gabrielmiguelok/agentsignup/pkg/forms"
)

// Validation messages shown next to each field.
const (
	MsgFirstNameRequired      = "First name is required"
	MsgLastNameRequired       = "Last name is required"
	MsgEmailRequired          = "Email is required"
	MsgEmailInvalid           = "Please enter a valid email address"
	MsgPhoneRequired          = "Phone number is required"
	MsgStateRequired          = "Please select your state"
	MsgCityRequired           = "City is required"
	MsgBrokerageRequired      = "Please select your brokerage"
	MsgOtherBrokerageRequired = "Please enter your brokerage name"

	MsgLicenseRequired         = "License number is required"
	MsgExperienceRequired      = "Please select your experience level"
	MsgSpecializationsMin      = "Please select at least 2 specializations"
	MsgAuthorizeVerification   = "You must authorize license verification"
	MsgWebsiteScheme           = "Website must start with http:// or https://"
	MsgPasswordRequired        = "Password is required"
	MsgPasswordLength          = "Password must be at least 8 characters"
	MsgPasswordClasses         = "Password must contain uppercase, lowercase, number, and special character"
	MsgConfirmPasswordRequired = "Please confirm your password"
	MsgPasswordMismatch        = "Passwords do not match"
	MsgTimezoneRequired        = "Please select your timezone"
	MsgAgreeToTerms            = "You must agree to the terms and conditions"
	MsgAcknowledgeLicensed     = "You must confirm you are a licensed real estate agent"
)

// MinSpecializations is the number of distinct specializations step 2 needs.
const MinSpecializations = 2

// MinPasswordLength is counted in characters.
const MinPasswordLength = 8

var passwordClasses = []forms.CharClass{
	forms.ClassLower,
	forms.ClassUpper,
	forms.ClassDigit,
	forms.ClassSymbol,
}

var websiteSchemes = []string{"http://", "https://"}

// Rules checks every field owned by step and returns the resulting messages.
// Fields owned by other steps are never inspected.
func Rules(step Step, f FormState) forms.ErrorMap {
	c := forms.NewChecker()

	switch step {
	case StepBasicInfo:
		checkBasicInfo(c, f)
	case StepProfessional:
		checkProfessional(c, f)
	case StepAccount:
		checkAccount(c, f)
	}

	return c.Errors()
}

func checkBasicInfo(c *forms.Checker, f FormState) {
	c.Check(FieldFirstName, f.FirstName, forms.Required(MsgFirstNameRequired))
	c.Check(FieldLastName, f.LastName, forms.Required(MsgLastNameRequired))
	c.Check(FieldEmail, f.Email,
		forms.Required(MsgEmailRequired),
		forms.Email(MsgEmailInvalid),
	)
	c.Check(FieldPhone, f.Phone, forms.Required(MsgPhoneRequired))
	c.Require(FieldState, f.State != "", MsgStateRequired)
	c.Check(FieldCity, f.City, forms.Required(MsgCityRequired))
	c.Require(FieldBrokerage, f.Brokerage != "", MsgBrokerageRequired)

	if f.Brokerage == BrokerageOther {
		c.Check(FieldOtherBrokerage, f.OtherBrokerage, forms.Required(MsgOtherBrokerageRequired))
	}
}

func checkProfessional(c *forms.Checker, f FormState) {
	c.Check(FieldLicenseNumber, f.LicenseNumber, forms.Required(MsgLicenseRequired))
	c.Require(FieldExperience, f.Experience != "", MsgExperienceRequired)
	c.Check(FieldSpecializations, f.Specializations, forms.MinItems(MinSpecializations, MsgSpecializationsMin))
	c.Check(FieldAuthorizeVerification, f.AuthorizeVerification, forms.Checked(MsgAuthorizeVerification))
	c.Check(FieldWebsite, f.Website, forms.URLScheme(websiteSchemes, MsgWebsiteScheme))
}

func checkAccount(c *forms.Checker, f FormState) {
	c.Require(FieldPassword, f.Password != "", MsgPasswordRequired)
	c.Check(FieldPassword, f.Password,
		forms.MinLength(MinPasswordLength, MsgPasswordLength),
		forms.CharacterClasses(passwordClasses, MsgPasswordClasses),
	)
	c.Require(FieldConfirmPassword, f.ConfirmPassword != "", MsgConfirmPasswordRequired)
	c.Check(FieldConfirmPassword, f.ConfirmPassword, forms.EqualTo(f.Password, MsgPasswordMismatch))
	c.Require(FieldTimezone, f.Timezone != "", MsgTimezoneRequired)
	c.Check(FieldAgreeToTerms, f.AgreeToTerms, forms.Checked(MsgAgreeToTerms))
	c.Check(FieldAcknowledgeLicensed, f.AcknowledgeLicensed, forms.Checked(MsgAcknowledgeLicensed))
}
