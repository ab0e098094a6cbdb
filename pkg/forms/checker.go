package forms

// Checker accumulates validation results for one pass over a set of fields.
// Each field keeps only the first failing message.
type Checker struct {
	errors ErrorMap
}

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{errors: make(ErrorMap)}
}

// Check runs validators against value in order and records the message of
// the first one that fails.
func (c *Checker) Check(field string, value any, validators ...Validator) *Checker {
	if c.errors.Has(field) {
		return c
	}
	for _, v := range validators {
		if err := v.Validate(value); err != nil {
			c.errors.Set(field, v.Message())
			return c
		}
	}
	return c
}

// Require records message for field when ok is false.
func (c *Checker) Require(field string, ok bool, message string) *Checker {
	if !ok && !c.errors.Has(field) {
		c.errors.Set(field, message)
	}
	return c
}

// Valid reports whether no field failed.
func (c *Checker) Valid() bool {
	return c.errors.Len() == 0
}

// Errors returns the accumulated messages.
func (c *Checker) Errors() ErrorMap {
	return c.errors.Clone()
}
