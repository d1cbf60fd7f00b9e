// Package forms describes the four application steps: which draft fields and
// file slots each owns, how a field edit is applied and how a step is
// checked before moving on.
package forms

import (
	"fmt"
	"strings"

	"loan-workbench/internal/common/errors"
	"loan-workbench/internal/common/validation"
	"loan-workbench/internal/models"
)

// Field is one editable input of a step.
type Field struct {
	Name     string
	Label    string
	Options  []string
	Required bool

	get  func(*models.Draft) *string
	prop validation.Property
}

// Step is one page of the application form bound to a draft section.
type Step struct {
	Number  int
	Section models.Section
	Title   string

	fields []Field
	slots  []models.FileSlot
}

func (s *Step) Fields() []Field {
	return s.fields
}

// Slots returns the file slots attached on this step.
func (s *Step) Slots() []models.FileSlot {
	return s.slots
}

func (s *Step) Field(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Values returns the step's section of d keyed by field name.
func (s *Step) Values(d models.Draft) map[string]string {
	out := make(map[string]string, len(s.fields))
	for _, f := range s.fields {
		out[f.Name] = *f.get(&d)
	}
	return out
}

// Set applies a single-field update to this step's section of d. Position is
// normalized as it is committed.
func (s *Step) Set(d *models.Draft, name, value string) error {
	f, ok := s.Field(name)
	if !ok {
		return errors.NewValidationFailedError([]string{
			fmt.Sprintf("%s has no field %q", s.Title, name),
		})
	}
	if s.Section == models.SectionEmployment && name == "position" {
		value = validation.NormalizePosition(value)
	}
	*f.get(d) = value
	return nil
}

// Check reports per-field problems for this step.
func (s *Step) Check(d models.Draft) *validation.ValidationResult {
	schema := validation.JSONSchema{
		Type:       "object",
		Properties: make(map[string]validation.Property, len(s.fields)),
	}
	input := make(map[string]interface{}, len(s.fields))
	for _, f := range s.fields {
		schema.Properties[f.Name] = f.prop
		if f.Required {
			schema.Required = append(schema.Required, f.Name)
		}
		input[f.Name] = *f.get(&d)
	}
	return validation.ValidateInput(input, schema)
}

// Hints returns advisory notes that do not block the step.
func (s *Step) Hints(d models.Draft) []string {
	if s.Section != models.SectionEmployment {
		return nil
	}
	pos := d.Employment.Position
	if strings.TrimSpace(pos) == "" || validation.IsKnownJob(pos) {
		return nil
	}
	return []string{fmt.Sprintf("position %q will be scored as %s", validation.NormalizePosition(pos), validation.JobOthers)}
}

// Steps lists the form in order. Steps[i].Number == i+1.
var Steps = []*Step{Personal, Employment, Other, CoMaker}

// ByNumber returns step n (1-4).
func ByNumber(n int) (*Step, error) {
	if n < 1 || n > len(Steps) {
		return nil, errors.NewInvalidStepError(n)
	}
	return Steps[n-1], nil
}

// ForSlot returns the step that owns slot, or nil.
func ForSlot(slot models.FileSlot) *Step {
	for _, s := range Steps {
		for _, owned := range s.slots {
			if owned == slot {
				return s
			}
		}
	}
	return nil
}

// FindField resolves a field by "section.name" or, when unambiguous, by its
// bare name.
func FindField(ref string) (*Step, Field, error) {
	if section, name, ok := strings.Cut(ref, "."); ok {
		for _, s := range Steps {
			if string(s.Section) == section {
				if f, ok := s.Field(name); ok {
					return s, f, nil
				}
			}
		}
		return nil, Field{}, fmt.Errorf("unknown field %q", ref)
	}

	var (
		found *Step
		field Field
	)
	for _, s := range Steps {
		if f, ok := s.Field(ref); ok {
			if found != nil {
				return nil, Field{}, fmt.Errorf("field %q is ambiguous; use %s.%s or %s.%s",
					ref, found.Section, ref, s.Section, ref)
			}
			found, field = s, f
		}
	}
	if found == nil {
		return nil, Field{}, fmt.Errorf("unknown field %q", ref)
	}
	return found, field, nil
}
