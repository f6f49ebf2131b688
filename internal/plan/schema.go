package plan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Action discriminates the operation variants proposed by the planner.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// MaxOperations caps how many operations a single plan may carry. Exceeding
// it is a validation failure, never silent truncation.
const MaxOperations = 10

const (
	datePattern = `^\d{4}-\d{2}-\d{2}$`
	timePattern = `^([01]\d|2[0-3]):[0-5]\d$`
)

var (
	dateRe = regexp.MustCompile(datePattern)
	timeRe = regexp.MustCompile(timePattern)
)

// Operation is one proposed calendar mutation. Optional fields use pointers
// so an update can distinguish "not mentioned" from "set to empty".
type Operation struct {
	Action Action  `json:"action"`
	ID     int     `json:"id,omitempty"`
	Title  *string `json:"title,omitempty"`
	Date   *string `json:"date,omitempty"`
	Time   *string `json:"time,omitempty"`
	Type   *string `json:"type,omitempty"`
}

// HasChanges reports whether any non-id field is present.
func (o Operation) HasChanges() bool {
	return o.Title != nil || o.Date != nil || o.Time != nil || o.Type != nil
}

// Plan is a validated batch of proposed mutations plus the model's stated
// intent. Plans are transient: produced per request, applied, never stored.
type Plan struct {
	Summary    string      `json:"summary"`
	Operations []Operation `json:"operations"`
}

// Violation identifies which field of which operation broke which rule.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError aggregates every violation found in a candidate plan.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "plan validation failed"
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, rule, message string) {
	e.Violations = append(e.Violations, Violation{Field: field, Rule: rule, Message: message})
}

// Validate enforces the structural contract for a plan. It is a pure
// function: the same candidate always yields the same violations.
func Validate(p *Plan) *ValidationError {
	verr := &ValidationError{}
	if p == nil {
		verr.add("plan", "required", "plan is missing")
		return verr
	}

	if strings.TrimSpace(p.Summary) == "" {
		verr.add("summary", "required", "summary must be a non-empty string")
	}
	if len(p.Operations) > MaxOperations {
		verr.add("operations", "max", fmt.Sprintf("at most %d operations are allowed, got %d", MaxOperations, len(p.Operations)))
	}

	for i, op := range p.Operations {
		validateOperation(verr, i, op)
	}

	if len(verr.Violations) == 0 {
		return nil
	}
	return verr
}

func validateOperation(verr *ValidationError, index int, op Operation) {
	field := func(name string) string {
		return fmt.Sprintf("operations[%d].%s", index, name)
	}

	switch op.Action {
	case ActionCreate:
		if op.ID != 0 {
			verr.add(field("id"), "forbidden", "create operations must not carry an id")
		}
	case ActionUpdate:
		if op.ID <= 0 {
			verr.add(field("id"), "required", "update operations require a positive integer id")
		}
		if !op.HasChanges() {
			verr.add(field("action"), "no_changes", "update operations must change at least one of title, date, time, or type")
		}
	case ActionDelete:
		if op.ID <= 0 {
			verr.add(field("id"), "required", "delete operations require a positive integer id")
		}
	default:
		verr.add(field("action"), "enum", fmt.Sprintf("action must be one of %q, %q, %q", ActionCreate, ActionUpdate, ActionDelete))
	}

	if op.Date != nil && !dateRe.MatchString(*op.Date) {
		verr.add(field("date"), "format", "date must match YYYY-MM-DD")
	}
	if op.Time != nil && !timeRe.MatchString(*op.Time) {
		verr.add(field("time"), "format", "time must be 24-hour HH:MM")
	}
}

// Parse extracts a JSON document from raw model output and validates it as a
// plan. Code fences and surrounding prose are tolerated; anything that fails
// to decode or validate is reported as a ValidationError so the caller can
// drive the repair pass.
func Parse(raw string) (*Plan, *ValidationError) {
	payload := extractJSON(raw)
	if payload == "" {
		verr := &ValidationError{}
		verr.add("plan", "json", "response contains no JSON object")
		return nil, verr
	}

	var p Plan
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		verr := &ValidationError{}
		verr.add("plan", "json", fmt.Sprintf("response is not valid JSON: %v", err))
		return nil, verr
	}

	if verr := Validate(&p); verr != nil {
		return nil, verr
	}
	return &p, nil
}

// extractJSON trims markdown code fences and any prose around the outermost
// JSON object, mirroring what structured-output parsers do before decoding.
func extractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		text = strings.TrimPrefix(text, "json")
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

// operationField describes one schema field for the format instructions. The
// validator above and the instructions below both read from this table so
// the prompt can never drift from what Validate enforces.
type operationField struct {
	Name        string
	Type        string
	Description string
}

var operationFields = []operationField{
	{"action", "string", fmt.Sprintf(`one of %q, %q, %q`, ActionCreate, ActionUpdate, ActionDelete)},
	{"id", "integer", "existing event id; required for update and delete, forbidden for create"},
	{"title", "string", "event title"},
	{"date", "string", "calendar date matching " + datePattern},
	{"time", "string", "24-hour time matching " + timePattern},
	{"type", "string", "free-form category such as meeting or social"},
}

// FormatInstructions renders the textual contract handed to the model. It is
// generated from the same field table the validator uses.
func FormatInstructions() string {
	var b strings.Builder
	b.WriteString("Respond with a single JSON object and nothing else. The object has exactly two keys:\n")
	b.WriteString(`- "summary": non-empty string explaining why the changes were proposed` + "\n")
	b.WriteString(fmt.Sprintf(`- "operations": array of 0 to %d operation objects`+"\n\n", MaxOperations))
	b.WriteString("Each operation object supports these fields:\n")
	for _, f := range operationFields {
		b.WriteString(fmt.Sprintf("- %q (%s): %s\n", f.Name, f.Type, f.Description))
	}
	b.WriteString("\nRules:\n")
	b.WriteString("- update operations must include at least one of title, date, time, or type\n")
	b.WriteString("- keep existing event ids exactly as given when updating or deleting\n")
	b.WriteString("- do not wrap the JSON in markdown fences or add commentary\n")
	return b.String()
}
