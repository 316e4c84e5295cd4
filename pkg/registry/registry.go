// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "afh-workers/internal/common/errors"
	"afh-workers/internal/common/validation"
)

var (
	ErrActivityExists   = errors.New("activity already exists")
	ErrActivityNotFound = errors.New("activity not found")
	ErrUnknownField     = errors.New("unknown field")
)

// Load reads a registry file.
func Load(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// LoadOrNew is Load, returning an empty registry when path does not exist.
func LoadOrNew(path string) (*ActivityRegistry, error) {
	reg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return &ActivityRegistry{Version: "1.0.0", Activities: []Activity{}}, nil
	}
	return reg, err
}

// Save writes reg to path, stamping LastUpdated.
func Save(reg *ActivityRegistry, path string, now time.Time) error {
	reg.LastUpdated = now.UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Find returns the activity with id.
func (r *ActivityRegistry) Find(id string) (*Activity, error) {
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			return &r.Activities[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, id)
}

// Add appends a new activity, filling empty schemas and lists.
func (r *ActivityRegistry) Add(a Activity) error {
	if _, err := r.Find(a.ID); err == nil {
		return fmt.Errorf("%w: %s", ErrActivityExists, a.ID)
	}
	if a.InputSchema == nil {
		a.InputSchema = map[string]interface{}{}
	}
	if a.OutputSchema == nil {
		a.OutputSchema = map[string]interface{}{}
	}
	if a.ErrorCodes == nil {
		a.ErrorCodes = []string{}
	}
	if a.Workflows == nil {
		a.Workflows = []string{}
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	r.Activities = append(r.Activities, a)
	return nil
}

// Update sets one scalar field of an activity.
func (r *ActivityRegistry) Update(id, field, value string) error {
	a, err := r.Find(id)
	if err != nil {
		return err
	}

	switch field {
	case "status":
		if !validStatuses[value] {
			return fmt.Errorf("invalid status %q", value)
		}
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "category":
		a.Category = value
	case "taskType":
		a.TaskType = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil || retries < 0 {
			return fmt.Errorf("invalid retries value %q", value)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

// Sorted returns the activities ordered by category then id.
func (r *ActivityRegistry) Sorted() []Activity {
	out := append([]Activity(nil), r.Activities...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Validate reports every problem in the registry. knownTaskTypes, when
// non-empty, is the set of task types the worker manager registers.
func (r *ActivityRegistry) Validate(knownTaskTypes []string) []error {
	var problems []error
	if len(r.Activities) == 0 {
		return []error{errors.New("registry contains no activities")}
	}

	known := map[string]bool{}
	for _, t := range knownTaskTypes {
		known[t] = true
	}

	ids := map[string]bool{}
	taskTypes := map[string]string{}
	for _, a := range r.Activities {
		if a.ID == "" {
			problems = append(problems, errors.New("activity missing required field: id"))
			continue
		}
		if ids[a.ID] {
			problems = append(problems, fmt.Errorf("duplicate activity ID: %s", a.ID))
		}
		ids[a.ID] = true

		if err := validation.ValidateActivityNaming(a.ID); err != nil {
			problems = append(problems, err)
		}
		for field, v := range map[string]string{"displayName": a.DisplayName, "taskType": a.TaskType, "category": a.Category} {
			if strings.TrimSpace(v) == "" {
				problems = append(problems, fmt.Errorf("activity %s missing required field: %s", a.ID, field))
			}
		}
		if a.TaskType != "" {
			if other, dup := taskTypes[a.TaskType]; dup {
				problems = append(problems, fmt.Errorf("activities %s and %s share task type %s", other, a.ID, a.TaskType))
			}
			taskTypes[a.TaskType] = a.ID
			if len(known) > 0 && !known[a.TaskType] {
				problems = append(problems, fmt.Errorf("activity %s: no worker serves task type %s", a.ID, a.TaskType))
			}
		}
		if a.ImplementationStatus != "" && !validStatuses[a.ImplementationStatus] {
			problems = append(problems, fmt.Errorf("activity %s: invalid status %q", a.ID, a.ImplementationStatus))
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				problems = append(problems, fmt.Errorf("activity %s: invalid timeout %q", a.ID, a.Timeout))
			}
		}
		for name, schema := range map[string]map[string]interface{}{"inputSchema": a.InputSchema, "outputSchema": a.OutputSchema} {
			if len(schema) == 0 {
				continue
			}
			if _, err := validation.CompileSchema(schema); err != nil {
				problems = append(problems, fmt.Errorf("activity %s: %s: %w", a.ID, name, err))
			}
		}
		for _, code := range a.ErrorCodes {
			if !apperrors.IsKnownCode(code) {
				problems = append(problems, fmt.Errorf("activity %s: unknown error code %s", a.ID, code))
			}
		}
	}

	sort.Slice(problems, func(i, j int) bool { return problems[i].Error() < problems[j].Error() })
	return problems
}
