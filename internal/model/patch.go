package model

// TaskPatch is a partial change over a task, nil fields are absent from the change.
//
// The merge is shallow: list fields replace the current ones wholesale, callers that
// want to append must read the task, modify the list and patch it back.
type TaskPatch struct {
	ID            *string         `json:"id,omitempty"`
	ProjectID     *string         `json:"projectId,omitempty"`
	Title         *string         `json:"title,omitempty"`
	Status        *TaskStatus     `json:"status,omitempty"`
	AssignedTo    *[]string       `json:"assignedTo,omitempty"`
	Configuration *map[string]any `json:"configuration,omitempty"`
	Dependencies  *[]string       `json:"dependencies,omitempty"`
	Comments      *[]Comment      `json:"comments,omitempty"`
	DeletedAt     *int64          `json:"deletedAt,omitempty"`
}

// NewTaskPatch returns a patch that carries all the fields of the task.
func NewTaskPatch(t Task) TaskPatch {
	t = t.Clone()
	p := TaskPatch{
		ID:            &t.ID,
		ProjectID:     &t.ProjectID,
		Title:         &t.Title,
		Status:        &t.Status,
		AssignedTo:    &t.AssignedTo,
		Configuration: &t.Configuration,
		Dependencies:  &t.Dependencies,
		Comments:      &t.Comments,
		DeletedAt:     t.DeletedAt,
	}
	if p.Comments != nil && *p.Comments == nil {
		p.Comments = &[]Comment{}
	}
	if p.Dependencies != nil && *p.Dependencies == nil {
		p.Dependencies = &[]string{}
	}
	return p
}

// TaskID returns the ID carried by the patch, empty if missing.
func (p TaskPatch) TaskID() string {
	if p.ID == nil {
		return ""
	}
	return *p.ID
}

// Apply returns a copy of the task with the patch applied. ID and project are
// immutable so they are never changed by a patch.
func (p TaskPatch) Apply(t Task) Task {
	t = t.Clone()

	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.AssignedTo != nil {
		t.AssignedTo = cloneStrings(*p.AssignedTo)
	}
	if p.Configuration != nil {
		t.Configuration = nil
		if *p.Configuration != nil {
			t.Configuration = cloneConfiguration(*p.Configuration)
		}
	}
	if p.Dependencies != nil {
		t.Dependencies = cloneStrings(*p.Dependencies)
	}
	if p.Comments != nil {
		t.Comments = nil
		if *p.Comments != nil {
			t.Comments = append([]Comment{}, *p.Comments...)
		}
	}
	if p.DeletedAt != nil {
		d := *p.DeletedAt
		t.DeletedAt = &d
	}

	return t
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
