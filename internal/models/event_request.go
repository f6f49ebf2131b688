package models

// CreateEventRequest is the payload for manually creating an event.
type CreateEventRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Time  string `json:"time" validate:"required,datetime=15:04"`
	Type  string `json:"type" validate:"omitempty,min=1,max=50"`
}

// UpdateEventRequest is the payload for manually updating an event. All fields
// are optional so a caller can patch just the ones that change.
type UpdateEventRequest struct {
	Title *string `json:"title" validate:"omitempty,min=1,max=200"`
	Date  *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time  *string `json:"time" validate:"omitempty,datetime=15:04"`
	Type  *string `json:"type" validate:"omitempty,min=1,max=50"`
}

// HasChanges reports whether the patch mentions at least one field.
func (r UpdateEventRequest) HasChanges() bool {
	return r.Title != nil || r.Date != nil || r.Time != nil || r.Type != nil
}
