package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Field is one entry of a partial patch. The zero value means the key was
// omitted and the stored value is kept. Null clears an optional field.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// UnmarshalJSON is only invoked for keys present in the document, which is
// what separates an omitted key from an explicit null.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		var zero T
		f.Null = true
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(b, &f.Value)
}

type ListPatch struct {
	Name      Field[string] `json:"name"`
	Color     Field[string] `json:"color"`
	SortOrder Field[int]    `json:"sort_order"`
}

type TaskPatch struct {
	Title     Field[string]    `json:"title"`
	Date      Field[string]    `json:"date"`
	StartTime Field[string]    `json:"start_time"`
	EndTime   Field[string]    `json:"end_time"`
	Priority  Field[Priority]  `json:"priority"`
	ListID    Field[int64]     `json:"list_id"`
	Status    Field[Status]    `json:"status"`
	Notes     Field[string]    `json:"notes"`
	RemindAt  Field[time.Time] `json:"remind_at"`
}

func (p ListPatch) apply(l *List) error {
	if err := setRequired(&l.Name, p.Name, "name"); err != nil {
		return err
	}
	if p.Name.Set && l.Name == "" {
		return invalidf("name is empty")
	}
	if err := setRequired(&l.SortOrder, p.SortOrder, "sort_order"); err != nil {
		return err
	}
	setOptionalString(&l.Color, p.Color)
	return nil
}

func (p TaskPatch) apply(t *Task) error {
	if err := setRequired(&t.Title, p.Title, "title"); err != nil {
		return err
	}
	if p.Title.Set && t.Title == "" {
		return invalidf("title is empty")
	}
	if err := setRequired(&t.Date, p.Date, "date"); err != nil {
		return err
	}
	if p.Date.Set && !ValidDate(t.Date) {
		return invalidf("date %q is not YYYY-MM-DD", t.Date)
	}
	if err := setRequired(&t.Priority, p.Priority, "priority"); err != nil {
		return err
	}
	if !t.Priority.Valid() {
		return invalidf("unknown priority %q", t.Priority)
	}
	if err := setRequired(&t.Status, p.Status, "status"); err != nil {
		return err
	}
	if !t.Status.Valid() {
		return invalidf("unknown status %q", t.Status)
	}
	setOptionalString(&t.StartTime, p.StartTime)
	setOptionalString(&t.EndTime, p.EndTime)
	setOptional(&t.ListID, p.ListID)
	setOptionalString(&t.Notes, p.Notes)
	setOptional(&t.RemindAt, p.RemindAt)
	return nil
}

func setRequired[T any](dst *T, f Field[T], name string) error {
	if !f.Set {
		return nil
	}
	if f.Null {
		return invalidf("%s cannot be null", name)
	}
	*dst = f.Value
	return nil
}

func setOptional[T any](dst **T, f Field[T]) {
	if !f.Set {
		return
	}
	if f.Null {
		*dst = nil
		return
	}
	v := f.Value
	*dst = &v
}

// setOptionalString is setOptional for text fields: a blank value clears
// the field, as it does on create.
func setOptionalString(dst **string, f Field[string]) {
	setOptional(dst, f)
	*dst = blankToNil(*dst)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
