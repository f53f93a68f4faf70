package profile

import (
	"bytes"
	"encoding/json"

	"github.com/mmynk/profilekeeper/internal/models"
)

type fieldState uint8

const (
	fieldAbsent fieldState = iota
	fieldCleared
	fieldSet
)

// Field is one entry of a partial update. It has three states:
//   - absent: not mentioned, the stored value is kept (JSON key missing)
//   - cleared: explicitly removed, the stored value becomes unset (JSON null)
//   - set: replaced with a new value
type Field[T any] struct {
	value T
	state fieldState
}

// Set returns a field that replaces the stored value with v.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, state: fieldSet}
}

// Clear returns a field that unsets the stored value.
func Clear[T any]() Field[T] {
	return Field[T]{state: fieldCleared}
}

// IsAbsent reports whether the field was not mentioned.
func (f Field[T]) IsAbsent() bool { return f.state == fieldAbsent }

// IsCleared reports whether the field explicitly removes the stored value.
func (f Field[T]) IsCleared() bool { return f.state == fieldCleared }

// IsZero lets encoding/json omit absent fields under omitzero.
func (f Field[T]) IsZero() bool { return f.state == fieldAbsent }

// Apply merges the field into old.
func (f Field[T]) Apply(old models.Opt[T]) models.Opt[T] {
	switch f.state {
	case fieldCleared:
		return models.None[T]()
	case fieldSet:
		return models.Some(f.value)
	default:
		return old
	}
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != fieldSet {
		return []byte("null"), nil
	}
	return models.Some(f.value).MarshalJSON()
}

// UnmarshalJSON only runs for keys present in the document, so a missing key
// stays absent while null becomes cleared.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Clear[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Set(v)
	return nil
}

// PersonalPatch is a partial update of models.PersonalInfo.
type PersonalPatch struct {
	FullName         Field[string] `json:"fullName,omitzero"`
	Email            Field[string] `json:"email,omitzero"`
	Bio              Field[string] `json:"bio,omitzero"`
	IsSearching      Field[bool]   `json:"isSearching,omitzero"`
	ShareContactInfo Field[bool]   `json:"shareContactInfo,omitzero"`
	ProfilePic       Field[[]byte] `json:"profilePic,omitzero"`
	CV               Field[[]byte] `json:"cv,omitzero"`
}

// SocialPatch is a partial update of models.SocialLinks. Additional replaces
// the whole list when set.
type SocialPatch struct {
	LinkedIn   Field[string]   `json:"linkedin,omitzero"`
	GitHub     Field[string]   `json:"github,omitzero"`
	Instagram  Field[string]   `json:"instagram,omitzero"`
	X          Field[string]   `json:"x,omitzero"`
	Additional Field[[]string] `json:"additional,omitzero"`
}

// JobPatch is a partial update of models.JobPreferences. List fields replace
// the whole list when set.
type JobPatch struct {
	Locations         Field[[]models.WorkMode]  `json:"locations,omitzero"`
	SalaryRange       Field[models.SalaryRange] `json:"salaryRange,omitzero"`
	WorkplaceTags     Field[[]string]           `json:"workplaceTags,omitzero"`
	PreferredTimezone Field[string]             `json:"preferredTimezone,omitzero"`
}

// Get returns the new value and whether the field is set.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == fieldSet
}

// MapField converts the value of a set field, keeping absent and cleared as they are.
func MapField[T, U any](f Field[T], fn func(T) U) Field[U] {
	if f.state != fieldSet {
		return Field[U]{state: f.state}
	}
	return Set(fn(f.value))
}
