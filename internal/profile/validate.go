package profile

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/mmynk/profilekeeper/internal/models"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// FieldError describes one rejected field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every rule an assembled section broke.
type ValidationError struct {
	Section models.Section
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("invalid %s section: %s", e.Section, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// DefaultWorkplaceTags is the allow-list used when none is configured.
var DefaultWorkplaceTags = []string{
	"good_culture",
	"growth_opportunities",
	"innovative_culture",
	"diverse_team",
	"flexible_remote",
	"competitive_salary",
	"high_impact_projects",
	"cutting_edge_tech",
	"autonomy",
	"health_benefits",
	"training",
	"collaborative_environment",
}

// Rules holds the limits applied to assembled sections.
type Rules struct {
	SalaryMin        uint64
	SalaryMax        uint64
	MaxWorkplaceTags int
	// WorkplaceTags is the allow-list. Empty accepts any tag.
	WorkplaceTags      []string
	MaxProfilePicBytes int
	MaxResumeBytes     int
}

// DefaultRules returns the limits used when nothing is configured.
func DefaultRules() Rules {
	return Rules{
		SalaryMin:          0,
		SalaryMax:          200000,
		MaxWorkplaceTags:   3,
		WorkplaceTags:      slices.Clone(DefaultWorkplaceTags),
		MaxProfilePicBytes: 100 * 1024,
		MaxResumeBytes:     100 * 1024,
	}
}

// Section documents are stored as jsonb on postgres, which refuses the \u0000
// escape, so text fields must not carry NUL on any backend.
const noNULTag = "nonul"

type personalView struct {
	FullName string `validate:"nonul"`
	Email    string `validate:"omitempty,nonul,email"`
	Bio      string `validate:"nonul"`
}

type socialView struct {
	LinkedIn   string   `validate:"omitempty,nonul,url"`
	GitHub     string   `validate:"omitempty,nonul,url"`
	Instagram  string   `validate:"omitempty,nonul,url"`
	X          string   `validate:"omitempty,nonul,url"`
	Additional []string `validate:"dive,nonul,url"`
}

// Validator checks sections after a patch has been merged. It is safe for
// concurrent use.
type Validator struct {
	rules    Rules
	validate *validator.Validate
	tags     map[string]struct{}
}

// NewValidator returns a Validator enforcing rules.
func NewValidator(rules Rules) *Validator {
	tags := make(map[string]struct{}, len(rules.WorkplaceTags))
	for _, t := range rules.WorkplaceTags {
		tags[t] = struct{}{}
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or nil func.
	_ = validate.RegisterValidation(noNULTag, func(fl validator.FieldLevel) bool {
		return !hasNUL(fl.Field().String())
	})
	return &Validator{
		rules:    rules,
		validate: validate,
		tags:     tags,
	}
}

// Rules returns the limits the validator enforces.
func (v *Validator) Rules() Rules { return v.rules }

// ValidatePersonal checks the text fields, the email address and the uploaded
// files.
func (v *Validator) ValidatePersonal(info models.PersonalInfo) (models.PersonalInfo, error) {
	var errs []FieldError
	view := personalView{
		FullName: info.FullName.OrElse(""),
		Email:    info.Email.OrElse(""),
		Bio:      info.Bio.OrElse(""),
	}
	errs = append(errs, v.structErrors(view, map[string]string{
		"FullName": "fullName",
		"Email":    "email",
		"Bio":      "bio",
	})...)

	if pic, ok := info.ProfilePic.Get(); ok {
		if msg := checkBlob(pic, v.rules.MaxProfilePicBytes, isImage, "an image"); msg != "" {
			errs = append(errs, FieldError{Field: "profilePic", Message: msg})
		}
	}
	if cv, ok := info.CV.Get(); ok {
		if msg := checkBlob(cv, v.rules.MaxResumeBytes, isPDF, "a PDF document"); msg != "" {
			errs = append(errs, FieldError{Field: "cv", Message: msg})
		}
	}

	if len(errs) > 0 {
		return models.PersonalInfo{}, &ValidationError{Section: models.SectionPersonal, Fields: errs}
	}
	return info, nil
}

// ValidateSocial requires every link, including the additional ones, to be a
// URL.
func (v *Validator) ValidateSocial(links models.SocialLinks) (models.SocialLinks, error) {
	view := socialView{
		LinkedIn:   links.LinkedIn.OrElse(""),
		GitHub:     links.GitHub.OrElse(""),
		Instagram:  links.Instagram.OrElse(""),
		X:          links.X.OrElse(""),
		Additional: links.Additional.OrElse(nil),
	}
	errs := v.structErrors(view, map[string]string{
		"LinkedIn":   "linkedin",
		"GitHub":     "github",
		"Instagram":  "instagram",
		"X":          "x",
		"Additional": "additional",
	})
	if len(errs) > 0 {
		return models.SocialLinks{}, &ValidationError{Section: models.SectionSocial, Fields: errs}
	}
	return links, nil
}

// ValidateJob checks job preferences and returns them with duplicate
// locations and tags removed.
func (v *Validator) ValidateJob(prefs models.JobPreferences) (models.JobPreferences, error) {
	var errs []FieldError
	out := prefs.Clone()

	if locs, ok := prefs.Locations.Get(); ok {
		for _, l := range locs {
			if !l.Valid() {
				errs = append(errs, FieldError{Field: "locations", Message: fmt.Sprintf("unknown work mode %q", l)})
			}
		}
		out.Locations = models.Some(dedupe(locs))
	}

	if r, ok := prefs.SalaryRange.Get(); ok {
		switch {
		case r.Min > r.Max:
			errs = append(errs, FieldError{Field: "salaryRange", Message: fmt.Sprintf("min %d exceeds max %d", r.Min, r.Max)})
		case r.Min < v.rules.SalaryMin:
			errs = append(errs, FieldError{Field: "salaryRange", Message: fmt.Sprintf("min %d is below %d", r.Min, v.rules.SalaryMin)})
		case v.rules.SalaryMax > 0 && r.Max > v.rules.SalaryMax:
			errs = append(errs, FieldError{Field: "salaryRange", Message: fmt.Sprintf("max %d is above %d", r.Max, v.rules.SalaryMax)})
		}
	}

	if tags, ok := prefs.WorkplaceTags.Get(); ok {
		tags = dedupe(tags)
		if v.rules.MaxWorkplaceTags > 0 && len(tags) > v.rules.MaxWorkplaceTags {
			errs = append(errs, FieldError{Field: "workplaceTags", Message: fmt.Sprintf("at most %d tags allowed, got %d", v.rules.MaxWorkplaceTags, len(tags))})
		}
		for _, t := range tags {
			if hasNUL(t) {
				errs = append(errs, FieldError{Field: "workplaceTags", Message: tagMessage(noNULTag)})
				continue
			}
			if _, known := v.tags[t]; len(v.tags) > 0 && !known {
				errs = append(errs, FieldError{Field: "workplaceTags", Message: fmt.Sprintf("unknown tag %q", t)})
			}
		}
		out.WorkplaceTags = models.Some(tags)
	}

	if tz, ok := prefs.PreferredTimezone.Get(); ok && tz != "" {
		if msg := checkTimezone(tz); msg != "" {
			errs = append(errs, FieldError{Field: "preferredTimezone", Message: msg})
		}
	}

	if len(errs) > 0 {
		return models.JobPreferences{}, &ValidationError{Section: models.SectionJob, Fields: errs}
	}
	return out, nil
}

func (v *Validator) structErrors(s any, names map[string]string) []FieldError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "section", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		// Dive errors carry an index, e.g. "Additional[1]".
		field, index, _ := strings.Cut(fe.Field(), "[")
		name := names[field]
		if name == "" {
			name = field
		}
		if index != "" {
			name += "[" + index
		}
		out = append(out, FieldError{Field: name, Message: tagMessage(fe.Tag())})
	}
	return out
}

func tagMessage(tag string) string {
	switch tag {
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case noNULTag:
		return "must not contain NUL characters"
	default:
		return "failed " + tag + " check"
	}
}

func hasNUL(s string) bool {
	return strings.ContainsRune(s, 0)
}

func checkBlob(b []byte, maxBytes int, accept func(*mimetype.MIME) bool, kind string) string {
	if maxBytes > 0 && len(b) > maxBytes {
		return fmt.Sprintf("must be at most %d KB", maxBytes/1024)
	}
	mt := mimetype.Detect(b)
	if !accept(mt) {
		return fmt.Sprintf("must be %s, got %s", kind, mt.String())
	}
	return ""
}

func isImage(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

func isPDF(mt *mimetype.MIME) bool {
	return mt.Is("application/pdf")
}

func checkTimezone(tz string) string {
	// LoadLocation maps "Local" to the host zone, which means nothing to a client.
	if tz == "Local" || hasNUL(tz) {
		return fmt.Sprintf("unknown timezone %q", tz)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Sprintf("unknown timezone %q", tz)
	}
	return ""
}

func dedupe[E comparable](in []E) []E {
	seen := make(map[E]struct{}, len(in))
	out := make([]E, 0, len(in))
	for _, e := range in {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
