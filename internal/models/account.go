package models

import (
	"slices"
	"time"
)

// Section names one independently updatable part of a profile.
type Section string

const (
	SectionPersonal Section = "personal"
	SectionSocial   Section = "social"
	SectionJob      Section = "job"
)

// Sections lists every profile section in a stable order.
var Sections = []Section{SectionPersonal, SectionSocial, SectionJob}

// WorkMode is a preferred work location mode.
type WorkMode string

const (
	WorkModeOnsite WorkMode = "onsite"
	WorkModeHybrid WorkMode = "hybrid"
	WorkModeRemote WorkMode = "remote"
)

// Valid reports whether m is one of the known modes.
func (m WorkMode) Valid() bool {
	switch m {
	case WorkModeOnsite, WorkModeHybrid, WorkModeRemote:
		return true
	}
	return false
}

const (
	InitialLevel            = 1
	InitialExperiencePoints = 0
)

// UserAccount is the single record kept per principal.
//
// Principal and CreatedAt are fixed at creation. Stats are owned by the
// system; profile updates never touch them.
type UserAccount struct {
	Principal Principal `json:"principal"`
	CreatedAt time.Time `json:"createdAt"`
	Profile   Profile   `json:"profile"`
	Stats     Stats     `json:"stats"`
}

// Profile groups the three client-editable sections.
type Profile struct {
	Personal PersonalInfo   `json:"personal"`
	Social   SocialLinks    `json:"social"`
	Job      JobPreferences `json:"job"`
}

// PersonalInfo holds identity and contact details plus the two binary uploads.
type PersonalInfo struct {
	FullName         Opt[string] `json:"fullName,omitzero"`
	Email            Opt[string] `json:"email,omitzero"`
	Bio              Opt[string] `json:"bio,omitzero"`
	IsSearching      Opt[bool]   `json:"isSearching,omitzero"`
	ShareContactInfo Opt[bool]   `json:"shareContactInfo,omitzero"`
	ProfilePic       Opt[[]byte] `json:"profilePic,omitzero"`
	CV               Opt[[]byte] `json:"cv,omitzero"`
}

// SocialLinks holds the well-known profile URLs and an ordered list of extra ones.
type SocialLinks struct {
	LinkedIn   Opt[string]   `json:"linkedin,omitzero"`
	GitHub     Opt[string]   `json:"github,omitzero"`
	Instagram  Opt[string]   `json:"instagram,omitzero"`
	X          Opt[string]   `json:"x,omitzero"`
	Additional Opt[[]string] `json:"additional,omitzero"`
}

// SalaryRange is an inclusive expected salary band.
type SalaryRange struct {
	Min uint64 `json:"min"`
	Max uint64 `json:"max"`
}

// JobPreferences describes what kind of work the user is looking for.
type JobPreferences struct {
	Locations         Opt[[]WorkMode]  `json:"locations,omitzero"`
	SalaryRange       Opt[SalaryRange] `json:"salaryRange,omitzero"`
	WorkplaceTags     Opt[[]string]    `json:"workplaceTags,omitzero"`
	PreferredTimezone Opt[string]      `json:"preferredTimezone,omitzero"`
}

// Stats is system-owned progression data.
type Stats struct {
	Level            uint64  `json:"level"`
	ExperiencePoints uint64  `json:"experiencePoints"`
	Medals           []Medal `json:"medals"`
}

// Medal is an earned achievement.
type Medal struct {
	Title       string `json:"title"`
	ImageURL    string `json:"imageUrl"`
	Description string `json:"description"`
}

// NewUserAccount returns the default account for p: every profile field
// unset and stats at their initial values.
func NewUserAccount(p Principal, now time.Time) *UserAccount {
	return &UserAccount{
		Principal: p,
		CreatedAt: now.UTC(),
		Stats:     NewStats(),
	}
}

// NewStats returns the stats every new account starts with.
func NewStats() Stats {
	return Stats{
		Level:            InitialLevel,
		ExperiencePoints: InitialExperiencePoints,
		Medals:           []Medal{},
	}
}

// Clone returns a deep copy of a.
func (a *UserAccount) Clone() *UserAccount {
	if a == nil {
		return nil
	}
	c := *a
	c.Profile = Profile{
		Personal: a.Profile.Personal.Clone(),
		Social:   a.Profile.Social.Clone(),
		Job:      a.Profile.Job.Clone(),
	}
	c.Stats.Medals = slices.Clone(a.Stats.Medals)
	if c.Stats.Medals == nil {
		c.Stats.Medals = []Medal{}
	}
	return &c
}

// Clone returns a copy that shares no byte slices with p.
func (p PersonalInfo) Clone() PersonalInfo {
	p.ProfilePic = cloneSlice(p.ProfilePic)
	p.CV = cloneSlice(p.CV)
	return p
}

func (s SocialLinks) Clone() SocialLinks {
	s.Additional = cloneSlice(s.Additional)
	return s
}

// Clone returns a copy that shares no slices with j.
func (j JobPreferences) Clone() JobPreferences {
	j.Locations = cloneSlice(j.Locations)
	j.WorkplaceTags = cloneSlice(j.WorkplaceTags)
	return j
}

func cloneSlice[E any](o Opt[[]E]) Opt[[]E] {
	v, ok := o.Get()
	if !ok {
		return o
	}
	c := slices.Clone(v)
	if c == nil {
		c = []E{}
	}
	return Some(c)
}
