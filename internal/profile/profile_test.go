package profile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/profilekeeper/internal/models"
	"github.com/mmynk/profilekeeper/internal/storage"
	"github.com/mmynk/profilekeeper/internal/storage/memory"
	"github.com/mmynk/profilekeeper/internal/storage/storagetest"
)

var (
	pngImage = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	pdfDoc   = []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n")
)

func TestFieldJSON(t *testing.T) {
	var patch PersonalPatch
	require.NoError(t, json.Unmarshal([]byte(`{"fullName":"Ada","bio":null,"isSearching":false}`), &patch))

	assert.Equal(t, Set("Ada"), patch.FullName)
	assert.True(t, patch.Bio.IsCleared())
	assert.True(t, patch.Email.IsAbsent())
	assert.Equal(t, Set(false), patch.IsSearching)

	out, err := json.Marshal(patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fullName":"Ada","bio":null,"isSearching":false}`, string(out))
}

func TestFieldJSON_TypeMismatch(t *testing.T) {
	var patch JobPatch
	err := json.Unmarshal([]byte(`{"salaryRange":"lots"}`), &patch)
	assert.Error(t, err)
}

func TestFieldApply(t *testing.T) {
	old := models.Some("old")

	assert.Equal(t, old, Field[string]{}.Apply(old))
	assert.Equal(t, models.None[string](), Clear[string]().Apply(old))
	assert.Equal(t, models.Some("new"), Set("new").Apply(old))
	assert.Equal(t, models.Some(""), Set("").Apply(old))
}

func TestMergePersonal(t *testing.T) {
	cur := storagetest.FullPersonal()

	t.Run("empty patch keeps everything", func(t *testing.T) {
		assert.Equal(t, cur, MergePersonal(cur, PersonalPatch{}))
	})

	t.Run("only named fields change", func(t *testing.T) {
		got := MergePersonal(cur, PersonalPatch{
			Bio:        Set("Mathematician"),
			ProfilePic: Clear[[]byte](),
		})

		want := storagetest.FullPersonal()
		want.Bio = models.Some("Mathematician")
		want.ProfilePic = models.None[[]byte]()
		assert.Equal(t, want, got)
	})

	t.Run("result does not alias the current section", func(t *testing.T) {
		got := MergePersonal(cur, PersonalPatch{})
		pic, _ := got.ProfilePic.Get()
		pic[0] = 0

		orig, _ := cur.ProfilePic.Get()
		assert.Equal(t, byte(0x89), orig[0])
	})
}

func TestMergeSocial_ReplacesAdditionalWhole(t *testing.T) {
	cur := storagetest.FullSocial()

	got := MergeSocial(cur, SocialPatch{Additional: Set([]string{"https://new.example"})})
	assert.Equal(t, models.Some([]string{"https://new.example"}), got.Additional)
	assert.Equal(t, cur.GitHub, got.GitHub)

	got = MergeSocial(cur, SocialPatch{Additional: Set([]string{})})
	links, ok := got.Additional.Get()
	assert.True(t, ok, "an empty list is still set")
	assert.Empty(t, links)
}

func TestMergeJob(t *testing.T) {
	got := MergeJob(models.JobPreferences{}, JobPatch{
		SalaryRange:       Set(models.SalaryRange{Min: 1, Max: 2}),
		PreferredTimezone: Set("Asia/Tokyo"),
	})
	assert.Equal(t, models.Some(models.SalaryRange{Min: 1, Max: 2}), got.SalaryRange)
	assert.Equal(t, models.Some("Asia/Tokyo"), got.PreferredTimezone)
	assert.False(t, got.Locations.IsSet())
	assert.False(t, got.WorkplaceTags.IsSet())
}

func TestValidatePersonal(t *testing.T) {
	v := NewValidator(DefaultRules())

	tests := []struct {
		name      string
		info      models.PersonalInfo
		wantField string
	}{
		{name: "empty section", info: models.PersonalInfo{}},
		{name: "valid email", info: models.PersonalInfo{Email: models.Some("ada@example.com")}},
		{name: "empty email", info: models.PersonalInfo{Email: models.Some("")}},
		{name: "bad email", info: models.PersonalInfo{Email: models.Some("not-an-email")}, wantField: "email"},
		{name: "png picture", info: models.PersonalInfo{ProfilePic: models.Some(pngImage)}},
		{name: "pdf picture", info: models.PersonalInfo{ProfilePic: models.Some(pdfDoc)}, wantField: "profilePic"},
		{name: "oversized picture", info: models.PersonalInfo{ProfilePic: models.Some(append(pngImage, make([]byte, 100*1024)...))}, wantField: "profilePic"},
		{name: "pdf resume", info: models.PersonalInfo{CV: models.Some(pdfDoc)}},
		{name: "text resume", info: models.PersonalInfo{CV: models.Some([]byte("just text"))}, wantField: "cv"},
		{name: "multiline bio", info: models.PersonalInfo{Bio: models.Some("line one\nline two\ttabbed")}},
		{name: "NUL in bio", info: models.PersonalInfo{Bio: models.Some("hello\x00world")}, wantField: "bio"},
		{name: "NUL in name", info: models.PersonalInfo{FullName: models.Some("Ada\u0000")}, wantField: "fullName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidatePersonal(tt.info)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			assertFieldError(t, err, models.SectionPersonal, tt.wantField)
		})
	}
}

func TestValidateSocial(t *testing.T) {
	v := NewValidator(DefaultRules())

	_, err := v.ValidateSocial(storagetest.FullSocial())
	assert.NoError(t, err)

	_, err = v.ValidateSocial(models.SocialLinks{GitHub: models.Some("not a url")})
	assertFieldError(t, err, models.SectionSocial, "github")

	_, err = v.ValidateSocial(models.SocialLinks{
		Additional: models.Some([]string{"https://ok.example", "nope"}),
	})
	assertFieldError(t, err, models.SectionSocial, "additional[1]")

	_, err = v.ValidateSocial(models.SocialLinks{LinkedIn: models.Some("https://linkedin.com/in/\x00ada")})
	assertFieldError(t, err, models.SectionSocial, "linkedin")
}

func TestValidateJob(t *testing.T) {
	v := NewValidator(DefaultRules())

	t.Run("full section passes", func(t *testing.T) {
		got, err := v.ValidateJob(storagetest.FullJob())
		require.NoError(t, err)
		assert.Equal(t, storagetest.FullJob(), got)
	})

	t.Run("duplicates are removed", func(t *testing.T) {
		got, err := v.ValidateJob(models.JobPreferences{
			Locations:     models.Some([]models.WorkMode{models.WorkModeRemote, models.WorkModeRemote, models.WorkModeOnsite}),
			WorkplaceTags: models.Some([]string{"autonomy", "autonomy", "training", "training"}),
		})
		require.NoError(t, err)
		assert.Equal(t, models.Some([]models.WorkMode{models.WorkModeRemote, models.WorkModeOnsite}), got.Locations)
		assert.Equal(t, models.Some([]string{"autonomy", "training"}), got.WorkplaceTags)
	})

	tests := []struct {
		name  string
		prefs models.JobPreferences
		field string
	}{
		{"inverted salary", models.JobPreferences{SalaryRange: models.Some(models.SalaryRange{Min: 120000, Max: 50000})}, "salaryRange"},
		{"salary above limit", models.JobPreferences{SalaryRange: models.Some(models.SalaryRange{Min: 0, Max: 250000})}, "salaryRange"},
		{"too many tags", models.JobPreferences{WorkplaceTags: models.Some([]string{"autonomy", "training", "diverse_team", "good_culture"})}, "workplaceTags"},
		{"unknown tag", models.JobPreferences{WorkplaceTags: models.Some([]string{"free_snacks"})}, "workplaceTags"},
		{"unknown work mode", models.JobPreferences{Locations: models.Some([]models.WorkMode{"moon"})}, "locations"},
		{"unknown timezone", models.JobPreferences{PreferredTimezone: models.Some("Mars/Olympus")}, "preferredTimezone"},
		{"host timezone", models.JobPreferences{PreferredTimezone: models.Some("Local")}, "preferredTimezone"},
		{"NUL in timezone", models.JobPreferences{PreferredTimezone: models.Some("UTC\x00")}, "preferredTimezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateJob(tt.prefs)
			assertFieldError(t, err, models.SectionJob, tt.field)
		})
	}

	t.Run("equal bounds pass", func(t *testing.T) {
		_, err := v.ValidateJob(models.JobPreferences{SalaryRange: models.Some(models.SalaryRange{Min: 7, Max: 7})})
		assert.NoError(t, err)
	})

	t.Run("empty allow-list accepts any tag", func(t *testing.T) {
		rules := DefaultRules()
		rules.WorkplaceTags = nil
		_, err := NewValidator(rules).ValidateJob(models.JobPreferences{WorkplaceTags: models.Some([]string{"free_snacks"})})
		assert.NoError(t, err)
	})

	t.Run("empty allow-list still rejects NUL", func(t *testing.T) {
		rules := DefaultRules()
		rules.WorkplaceTags = nil
		_, err := NewValidator(rules).ValidateJob(models.JobPreferences{WorkplaceTags: models.Some([]string{"free\x00snacks"})})
		assertFieldError(t, err, models.SectionJob, "workplaceTags")
	})
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{
		Section: models.SectionJob,
		Fields: []FieldError{
			{Field: "salaryRange", Message: "min 2 exceeds max 1"},
			{Field: "workplaceTags", Message: "unknown tag \"x\""},
		},
	}
	assert.Equal(t, `invalid job section: salaryRange: min 2 exceeds max 1; workplaceTags: unknown tag "x"`, err.Error())
	assert.ErrorIs(t, err, ErrValidation)
}

func newTestAssembler(t *testing.T) (*Assembler, storage.AccountStore) {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { store.Close() })
	return NewAssembler(store, NewValidator(DefaultRules())), store
}

func TestAssembler_PersonalUpdateKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAssembler(t)
	p := storagetest.NewPrincipal(1)

	_, err := store.GetOrCreate(ctx, p)
	require.NoError(t, err)

	got, err := a.AssemblePersonal(ctx, p, PersonalPatch{FullName: Set("Ada"), Email: Set("ada@example.com")})
	require.NoError(t, err)
	assert.Equal(t, models.Some("Ada"), got.FullName)

	got, err = a.AssemblePersonal(ctx, p, PersonalPatch{Bio: Set("Engineer")})
	require.NoError(t, err)

	stored, err := store.GetPersonal(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
	assert.Equal(t, models.Some("Ada"), stored.FullName)
	assert.Equal(t, models.Some("ada@example.com"), stored.Email)
	assert.Equal(t, models.Some("Engineer"), stored.Bio)
}

func TestAssembler_SocialAdditionalLinks(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAssembler(t)
	p := storagetest.NewPrincipal(1)

	_, err := store.GetOrCreate(ctx, p)
	require.NoError(t, err)

	_, err = a.AssembleSocial(ctx, p, SocialPatch{
		GitHub:     Set("https://github.com/ada"),
		Additional: Set([]string{"https://a.example", "https://b.example"}),
	})
	require.NoError(t, err)

	_, err = a.AssembleSocial(ctx, p, SocialPatch{Additional: Set([]string{"https://c.example"})})
	require.NoError(t, err)

	acc, err := store.GetComplete(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, models.Some([]string{"https://c.example"}), acc.Profile.Social.Additional)
	assert.Equal(t, models.Some("https://github.com/ada"), acc.Profile.Social.GitHub)
	assert.Equal(t, models.PersonalInfo{}, acc.Profile.Personal)
	assert.Equal(t, models.JobPreferences{}, acc.Profile.Job)
}

func TestAssembler_RejectedUpdateWritesNothing(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAssembler(t)
	p := storagetest.NewPrincipal(1)

	_, err := store.GetOrCreate(ctx, p)
	require.NoError(t, err)
	require.NoError(t, store.UpdateJob(ctx, p, storagetest.FullJob()))

	_, err = a.AssembleJob(ctx, p, JobPatch{
		SalaryRange:       Set(models.SalaryRange{Min: 120000, Max: 50000}),
		PreferredTimezone: Set("Asia/Tokyo"),
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	assert.Equal(t, models.SectionJob, verr.Section)

	stored, err := store.GetJob(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, storagetest.FullJob(), stored)
}

func TestAssembler_MissingAccount(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAssembler(t)
	p := storagetest.NewPrincipal(7)

	_, err := a.AssembleSocial(ctx, p, SocialPatch{X: Set("https://x.com/ada")})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetComplete(ctx, p)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAssembler_JobStoresNormalizedSection(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAssembler(t)
	p := storagetest.NewPrincipal(1)

	_, err := store.GetOrCreate(ctx, p)
	require.NoError(t, err)

	got, err := a.AssembleJob(ctx, p, JobPatch{
		WorkplaceTags: Set([]string{"training", "training"}),
	})
	require.NoError(t, err)
	assert.Equal(t, models.Some([]string{"training"}), got.WorkplaceTags)

	stored, err := store.GetJob(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func assertFieldError(t *testing.T, err error, section models.Section, field string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	assert.Equal(t, section, verr.Section)
	for _, f := range verr.Fields {
		if f.Field == field {
			return
		}
	}
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	t.Errorf("no error for field %q, got [%s]", field, strings.Join(names, ", "))
}
