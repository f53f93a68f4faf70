// Package storagetest is a conformance suite for storage.AccountStore
// implementations. Backends call Run from their own tests.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/profilekeeper/internal/models"
	"github.com/mmynk/profilekeeper/internal/storage"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) storage.AccountStore

// Run exercises the AccountStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.AccountStore)
	}{
		{"GetOrCreate materializes defaults", testGetOrCreateDefaults},
		{"GetOrCreate is idempotent", testGetOrCreateIdempotent},
		{"GetOrCreate returns existing account unmodified", testGetOrCreateReturnsExisting},
		{"reads report not found for unknown principal", testReadsNotFound},
		{"update before create is rejected and writes nothing", testUpdateBeforeCreate},
		{"section updates are isolated", testSectionIsolation},
		{"section update replaces wholesale", testWholesaleReplacement},
		{"stats survive profile updates", testStatsImmutable},
		{"every field round trips", testRoundTrip},
		{"returned accounts are copies", testReturnedCopies},
		{"principals are independent", testPrincipalsIndependent},
		{"concurrent GetOrCreate yields one account", testConcurrentGetOrCreate},
		{"concurrent updates to different sections both land", testConcurrentSectionUpdates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

// NewPrincipal returns a distinct principal for index i.
func NewPrincipal(i int) models.Principal {
	p, err := models.PrincipalFromBytes([]byte(fmt.Sprintf("principal-%d", i)))
	if err != nil {
		panic(err)
	}
	return p
}

// FullPersonal returns a personal section with every field set.
func FullPersonal() models.PersonalInfo {
	return models.PersonalInfo{
		FullName:         models.Some("Ada Lovelace"),
		Email:            models.Some("ada@example.com"),
		Bio:              models.Some("Engineer"),
		IsSearching:      models.Some(true),
		ShareContactInfo: models.Some(false),
		ProfilePic:       models.Some([]byte{0x89, 'P', 'N', 'G'}),
		CV:               models.Some([]byte("%PDF-1.7")),
	}
}

// FullSocial returns a social section with every field set.
func FullSocial() models.SocialLinks {
	return models.SocialLinks{
		LinkedIn:   models.Some("https://linkedin.com/in/ada"),
		GitHub:     models.Some("https://github.com/ada"),
		Instagram:  models.Some("https://instagram.com/ada"),
		X:          models.Some("https://x.com/ada"),
		Additional: models.Some([]string{"https://ada.dev", "https://blog.ada.dev"}),
	}
}

// FullJob returns a job section with every field set.
func FullJob() models.JobPreferences {
	return models.JobPreferences{
		Locations:         models.Some([]models.WorkMode{models.WorkModeRemote, models.WorkModeHybrid}),
		SalaryRange:       models.Some(models.SalaryRange{Min: 50000, Max: 120000}),
		WorkplaceTags:     models.Some([]string{"autonomy", "training"}),
		PreferredTimezone: models.Some("Europe/London"),
	}
}

func testGetOrCreateDefaults(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	p := NewPrincipal(1)

	acc, err := s.GetOrCreate(ctx, p)
	require.NoError(t, err)

	assert.Equal(t, p, acc.Principal)
	assert.False(t, acc.CreatedAt.IsZero())
	assert.Equal(t, models.Profile{}, acc.Profile)
	assert.Equal(t, models.NewStats(), acc.Stats)
}

func testGetOrCreateIdempotent(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	p := NewPrincipal(1)

	first, err := s.GetOrCreate(ctx, p)
	require.NoError(t, err)
	second, err := s.GetOrCreate(ctx, p)
	require.NoError(t, err)

	assert.Equal(t, first.Principal, second.Principal)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt), "createdAt changed: %v != %v", first.CreatedAt, second.CreatedAt)
	assert.Equal(t, first.Profile, second.Profile)
	assert.Equal(t, first.Stats, second.Stats)
}

func testGetOrCreateReturnsExisting(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	p := NewPrincipal(1)

	created, err := s.GetOrCreate(ctx, p)
	require.NoError(t, err)
	require.NoError(t, s.UpdatePersonal(ctx, p, FullPersonal()))

	again, err := s.GetOrCreate(ctx, p)
	require.NoError(t, err)
	assert.True(t, created.CreatedAt.Equal(again.CreatedAt))
	assert.Equal(t, FullPersonal(), again.Profile.Personal)
}

func testReadsNotFound(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	p := NewPrincipal(1)

	_, err := s.GetComplete(ctx, p)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetPersonal(ctx, p)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetSocial(ctx, p)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetJob(ctx, p)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testUpdateBeforeCreate(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	p := NewPrincipal(2)

	assert.ErrorIs(t, s.UpdatePersonal(ctx, p, FullPersonal()), storage.ErrNotFound)
	assert.ErrorIs(t, s.UpdateSocial(ctx, p, FullSocial()), storage.ErrNotFound)
	assert.ErrorIs(t, s.UpdateJob(ctx, p, FullJob()), storage.ErrNotFound)

	_, err := s.GetComplete(ctx, p)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testSectionIsolation(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	p := NewPrincipal(1)

	_, err := s.GetOrCreate(ctx, p)
	require.NoError(t, err)
	require.NoError(t, s.UpdateSocial(ctx, p, FullSocial()))
	require.NoError(t, s.UpdateJob(ctx, p, FullJob()))

	require.NoError(t, s.UpdatePersonal(ctx, p, models.PersonalInfo{FullName: models.Some("Ada")}))

	social, err := s.GetSocial(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, FullSocial(), social)

	job, err := s.GetJob(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, FullJob(), job)

	require.NoError(t, s.UpdateJob(ctx, p, models.JobPreferences{}))
	personal, err := s.GetPersonal(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, models.PersonalInfo{FullName: models.Some("Ada")}, personal)
	social, err = s.GetSocial(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, FullSocial(), social)
}

func testWholesaleReplacement(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	p := NewPrincipal(1)

	_, err := s.GetOrCreate(ctx, p)
	require.NoError(t, err)
	require.NoError(t, s.UpdatePersonal(ctx, p, FullPersonal()))

	// The store does not merge: fields missing from the new value are gone.
	replacement := models.PersonalInfo{Bio: models.Some("")}
	require.NoError(t, s.UpdatePersonal(ctx, p, replacement))

	got, err := s.GetPersonal(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
	assert.True(t, got.Bio.IsSet(), "a set empty string must stay set")
	assert.False(t, got.FullName.IsSet())
}

func testStatsImmutable(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	p := NewPrincipal(1)

	before, err := s.GetOrCreate(ctx, p)
	require.NoError(t, err)

	require.NoError(t, s.UpdatePersonal(ctx, p, FullPersonal()))
	require.NoError(t, s.UpdateSocial(ctx, p, FullSocial()))
	require.NoError(t, s.UpdateJob(ctx, p, FullJob()))

	after, err := s.GetComplete(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, before.Stats, after.Stats)
	assert.Equal(t, before.Principal, after.Principal)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
}

func testRoundTrip(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	p := NewPrincipal(1)

	_, err := s.GetOrCreate(ctx, p)
	require.NoError(t, err)
	require.NoError(t, s.UpdatePersonal(ctx, p, FullPersonal()))
	require.NoError(t, s.UpdateSocial(ctx, p, FullSocial()))
	require.NoError(t, s.UpdateJob(ctx, p, FullJob()))

	acc, err := s.GetComplete(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, models.Profile{
		Personal: FullPersonal(),
		Social:   FullSocial(),
		Job:      FullJob(),
	}, acc.Profile)

	// Set-but-empty values are not collapsed into unset.
	empty := models.JobPreferences{
		Locations:     models.Some([]models.WorkMode{}),
		WorkplaceTags: models.Some([]string{}),
		SalaryRange:   models.Some(models.SalaryRange{}),
	}
	require.NoError(t, s.UpdateJob(ctx, p, empty))
	job, err := s.GetJob(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, empty, job)
}

func testReturnedCopies(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	p := NewPrincipal(1)

	_, err := s.GetOrCreate(ctx, p)
	require.NoError(t, err)
	require.NoError(t, s.UpdateSocial(ctx, p, FullSocial()))

	acc, err := s.GetComplete(ctx, p)
	require.NoError(t, err)
	links, _ := acc.Profile.Social.Additional.Get()
	links[0] = "https://tampered.example"
	acc.Stats.Level = 99

	again, err := s.GetComplete(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, FullSocial(), again.Profile.Social)
	assert.Equal(t, uint64(models.InitialLevel), again.Stats.Level)
}

func testPrincipalsIndependent(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	a, b := NewPrincipal(1), NewPrincipal(2)

	_, err := s.GetOrCreate(ctx, a)
	require.NoError(t, err)
	_, err = s.GetOrCreate(ctx, b)
	require.NoError(t, err)

	require.NoError(t, s.UpdatePersonal(ctx, a, FullPersonal()))

	other, err := s.GetPersonal(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, models.PersonalInfo{}, other)
}

func testConcurrentGetOrCreate(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	p := NewPrincipal(1)

	const workers = 8
	results := make([]*models.UserAccount, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.GetOrCreate(ctx, p)
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.True(t, results[0].CreatedAt.Equal(results[i].CreatedAt), "worker %d saw a different account", i)
	}
}

func testConcurrentSectionUpdates(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	p := NewPrincipal(1)

	_, err := s.GetOrCreate(ctx, p)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	wg.Add(3)
	go func() { defer wg.Done(); errs <- s.UpdatePersonal(ctx, p, FullPersonal()) }()
	go func() { defer wg.Done(); errs <- s.UpdateSocial(ctx, p, FullSocial()) }()
	go func() { defer wg.Done(); errs <- s.UpdateJob(ctx, p, FullJob()) }()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	acc, err := s.GetComplete(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, FullPersonal(), acc.Profile.Personal)
	assert.Equal(t, FullSocial(), acc.Profile.Social)
	assert.Equal(t, FullJob(), acc.Profile.Job)
}
