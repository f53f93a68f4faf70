// Package profile turns partial section updates into the complete sections the
// account store persists. The store replaces sections wholesale, so merging and
// validation both happen here.
package profile

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmynk/profilekeeper/internal/models"
	"github.com/mmynk/profilekeeper/internal/storage"
)

const tracerName = "github.com/mmynk/profilekeeper/internal/profile"

// Assembler reads the stored section, applies a patch, validates the result
// and writes it back. Nothing is written when validation fails.
//
// Two concurrent updates of the same section resolve as last writer wins.
type Assembler struct {
	store     storage.AccountStore
	validator *Validator
	tracer    trace.Tracer
}

// NewAssembler returns an assembler that validates with v before writing to
// store.
func NewAssembler(store storage.AccountStore, v *Validator) *Assembler {
	return &Assembler{
		store:     store,
		validator: v,
		tracer:    otel.Tracer(tracerName),
	}
}

// AssemblePersonal returns storage.ErrNotFound when p has no account.
func (a *Assembler) AssemblePersonal(ctx context.Context, p models.Principal, patch PersonalPatch) (models.PersonalInfo, error) {
	return assemble(ctx, a, p, models.SectionPersonal,
		a.store.GetPersonal,
		func(cur models.PersonalInfo) models.PersonalInfo { return MergePersonal(cur, patch) },
		a.validator.ValidatePersonal,
		a.store.UpdatePersonal,
	)
}

// AssembleSocial returns storage.ErrNotFound when p has no account.
func (a *Assembler) AssembleSocial(ctx context.Context, p models.Principal, patch SocialPatch) (models.SocialLinks, error) {
	return assemble(ctx, a, p, models.SectionSocial,
		a.store.GetSocial,
		func(cur models.SocialLinks) models.SocialLinks { return MergeSocial(cur, patch) },
		a.validator.ValidateSocial,
		a.store.UpdateSocial,
	)
}

// AssembleJob stores and returns the normalized section.
func (a *Assembler) AssembleJob(ctx context.Context, p models.Principal, patch JobPatch) (models.JobPreferences, error) {
	return assemble(ctx, a, p, models.SectionJob,
		a.store.GetJob,
		func(cur models.JobPreferences) models.JobPreferences { return MergeJob(cur, patch) },
		a.validator.ValidateJob,
		a.store.UpdateJob,
	)
}

func assemble[T any](
	ctx context.Context,
	a *Assembler,
	p models.Principal,
	section models.Section,
	load func(context.Context, models.Principal) (T, error),
	merge func(T) T,
	validate func(T) (T, error),
	save func(context.Context, models.Principal, T) error,
) (T, error) {
	ctx, span := a.tracer.Start(ctx, "profile.Assemble",
		trace.WithAttributes(
			attribute.String("profile.section", string(section)),
			attribute.String("profile.principal", p.String()),
		),
	)
	defer span.End()

	var zero T
	fail := func(err error) (T, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}

	cur, err := load(ctx, p)
	if err != nil {
		return fail(err)
	}
	next, err := validate(merge(cur))
	if err != nil {
		return fail(err)
	}
	if err := save(ctx, p, next); err != nil {
		return fail(err)
	}
	return next, nil
}
