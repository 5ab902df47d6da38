package animal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Service applies validation and timestamping on top of a Repository.
type Service struct {
	repo     Repository
	registry *OwnerRegistry
	now      func() time.Time
	logger   zerolog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithOwnerRegistry makes the service confirm owners exist before
// attaching them to an animal.
func WithOwnerRegistry(reg *OwnerRegistry) ServiceOption {
	return func(s *Service) { s.registry = reg }
}

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService wraps repo.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		now:    time.Now,
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateInput holds the caller-settable fields of a new animal.
type CreateInput struct {
	Name  *string
	Owner *Owner
}

// Create stores a new animal with created_at and updated_at both set to now.
func (s *Service) Create(ctx context.Context, in CreateInput) (Animal, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return Animal{}, err
	}

	if err := s.checkOwner(ctx, in.Owner); err != nil {
		return Animal{}, err
	}

	now := s.timestamp()
	a, err := s.repo.Create(ctx, Animal{
		Name:      name,
		Owner:     in.Owner,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Animal{}, err
	}

	s.logger.Debug().Int64("id", a.ID).Str("owner", ownerLabel(a.Owner)).Msg("animal created")

	return a, nil
}

// Get returns one animal.
func (s *Service) Get(ctx context.Context, id int64) (Animal, error) {
	return s.repo.Get(ctx, id)
}

// UpdateInput lists what an update changes. Fields whose Set flag is
// false keep their stored value; a set field with a nil value is cleared.
type UpdateInput struct {
	SetName  bool
	Name     *string
	SetOwner bool
	Owner    *Owner
}

// Update validates every requested change, then writes them in one row
// update that also bumps updated_at. created_at never changes.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Animal, error) {
	if !in.SetName && !in.SetOwner {
		return Animal{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	var name *string

	if in.SetName {
		var err error
		if name, err = normalizeName(in.Name); err != nil {
			return Animal{}, err
		}
	}

	if in.SetOwner {
		if err := s.checkOwner(ctx, in.Owner); err != nil {
			return Animal{}, err
		}
	}

	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Animal{}, err
	}

	if in.SetName {
		a.Name = name
	}

	if in.SetOwner {
		a.Owner = in.Owner
	}

	a.UpdatedAt = s.timestamp()

	if err := s.repo.Update(ctx, a); err != nil {
		return Animal{}, err
	}

	s.logger.Debug().Int64("id", a.ID).Str("owner", ownerLabel(a.Owner)).Msg("animal updated")

	return a, nil
}

// Delete removes an animal.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Debug().Int64("id", id).Msg("animal deleted")

	return nil
}

// ListByOwner returns the animals owned by o, oldest first.
func (s *Service) ListByOwner(ctx context.Context, o Owner) ([]Animal, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	return s.repo.ListByOwner(ctx, o)
}

func (s *Service) checkOwner(ctx context.Context, o *Owner) error {
	if o == nil {
		return nil
	}

	if err := o.Validate(); err != nil {
		return err
	}

	if s.registry == nil {
		return nil
	}

	label, err := s.registry.Resolve(ctx, *o)
	if err != nil {
		return fmt.Errorf("checking owner: %w", err)
	}

	s.logger.Debug().Str("owner", o.String()).Str("label", label).Msg("owner resolved")

	return nil
}

// timestamp returns now in UTC at microsecond precision, which is what a
// TIMESTAMP column keeps.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// normalizeName trims surrounding space. A name that is present but
// blank is rejected; use nil for "no name".
func normalizeName(name *string) (*string, error) {
	if name == nil {
		return nil, nil //nolint:nilnil // absent name is valid
	}

	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: name must not be blank", ErrInvalidInput)
	}

	return &trimmed, nil
}

func ownerLabel(o *Owner) string {
	if o == nil {
		return "none"
	}

	return o.String()
}
