package animal

import "context"

// Repository persists animals. Create assigns the id.
type Repository interface {
	Create(ctx context.Context, a Animal) (Animal, error)
	Get(ctx context.Context, id int64) (Animal, error)
	Update(ctx context.Context, a Animal) error
	Delete(ctx context.Context, id int64) error
	ListByOwner(ctx context.Context, o Owner) ([]Animal, error)
}
