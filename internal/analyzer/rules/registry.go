package rules

import "github.com/aqasim81/animals/internal/analyzer"

// NewDefaultRegistry returns a Registry with all built-in detection rules.
func NewDefaultRegistry() *analyzer.Registry {
	r := analyzer.NewRegistry()
	r.Register(NewCreateIndexRule())
	r.Register(NewAddColumnRule())
	r.Register(NewDropColumnRule())
	r.Register(NewDropTableRule())
	r.Register(NewPolymorphicIndexRule())

	return r
}
