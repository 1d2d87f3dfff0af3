package issue

import (
	"go.uber.org/fx"
)

// NewIssueModule provides Repository and Reader backed by Mongo.
func NewIssueModule() fx.Option {
	return fx.Module("issue",
		fx.Provide(
			newRepository,
			func(r Repository) Reader { return r },
		),
	)
}
