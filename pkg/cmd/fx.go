package cmd

import "go.uber.org/fx"

var Module = fx.Module("cli",
	fx.Provide(
		fx.Annotate(justice, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(operations, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(financial, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(lob, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(runAll, fx.ResultTags(`group:"commands"`)),
	),
	fx.Invoke(Run),
)
