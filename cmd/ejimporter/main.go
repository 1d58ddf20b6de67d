package main

import (
	"context"
	"os"

	"github.com/Hephree4887/EJSupervision-Importer/pkg/cmd"
	"github.com/Hephree4887/EJSupervision-Importer/pkg/config"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// NB: These are set by GoReleaser during a build.
var (
	version string
	commit  string
	date    string
)

func main() {
	// Local runs keep the legacy connection settings in a .env file.
	_ = godotenv.Load()

	fx.New(
		fx.NopLogger,
		fx.Provide(
			func() context.Context { return context.Background() },
			func() []string { return os.Args },
		),
		fx.Supply(&cmd.Version{
			Version:   version,
			Commit:    commit,
			Timestamp: date,
		}),
		config.Module,
		cmd.Module,
	).Run()
}
