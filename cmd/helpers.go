package cmd

import (
	"github.com/yomna-shousha/orange-build-sub000/internal/app"
	"github.com/yomna-shousha/orange-build-sub000/internal/archive"
	"github.com/yomna-shousha/orange-build-sub000/internal/audit"
	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/instance"
	"github.com/yomna-shousha/orange-build-sub000/internal/template"
)

// paths returns the default paths configuration.
// This is a helper to reduce repetition in commands.
func paths() *config.Paths {
	return app.Default.Paths
}

// orchestrator builds the lifecycle orchestrator on the default app.
func orchestrator() *instance.Orchestrator {
	return instance.New(app.Default)
}

// engine builds the save/resume engine wired to the orchestrator's resume
// path.
func engine() *archive.Engine {
	return archive.NewEngine(app.Default, orchestrator())
}

// auditLogger returns the lifecycle event logger.
func auditLogger() *audit.Logger {
	return audit.NewLogger(paths().EventsDir)
}

// templateRepo returns the template repository, or nil when object storage
// is not configured.
func templateRepo() *template.Repository {
	if app.Default.Store == nil {
		return nil
	}
	return template.NewRepository(app.Default.Store)
}
