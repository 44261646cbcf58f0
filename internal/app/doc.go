// Package app provides the application context for forage-gw.
//
// This package manages application-wide dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Config      *config.Config          // Supervisor configuration
//	    FS          system.FileSystem       // Config file access
//	    Executor    system.CommandExecutor  // Container engine driver
//	    Audit       audit.Sink              // Lifecycle events
//	    OpenSandbox SandboxFactory          // Sandbox by container name
//	}
//
// # Creating an App
//
//	// Production usage
//	a, err := app.Load(system.DefaultFS(), "")
//
//	// Testing with custom dependencies
//	a := app.New(
//	    app.WithConfig(cfg),
//	    app.WithSandboxFactory(func(name string) (runtime.Sandbox, error) {
//	        return runtime.NewMockSandbox(name), nil
//	    }),
//	)
package app
