// Package app provides the application context for orangectl.
//
// This package manages application-wide dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Paths      *config.Paths       // File system paths
//	    HostConfig *config.HostConfig  // Host configuration
//	    Dialer     sandbox.Dialer      // Runner client factory
//	    Store      storage.ObjectStore // Durable archive store
//	}
//
// # Creating an App
//
// Use New with functional options:
//
//	// Production usage
//	a := app.New()
//
//	// Testing with custom dependencies
//	a := app.New(
//	    app.WithPaths(testPaths),
//	    app.WithHostConfig(testConfig),
//	    app.WithDialer(mockDialer),
//	    app.WithStore(memStore),
//	)
//
// # Runner Resolution
//
// Instances hash onto the fixed runner pool; the App resolves an instance
// id to its runner client in one call:
//
//	client, err := app.Default.DialInstance(instanceID)
package app
