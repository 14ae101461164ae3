/*
Prism opens a window and draws a single triangle with Vulkan.
The configuration is read from config.toml, or from the file named by
PRISM_CONFIG.
*/
package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/core"
)

func main() {
	os.Exit(run())
}

// run owns the whole lifecycle so deferred teardown happens before exit.
func run() int {
	core.SetLogSession(uuid.NewString())

	config, err := engine.LoadConfig(engine.ConfigPath())
	if err != nil {
		return fail(err)
	}
	core.SetLogLevel(config.LogLevel)

	e, err := engine.New(config)
	if err != nil {
		return fail(err)
	}

	runErr := e.Initialize()
	if runErr == nil {
		runErr = e.Run(context.Background())
	}
	if err := e.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return fail(runErr)
	}
	return 0
}

func fail(err error) int {
	core.LogError("%s failed: %v", core.ErrorKind(err), err)
	return 1
}
