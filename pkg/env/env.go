package env

import (
	"time"

	"github.com/conveyor-cloud/conveyor/pkg/log"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

var variables = new(Environment)

// Process the environment variables set for conveyor.
func Process() error {
	if err := envconfig.Process("conveyor", variables); err != nil {
		return errors.Wrap(err, "failed to process environment variables")
	}

	// set the log level
	if err := log.SetLevelFromString(variables.LogLevel); err != nil {
		return errors.Wrap(err, "failed to set log level")
	}

	return nil
}

// Variables returns the processed environment variables.
func Variables() Environment {
	return *variables
}

// Environment defines the environment variables used
// by conveyor.
type Environment struct {
	LogLevel          string        `default:"info"`
	Port              int           `default:"8080"`
	DatabaseType      string        `default:"sqlite"`
	DatabaseDSN       string        `default:"file:conveyor.db"`
	PieceManifestDir  string        `default:"./pieces"`
	PollInterval      time.Duration `default:"30s"`
	PollTimeout       time.Duration `default:"15s"`
	PollWorkers       int           `default:"8"`
	FlowRunnerURL     string        `default:""`
	EmitTimeout       time.Duration `default:"10s"`
	DegradedThreshold int           `default:"5"`
	AdminToken        string        `default:""`
}
