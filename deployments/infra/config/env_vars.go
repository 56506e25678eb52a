package config

import (
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/caarlos0/env/v11"
)

type ColdstartStackEnvironmentVariables struct {
	// ResultsBucketName is generated from the stack name when empty
	ResultsBucketName string `env:"COLDSTART_RESULTS_BUCKET"`
	ResultsPrefix     string `env:"COLDSTART_RESULTS_PREFIX" envDefault:"coldstart"`
	// KeepResults retains the bucket when the stack is destroyed
	KeepResults bool `env:"COLDSTART_KEEP_RESULTS" envDefault:"true"`
}

func GetEnvironmentVariables[T any](scope constructs.Construct) T {
	var envObj T

	// only run if we are synthesizing the stack
	if !IsStackInSynthesis(scope) {
		return envObj
	}

	err := env.Parse(&envObj)
	if err != nil {
		panic(err)
	}

	return envObj
}
