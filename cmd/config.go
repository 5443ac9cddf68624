package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hospicebridge/adtbridge/component/forward"
	libHTTP "github.com/hospicebridge/adtbridge/component/http"
	"github.com/hospicebridge/adtbridge/component/mllp"
	"github.com/hospicebridge/adtbridge/component/relay"
	"github.com/hospicebridge/adtbridge/component/tracing"
	"github.com/hospicebridge/adtbridge/pipeline"
)

const configFile = "config/adtbridge.yml"

// envPrefix namespaces environment variables, e.g. ADTB_MLLP_ADDRESS or
// ADTB_FORWARD_FHIRBASEURL.
const envPrefix = "ADTB_"

type Config struct {
	HTTP     libHTTP.Config  `koanf:"http"`
	MLLP     mllp.Config     `koanf:"mllp"`
	Relay    relay.Config    `koanf:"relay"`
	Forward  forward.Config  `koanf:"forward"`
	Tracing  tracing.Config  `koanf:"tracing"`
	Pipeline pipeline.Config `koanf:"pipeline"`
}

func DefaultConfig() Config {
	return Config{
		HTTP:     libHTTP.DefaultConfig(),
		Relay:    relay.DefaultConfig(),
		Forward:  forward.DefaultConfig(),
		Tracing:  tracing.DefaultConfig(),
		Pipeline: pipeline.DefaultConfig(),
	}
}

// LoadConfig layers configuration sources: defaults, then config/adtbridge.yml
// when present, then ADTB_-prefixed environment variables.
func LoadConfig() (Config, error) {
	config := DefaultConfig()
	k := koanf.New(".")

	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", configFile, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(name string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, envPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load environment variables: %w", err)
	}

	if err := k.Unmarshal("", &config); err != nil {
		return Config{}, fmt.Errorf("unmarshal configuration: %w", err)
	}
	return config, nil
}
