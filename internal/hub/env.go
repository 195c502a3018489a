// Package hub talks to a Hugging Face style model hub and maintains the
// local snapshot cache the voice resolver reads.
package hub

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/go-homedir"
)

// DefaultCacheDir is used when neither HF_HUB_CACHE nor HF_HOME is set.
const DefaultCacheDir = "~/.cache/huggingface/hub"

// DefaultEndpoint is the public hub.
const DefaultEndpoint = "https://huggingface.co"

// Env is the hub environment.
type Env struct {
	HubCache string `env:"HF_HUB_CACHE"`
	Home     string `env:"HF_HOME"`
	Endpoint string `env:"HF_ENDPOINT" envDefault:"https://huggingface.co"`
	Token    string `env:"HF_TOKEN"`
}

// LoadEnv reads Env from the process environment.
func LoadEnv() (Env, error) {
	e, err := env.ParseAs[Env]()
	if err != nil {
		return Env{}, fmt.Errorf("error parsing hub environment: %w", err)
	}
	return e, nil
}

// CacheRoot returns the cache directory: HF_HUB_CACHE, then HF_HOME, then
// DefaultCacheDir. override, when set, wins over all of them.
func (e Env) CacheRoot(override string) (string, error) {
	dir := DefaultCacheDir
	switch {
	case override != "":
		dir = override
	case e.HubCache != "":
		dir = e.HubCache
	case e.Home != "":
		dir = e.Home
	}

	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("unable to expand cache dir %q: %w", dir, err)
	}
	return expanded, nil
}
