package hub

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
)

func TestCacheRootOrder(t *testing.T) {
	home, err := homedir.Dir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		name     string
		env      Env
		override string
		want     string
	}{
		{"default", Env{}, "", filepath.Join(home, ".cache", "huggingface", "hub")},
		{"hf home", Env{Home: "/srv/hf"}, "", "/srv/hf"},
		{"hub cache beats hf home", Env{HubCache: "/srv/cache", Home: "/srv/hf"}, "", "/srv/cache"},
		{"override beats env", Env{HubCache: "/srv/cache"}, "/tmp/x", "/tmp/x"},
		{"tilde override", Env{}, "~/models", filepath.Join(home, "models")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.env.CacheRoot(tt.override)
			if err != nil {
				t.Fatalf("CacheRoot failed: %v", err)
			}
			if filepath.Clean(got) != filepath.Clean(tt.want) {
				t.Errorf("CacheRoot() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("HF_HUB_CACHE", "/data/hub")
	t.Setenv("HF_TOKEN", "hf_abc")
	for _, k := range []string{"HF_HOME", "HF_ENDPOINT"} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}

	e, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if e.HubCache != "/data/hub" || e.Token != "hf_abc" {
		t.Errorf("Unexpected env %+v", e)
	}
	if e.Endpoint != DefaultEndpoint {
		t.Errorf("Expected default endpoint, got %q", e.Endpoint)
	}
}
