package stealth_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cdpforge/cdpd/internal/stealth"
)

const presetYAML = `user_agents:
  windows:
    - "preset-ua-one"
    - "preset-ua-two"
locales:
  - "nl-NL"
`

func TestEmptyPathPresetStore(t *testing.T) {
	store, err := stealth.LoadPresetStore("")
	if err != nil {
		t.Fatalf("LoadPresetStore: %v", err)
	}
	defer store.Close()

	ov := store.Overrides()
	if len(ov.UserAgents) != 0 || len(ov.Locales) != 0 {
		t.Errorf("empty store carries overrides: %+v", ov)
	}
}

func TestLoadPresetStoreMissingFile(t *testing.T) {
	if _, err := stealth.LoadPresetStore(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing preset file")
	}
}

func TestPresetsOverrideGeneratorPools(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte(presetYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := stealth.LoadPresetStore(path)
	if err != nil {
		t.Fatalf("LoadPresetStore: %v", err)
	}
	defer store.Close()

	stealth.UsePresets(store)
	t.Cleanup(func() { stealth.UsePresets(nil) })

	uas := map[string]bool{"preset-ua-one": true, "preset-ua-two": true}
	for i := 0; i < 20; i++ {
		fp := stealth.Generate(stealth.PlatformWindows)
		if !uas[fp.Headers.UserAgent] {
			t.Fatalf("user agent %q not from preset pool", fp.Headers.UserAgent)
		}
		if fp.Headers.Language != "nl-NL" {
			t.Fatalf("language = %q, want nl-NL", fp.Headers.Language)
		}
	}

	// Platforms without an override keep the built-in pool.
	fp := stealth.Generate(stealth.PlatformMacOS)
	if uas[fp.Headers.UserAgent] {
		t.Errorf("macos draw unexpectedly hit the windows preset pool: %q", fp.Headers.UserAgent)
	}
}

func TestPresetStoreHotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte(presetYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := stealth.LoadPresetStore(path)
	if err != nil {
		t.Fatalf("LoadPresetStore: %v", err)
	}
	defer store.Close()

	updated := `locales:
  - "sv-SE"
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ov := store.Overrides()
		if len(ov.Locales) == 1 && ov.Locales[0] == "sv-SE" {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("preset file change never observed, overrides still %+v", store.Overrides())
}
