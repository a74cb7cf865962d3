package stealth_test

import (
	"testing"

	"github.com/cdpforge/cdpd/internal/stealth"
)

func TestGeneratePlatformShapes(t *testing.T) {
	tests := []struct {
		name        string
		platform    stealth.Platform
		navPlatform string
		webglVendor string
	}{
		{"windows", stealth.PlatformWindows, "Win32", ""},
		{"macos", stealth.PlatformMacOS, "MacIntel", ""},
		{"linux", stealth.PlatformLinux, "Linux x86_64", ""},
		{"android", stealth.PlatformAndroid, "Linux armv8l", "Qualcomm"},
		{"ios", stealth.PlatformIOS, "iPhone", "Apple Inc."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fp := stealth.Generate(tc.platform)
			if fp.Platform != tc.platform {
				t.Errorf("Platform = %v, want %v", fp.Platform, tc.platform)
			}
			if fp.Headers.UserAgent == "" {
				t.Error("empty user agent")
			}
			if fp.Navigator.Platform != tc.navPlatform {
				t.Errorf("Navigator.Platform = %q, want %q", fp.Navigator.Platform, tc.navPlatform)
			}
			if tc.webglVendor != "" && fp.WebGL.Vendor != tc.webglVendor {
				t.Errorf("WebGL.Vendor = %q, want %q", fp.WebGL.Vendor, tc.webglVendor)
			}
			if fp.Screen.Width == 0 || fp.Screen.Height == 0 {
				t.Errorf("zero screen dimensions: %+v", fp.Screen)
			}
			if fp.Navigator.Language != fp.Headers.Language {
				t.Errorf("language mismatch: navigator %q vs headers %q", fp.Navigator.Language, fp.Headers.Language)
			}
		})
	}
}

func TestGenerateDrawsFromCuratedPools(t *testing.T) {
	concurrency := map[int]bool{4: true, 6: true, 8: true, 12: true, 16: true, 24: true, 32: true}
	memory := map[int]bool{4: true, 8: true, 16: true, 32: true}

	for i := 0; i < 50; i++ {
		fp := stealth.Generate(stealth.PlatformWindows)
		if !concurrency[fp.Navigator.HardwareConcurrency] {
			t.Fatalf("hardware concurrency %d not in curated pool", fp.Navigator.HardwareConcurrency)
		}
		if !memory[fp.Navigator.DeviceMemory] {
			t.Fatalf("device memory %d not in curated pool", fp.Navigator.DeviceMemory)
		}
	}
}

func TestGenerateCustomHonorsOverrides(t *testing.T) {
	fp := stealth.GenerateCustom(stealth.CustomOptions{
		UserAgent: "custom-ua/1.0",
		Platform:  "PlayStation 5",
		Viewport:  &stealth.Screen{Width: 800, Height: 600},
	})
	if fp.Platform != stealth.PlatformCustom {
		t.Errorf("Platform = %v, want PlatformCustom", fp.Platform)
	}
	if fp.Headers.UserAgent != "custom-ua/1.0" {
		t.Errorf("UserAgent = %q", fp.Headers.UserAgent)
	}
	if fp.Navigator.Platform != "PlayStation 5" {
		t.Errorf("Navigator.Platform = %q", fp.Navigator.Platform)
	}
	if fp.Screen.Width != 800 || fp.Screen.Height != 600 {
		t.Errorf("Screen = %+v, want 800x600", fp.Screen)
	}
}

func TestGenerateCustomFillsDefaults(t *testing.T) {
	fp := stealth.GenerateCustom(stealth.CustomOptions{})
	if fp.Platform != stealth.PlatformCustom {
		t.Errorf("Platform = %v, want PlatformCustom", fp.Platform)
	}
	if fp.Headers.UserAgent == "" {
		t.Error("empty default user agent")
	}
	if fp.Screen.Width == 0 || fp.Screen.Height == 0 {
		t.Errorf("zero default screen: %+v", fp.Screen)
	}
}

func TestPlatformKey(t *testing.T) {
	tests := []struct {
		platform stealth.Platform
		key      string
	}{
		{stealth.PlatformWindows, "windows"},
		{stealth.PlatformMacOS, "macos"},
		{stealth.PlatformLinux, "linux"},
		{stealth.PlatformAndroid, "android"},
		{stealth.PlatformIOS, "ios"},
		{stealth.PlatformCustom, "custom"},
	}
	for _, tc := range tests {
		if got := tc.platform.Key(); got != tc.key {
			t.Errorf("Key(%v) = %q, want %q", tc.platform, got, tc.key)
		}
	}
}
