// Package stealth implements per-platform fingerprint generation and the
// engine that deterministically injects the generated overrides into a page
// via CDP.
package stealth

import "math/rand"

// Platform enumerates the fingerprint's target platform.
type Platform int

const (
	PlatformWindows Platform = iota
	PlatformMacOS
	PlatformLinux
	PlatformAndroid
	PlatformIOS
	PlatformCustom
)

// Headers holds the header-visible identity fields.
type Headers struct {
	UserAgent string
	Language  string
}

// Navigator holds navigator-object-visible fields.
type Navigator struct {
	Platform            string
	Vendor              string
	HardwareConcurrency int
	DeviceMemory        int
	Language            string
}

// Screen holds screen-object-visible fields.
type Screen struct {
	Width, Height int
}

// WebGL holds the spoofed WebGL vendor/renderer strings.
type WebGL struct {
	Vendor   string
	Renderer string
}

// Fingerprint is the full browser-observable property set the stealth
// pipeline overrides.
type Fingerprint struct {
	Platform  Platform
	Headers   Headers
	Navigator Navigator
	Screen    Screen
	WebGL     WebGL
}

var userAgentPools = map[Platform][]string{
	PlatformWindows: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	},
	PlatformMacOS: {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	},
	PlatformLinux: {
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	},
	PlatformAndroid: {
		"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36",
	},
	PlatformIOS: {
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	},
}

var screenResolutions = map[Platform][][2]int{
	PlatformWindows: {{1920, 1080}, {2560, 1440}, {3840, 2160}, {1366, 768}},
	PlatformMacOS:   {{1440, 900}, {2560, 1600}, {1920, 1080}},
	PlatformLinux:   {{1920, 1080}, {1366, 768}, {2560, 1440}},
	PlatformAndroid: {{1080, 2340}, {1440, 3120}},
	PlatformIOS:     {{1170, 2532}, {1284, 2778}},
}

var webglProfiles = map[Platform][][2]string{
	PlatformWindows: {
		{"Google Inc. (NVIDIA)", "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
		{"Google Inc. (Intel)", "ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
	},
	PlatformMacOS: {
		{"Apple Inc.", "Apple M1"},
		{"Apple Inc.", "Apple M2"},
	},
	PlatformLinux: {
		{"Mesa/X.org", "llvmpipe (LLVM 15.0.6, 256 bits)"},
	},
}

var localeList = []string{"en-US", "en-GB", "de-DE", "fr-FR", "es-ES", "pt-BR", "ja-JP"}

// Key returns the lowercase name used for a platform in preset files and on
// the wire ("windows", "macos", "linux", "android", "ios", "custom").
func (p Platform) Key() string {
	switch p {
	case PlatformMacOS:
		return "macos"
	case PlatformLinux:
		return "linux"
	case PlatformAndroid:
		return "android"
	case PlatformIOS:
		return "ios"
	case PlatformCustom:
		return "custom"
	default:
		return "windows"
	}
}

var hardwareConcurrencyPool = []int{4, 6, 8, 12, 16, 24, 32}
var deviceMemoryPool = []int{4, 8, 16, 32}

// Generate produces a Fingerprint for the given platform, choosing each
// field uniformly at random from the curated pools.
func Generate(p Platform) Fingerprint {
	overrides := presetOverrides()

	uaPool := overrides.UserAgents[p.Key()]
	if len(uaPool) == 0 {
		uaPool = userAgentPools[p]
	}
	if len(uaPool) == 0 {
		uaPool = userAgentPools[PlatformWindows]
	}
	resPool := screenResolutions[p]
	if len(resPool) == 0 {
		resPool = screenResolutions[PlatformWindows]
	}
	glPool := webglProfiles[p]
	if len(glPool) == 0 {
		glPool = webglProfiles[PlatformWindows]
	}
	locales := overrides.Locales
	if len(locales) == 0 {
		locales = localeList
	}

	res := resPool[rand.Intn(len(resPool))]
	gl := glPool[rand.Intn(len(glPool))]
	lang := locales[rand.Intn(len(locales))]

	vendor, nPlatform := navigatorVendorAndPlatform(p)
	if p == PlatformAndroid {
		gl = [2]string{"Qualcomm", "Adreno (TM) 740"}
	}
	if p == PlatformIOS {
		gl = [2]string{"Apple Inc.", "Apple GPU"}
	}

	return Fingerprint{
		Platform: p,
		Headers:  Headers{UserAgent: uaPool[rand.Intn(len(uaPool))], Language: lang},
		Navigator: Navigator{
			Platform:            nPlatform,
			Vendor:              vendor,
			HardwareConcurrency: hardwareConcurrencyPool[rand.Intn(len(hardwareConcurrencyPool))],
			DeviceMemory:        deviceMemoryPool[rand.Intn(len(deviceMemoryPool))],
			Language:            lang,
		},
		Screen: Screen{Width: res[0], Height: res[1]},
		WebGL:  WebGL{Vendor: gl[0], Renderer: gl[1]},
	}
}

func navigatorVendorAndPlatform(p Platform) (vendor, platform string) {
	switch p {
	case PlatformMacOS:
		return "Google Inc.", "MacIntel"
	case PlatformLinux:
		return "Google Inc.", "Linux x86_64"
	case PlatformAndroid:
		return "Google Inc.", "Linux armv8l"
	case PlatformIOS:
		return "Apple Computer, Inc.", "iPhone"
	default:
		return "Google Inc.", "Win32"
	}
}

// Randomize produces a new Fingerprint equal to fp except: new hardware
// concurrency, new device memory, and screen width/height jittered by ±5px
// (clamped to a 1024×768 minimum).
func Randomize(fp Fingerprint) Fingerprint {
	out := fp
	out.Navigator.HardwareConcurrency = hardwareConcurrencyPool[rand.Intn(len(hardwareConcurrencyPool))]
	out.Navigator.DeviceMemory = deviceMemoryPool[rand.Intn(len(deviceMemoryPool))]

	jitter := func(v int) int {
		delta := rand.Intn(11) - 5 // -5..+5
		return v + delta
	}
	out.Screen.Width = jitter(fp.Screen.Width)
	out.Screen.Height = jitter(fp.Screen.Height)
	if out.Screen.Width < 1024 {
		out.Screen.Width = 1024
	}
	if out.Screen.Height < 768 {
		out.Screen.Height = 768
	}
	return out
}

// CustomOptions are the optional overrides honored by GenerateCustom.
type CustomOptions struct {
	UserAgent string
	Platform  string
	Viewport  *Screen
}

// GenerateCustom honors optional overrides and fills defaults otherwise.
func GenerateCustom(opts CustomOptions) Fingerprint {
	fp := Generate(PlatformWindows)
	fp.Platform = PlatformCustom
	if opts.UserAgent != "" {
		fp.Headers.UserAgent = opts.UserAgent
	}
	if opts.Platform != "" {
		fp.Navigator.Platform = opts.Platform
	}
	if opts.Viewport != nil {
		fp.Screen = *opts.Viewport
	}
	return fp
}
