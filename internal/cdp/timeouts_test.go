package cdp

import "testing"

func TestTimeoutPolicySelection(t *testing.T) {
	p := DefaultTimeoutPolicy()

	cases := []struct {
		method string
		want   string
	}{
		{"Page.captureScreenshot", "90s"},
		{"DOM.captureScreenshotOfNode", "90s"},
		{"Page.navigate", "1m0s"},
		{"Page.reload", "1m0s"},
		{"Runtime.evaluate", "30s"},
		{"Runtime.callFunctionOn", "30s"},
		{"DOM.getOuterHTML", "30s"},
		{"PAGE.NAVIGATE", "1m0s"},
	}

	for _, c := range cases {
		got := p.For(c.method).String()
		if got != c.want {
			t.Errorf("For(%q) = %s, want %s", c.method, got, c.want)
		}
	}
}
