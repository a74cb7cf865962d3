package domscript_test

import (
	"strings"
	"testing"

	"github.com/cdpforge/cdpd/internal/domscript"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain`, `plain`},
		{`it's`, `it\'s`},
		{`say "hi"`, `say \"hi\"`},
		{`back\slash`, `back\\slash`},
		{`"'\`, `\"\'\\`},
		{`a[href='x']`, `a[href=\'x\']`},
	}
	for _, tc := range tests {
		if got := domscript.Escape(tc.in); got != tc.want {
			t.Errorf("Escape(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFindBySelectorEscapesSelector(t *testing.T) {
	script := domscript.FindBySelector(`a[href='x']`)
	if !strings.Contains(script, `querySelector('a[href=\'x\']')`) {
		t.Errorf("selector not escaped inside the quoted literal:\n%s", script)
	}
}

func TestFindAllBySelectorLimit(t *testing.T) {
	if script := domscript.FindAllBySelector("div", 0); !strings.Contains(script, "slice(0, Infinity)") {
		t.Errorf("limit 0 should be unbounded:\n%s", script)
	}
	if script := domscript.FindAllBySelector("div", 3); !strings.Contains(script, "slice(0, 3)") {
		t.Errorf("limit 3 not applied:\n%s", script)
	}
}

func TestFindByXPathEscapesExpression(t *testing.T) {
	script := domscript.FindByXPath(`//a[@href='x']`)
	if !strings.Contains(script, `document.evaluate('//a[@href=\'x\']'`) {
		t.Errorf("expression not escaped inside the quoted literal:\n%s", script)
	}
	if !strings.Contains(script, "XPathResult.FIRST_ORDERED_NODE_TYPE") {
		t.Errorf("xpath script should request the first ordered node:\n%s", script)
	}
	if !strings.Contains(script, "invalid_xpath") {
		t.Errorf("xpath script should catch malformed expressions:\n%s", script)
	}
}

func TestFindByTextUsesTreeWalker(t *testing.T) {
	script := domscript.FindByText(`it's "quoted"`)
	if !strings.Contains(script, "createTreeWalker(document.body, NodeFilter.SHOW_TEXT") {
		t.Errorf("text finder should walk body text nodes:\n%s", script)
	}
	if !strings.Contains(script, `it\'s \"quoted\"`) {
		t.Errorf("needle not escaped:\n%s", script)
	}
}

func TestFillEscapesValueAndDispatchesEvents(t *testing.T) {
	script := domscript.Fill("#name", `O'Brien`)
	if !strings.Contains(script, `el.value = 'O\'Brien'`) {
		t.Errorf("value not escaped:\n%s", script)
	}
	for _, event := range []string{"'input'", "'change'"} {
		if !strings.Contains(script, event) {
			t.Errorf("fill script missing %s event dispatch:\n%s", event, script)
		}
	}
}

func TestVisibilityWithReasonsCoversEachReason(t *testing.T) {
	script := domscript.VisibilityWithReasons("#x")
	for _, reason := range []string{"not_found", "display_none", "visibility_hidden", "zero_opacity", "zero_size"} {
		if !strings.Contains(script, reason) {
			t.Errorf("visibility script missing reason %q", reason)
		}
	}
}

func TestDragAndDropSequence(t *testing.T) {
	script := domscript.DragAndDrop("#src", "#dst")
	order := []string{"dragstart", "dragenter", "dragover", "drop", "dragend"}
	last := -1
	for _, event := range order {
		idx := strings.Index(script, "'"+event+"'")
		if idx < 0 {
			t.Fatalf("drag script missing %s:\n%s", event, script)
		}
		if idx < last {
			t.Fatalf("drag events out of order at %s:\n%s", event, script)
		}
		last = idx
	}
}

func TestPressKeyTargetsActiveElement(t *testing.T) {
	script := domscript.PressKey("Enter")
	if !strings.Contains(script, "document.activeElement") {
		t.Errorf("press-key script should target the active element:\n%s", script)
	}
	if !strings.Contains(script, "'keydown'") || !strings.Contains(script, "'keyup'") {
		t.Errorf("press-key script should dispatch keydown then keyup:\n%s", script)
	}
}
