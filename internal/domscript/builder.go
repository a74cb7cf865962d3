// Package domscript centralizes the server-generated JavaScript used for
// higher-level element operations (find-by-CSS/text, fill, press-key,
// drag-and-drop, visibility with reasons), which are evaluated via
// Runtime.evaluate rather than issued as direct CDP DOM-domain calls.
package domscript

import "fmt"

// Escape replaces backslash/single-quote/double-quote so a value can be
// safely interpolated inside a single-quoted JS string literal. Every
// builder in this package goes through it; there is no second escaping rule.
func Escape(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '\\':
			out = append(out, '\\', '\\')
		case '\'':
			out = append(out, '\\', '\'')
		case '"':
			out = append(out, '\\', '"')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// FindBySelector returns JS reporting whether a CSS selector matches any
// element, as a JSON-stringified {found: bool}. It is a pure existence
// probe: callers that need an addressable node handle go through the
// DOM-domain find-element path instead, which resolves the selector to a
// backend node id.
func FindBySelector(selector string) string {
	return fmt.Sprintf(`(() => {
  const el = document.querySelector('%s');
  return JSON.stringify({ found: !!el });
})();`, Escape(selector))
}

// FindByXPath evaluates an XPath expression via document.evaluate and
// reports the first match, JSON-stringified as {found, tag}. A malformed
// expression reports {found: false, error: "invalid_xpath"} rather than
// throwing back through Runtime.evaluate.
func FindByXPath(expression string) string {
	return fmt.Sprintf(`(() => {
  let result;
  try {
    result = document.evaluate('%s', document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
  } catch (e) {
    return JSON.stringify({ found: false, error: 'invalid_xpath' });
  }
  const node = result.singleNodeValue;
  if (!node) return JSON.stringify({ found: false });
  const el = node.nodeType === Node.ELEMENT_NODE ? node : node.parentElement;
  return JSON.stringify({ found: true, tag: el ? el.tagName : null });
})();`, Escape(expression))
}

// FindAllBySelector bounds the match count by an optional limit (0 means
// unbounded).
func FindAllBySelector(selector string, limit int) string {
	limitExpr := "Infinity"
	if limit > 0 {
		limitExpr = fmt.Sprintf("%d", limit)
	}
	return fmt.Sprintf(`(() => {
  const all = Array.from(document.querySelectorAll('%s')).slice(0, %s);
  return JSON.stringify({ count: all.length });
})();`, Escape(selector), limitExpr)
}

// FindByText walks document.body with a TreeWalker over text nodes,
// returning whether the parent element of the first matching node exists.
func FindByText(text string) string {
	return fmt.Sprintf(`(() => {
  const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT, null);
  let node;
  while ((node = walker.nextNode())) {
    if (node.nodeValue && node.nodeValue.includes('%s')) {
      return JSON.stringify({ found: true, tag: node.parentElement ? node.parentElement.tagName : null });
    }
  }
  return JSON.stringify({ found: false });
})();`, Escape(text))
}

// Fill returns JS that sets an input's value and dispatches input/change
// events so framework-bound listeners observe the change.
func Fill(selector, value string) string {
	return fmt.Sprintf(`(() => {
  const el = document.querySelector('%s');
  if (!el) return JSON.stringify({ ok: false, reason: 'not_found' });
  el.value = '%s';
  el.dispatchEvent(new Event('input', { bubbles: true }));
  el.dispatchEvent(new Event('change', { bubbles: true }));
  return JSON.stringify({ ok: true });
})();`, Escape(selector), Escape(value))
}

// VisibilityWithReasons reports not just whether an element is visible but
// why not, for diagnostics beyond the plain boolean the Element Ref's
// is_visible exposes.
func VisibilityWithReasons(selector string) string {
	return fmt.Sprintf(`(() => {
  const el = document.querySelector('%s');
  if (!el) return JSON.stringify({ visible: false, reason: 'not_found' });
  const style = window.getComputedStyle(el);
  const rect = el.getBoundingClientRect();
  if (style.display === 'none') return JSON.stringify({ visible: false, reason: 'display_none' });
  if (style.visibility === 'hidden') return JSON.stringify({ visible: false, reason: 'visibility_hidden' });
  if (parseFloat(style.opacity) === 0) return JSON.stringify({ visible: false, reason: 'zero_opacity' });
  if (rect.width === 0 || rect.height === 0) return JSON.stringify({ visible: false, reason: 'zero_size' });
  return JSON.stringify({ visible: true, reason: null });
})();`, Escape(selector))
}

// DragAndDrop synthesizes the drag event sequence between two selectors.
func DragAndDrop(sourceSelector, targetSelector string) string {
	return fmt.Sprintf(`(() => {
  const source = document.querySelector('%s');
  const target = document.querySelector('%s');
  if (!source || !target) return JSON.stringify({ ok: false, reason: 'not_found' });
  const rectS = source.getBoundingClientRect();
  const rectT = target.getBoundingClientRect();
  const dataTransfer = new DataTransfer();
  const fire = (type, el, x, y) => el.dispatchEvent(new DragEvent(type, { bubbles: true, cancelable: true, dataTransfer, clientX: x, clientY: y }));
  fire('dragstart', source, rectS.x, rectS.y);
  fire('dragenter', target, rectT.x, rectT.y);
  fire('dragover', target, rectT.x, rectT.y);
  fire('drop', target, rectT.x, rectT.y);
  fire('dragend', source, rectT.x, rectT.y);
  return JSON.stringify({ ok: true });
})();`, Escape(sourceSelector), Escape(targetSelector))
}

// PressKey dispatches a synthetic keyboard event sequence against
// document.activeElement.
func PressKey(key string) string {
	return fmt.Sprintf(`(() => {
  const el = document.activeElement || document.body;
  const opts = { key: '%s', bubbles: true, cancelable: true };
  el.dispatchEvent(new KeyboardEvent('keydown', opts));
  el.dispatchEvent(new KeyboardEvent('keyup', opts));
  return JSON.stringify({ ok: true });
})();`, Escape(key))
}
