package stealth

import (
	"encoding/json"
	"fmt"
)

// jsString safely encodes a Go string as a JS string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// navigatorOverrideScript defines platform, vendor, hardwareConcurrency,
// deviceMemory, language, webdriver:false, and a plausible plugins array.
func navigatorOverrideScript(fp Fingerprint) string {
	return fmt.Sprintf(`(() => {
  const define = (obj, prop, value) => Object.defineProperty(obj, prop, { get: () => value, configurable: true });
  define(navigator, 'platform', %s);
  define(navigator, 'vendor', %s);
  define(navigator, 'hardwareConcurrency', %d);
  define(navigator, 'deviceMemory', %d);
  define(navigator, 'language', %s);
  define(navigator, 'languages', [%s]);
  define(navigator, 'webdriver', false);
  define(navigator, 'plugins', [
    { name: 'PDF Viewer', filename: 'internal-pdf-viewer' },
    { name: 'Chrome PDF Viewer', filename: 'internal-pdf-viewer' },
    { name: 'Native Client', filename: 'internal-nacl-plugin' },
  ]);
})();`,
		jsString(fp.Navigator.Platform),
		jsString(fp.Navigator.Vendor),
		fp.Navigator.HardwareConcurrency,
		fp.Navigator.DeviceMemory,
		jsString(fp.Navigator.Language),
		jsString(fp.Navigator.Language),
	)
}

// screenOverrideScript overrides screen.{width,height,colorDepth,pixelDepth,
// availWidth,availHeight} and window.devicePixelRatio.
func screenOverrideScript(fp Fingerprint) string {
	return fmt.Sprintf(`(() => {
  const define = (obj, prop, value) => Object.defineProperty(obj, prop, { get: () => value, configurable: true });
  define(screen, 'width', %d);
  define(screen, 'height', %d);
  define(screen, 'availWidth', %d);
  define(screen, 'availHeight', %d);
  define(screen, 'colorDepth', 24);
  define(screen, 'pixelDepth', 24);
  define(window, 'devicePixelRatio', 1);
})();`, fp.Screen.Width, fp.Screen.Height, fp.Screen.Width, fp.Screen.Height)
}

// webglOverrideScript overrides getParameter for vendor/renderer (ids
// 37445/37446) and randomizes the order of supported extensions.
func webglOverrideScript(fp Fingerprint) string {
	return fmt.Sprintf(`(() => {
  const VENDOR = %s, RENDERER = %s;
  for (const proto of [WebGLRenderingContext.prototype, (typeof WebGL2RenderingContext !== 'undefined' ? WebGL2RenderingContext.prototype : null)]) {
    if (!proto) continue;
    const original = proto.getParameter;
    proto.getParameter = function (param) {
      if (param === 37445) return VENDOR;
      if (param === 37446) return RENDERER;
      return original.apply(this, arguments);
    };
    const originalExt = proto.getSupportedExtensions;
    proto.getSupportedExtensions = function () {
      const exts = originalExt.apply(this, arguments);
      if (!exts) return exts;
      const shuffled = exts.slice();
      for (let i = shuffled.length - 1; i > 0; i--) {
        const j = Math.floor(Math.random() * (i + 1));
        [shuffled[i], shuffled[j]] = [shuffled[j], shuffled[i]];
      }
      return shuffled;
    };
  }
})();`, jsString(fp.WebGL.Vendor), jsString(fp.WebGL.Renderer))
}

// canvasNoiseScript wraps toDataURL and getImageData to add sub-pixel noise.
func canvasNoiseScript() string {
	return `(() => {
  const noisify = (imageData) => {
    const data = imageData.data;
    for (let i = 0; i < data.length; i += 4) {
      const delta = (Math.random() < 0.5 ? -1 : 1);
      data[i] = Math.min(255, Math.max(0, data[i] + delta));
    }
    return imageData;
  };
  const origToDataURL = HTMLCanvasElement.prototype.toDataURL;
  HTMLCanvasElement.prototype.toDataURL = function (...args) {
    const ctx = this.getContext('2d');
    if (ctx) {
      const imgData = ctx.getImageData(0, 0, this.width, this.height);
      ctx.putImageData(noisify(imgData), 0, 0);
    }
    return origToDataURL.apply(this, args);
  };
  const origGetImageData = CanvasRenderingContext2D.prototype.getImageData;
  CanvasRenderingContext2D.prototype.getImageData = function (...args) {
    return noisify(origGetImageData.apply(this, args));
  };
})();`
}

// audioNoiseScript wraps AudioBuffer.prototype.getChannelData to add tiny
// noise.
func audioNoiseScript() string {
	return `(() => {
  const original = AudioBuffer.prototype.getChannelData;
  AudioBuffer.prototype.getChannelData = function (...args) {
    const data = original.apply(this, args);
    for (let i = 0; i < data.length; i += 100) {
      data[i] = data[i] + (Math.random() * 1e-7);
    }
    return data;
  };
})();`
}
