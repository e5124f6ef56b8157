package forge

// defaultRoutes holds the fixed well-known paths mounted on every
// RouteHandler unless disabled. Full OpenAPI generation and a real
// in-browser playground are out of scope; these are minimal static
// stubs covering the conventional set of framework URLs.
var defaultRoutes = map[string]*WrappedHandler{
	"/favicon.ico":   Wrap(faviconHandler),
	"/openapi.json":  Wrap(openAPIHandler),
	"/api-docs":      Wrap(openAPIHandler),
	"/swagger":       Wrap(swaggerUIHandler),
	"/docs":          Wrap(swaggerUIHandler),
	"/swagger-ui":    Wrap(swaggerUIHandler),
	"/api":           Wrap(playgroundIndexHandler),
	"/api/playground.js": Wrap(playgroundJSHandler),
	"/api/panels.js":     Wrap(panelsJSHandler),
}

// builtinFavicon is a 1x1 transparent ICO, small enough to inline rather
// than ship as a separate asset file.
var builtinFavicon = []byte{
	0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x01, 0x01, 0x00, 0x00, 0x01, 0x00,
	0x18, 0x00, 0x30, 0x00, 0x00, 0x00, 0x16, 0x00, 0x00, 0x00, 0x28, 0x00,
	0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x01, 0x00,
	0x18, 0x00, 0x00, 0x00, 0x00, 0x00, 0x18, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0xff,
}

func faviconHandler() *Response {
	r := newResponse(StatusOK)
	r.Header.Set("Content-Type", "image/x-icon")
	r.Body = builtinFavicon
	return r
}

// openAPIHandler returns a minimal JSON schema describing this fixed set
// of default routes. A real route-table walk would need access to the
// owning RouteHandler, which default routes are registered on every
// dispatcher without one — full OpenAPI generation is out of scope, so
// this stays a static stub.
func openAPIHandler() (*Response, error) {
	doc := map[string]any{
		"openapi": "3.0.0",
		"info":    map[string]any{"title": "forge", "version": "1.0.0"},
		"paths":   map[string]any{},
	}
	return ResponseJSON(StatusOK, doc)
}

const swaggerUIStub = `<!DOCTYPE html>
<html>
<head><title>API Docs</title></head>
<body>
<h1>API Documentation</h1>
<p>See <a href="/openapi.json">/openapi.json</a> for the route schema.</p>
</body>
</html>`

func swaggerUIHandler() *Response {
	return ResponseHTML(StatusOK, swaggerUIStub)
}

const playgroundIndexStub = `<!DOCTYPE html>
<html>
<head><title>API Playground</title></head>
<body>
<h1>API Playground</h1>
<script src="/api/playground.js"></script>
<script src="/api/panels.js"></script>
</body>
</html>`

func playgroundIndexHandler() *Response {
	return ResponseHTML(StatusOK, playgroundIndexStub)
}

const playgroundJS = `// Minimal interactive playground: issues a fetch() against a route
// typed into the #route input and renders the raw response body.
document.addEventListener('DOMContentLoaded', function () {
  var input = document.getElementById('route');
  var out = document.getElementById('output');
  if (!input || !out) return;
  input.addEventListener('change', function () {
    fetch(input.value).then(function (r) { return r.text(); }).then(function (t) {
      out.textContent = t;
    });
  });
});`

func playgroundJSHandler() *Response {
	r := newResponse(StatusOK)
	r.Header.Set("Content-Type", "application/javascript")
	r.Body = []byte(playgroundJS)
	return r
}

const panelsJS = `// Renders the side panel listing known default routes.
document.addEventListener('DOMContentLoaded', function () {
  var panel = document.getElementById('panels');
  if (!panel) return;
  var routes = ['/favicon.ico', '/openapi.json', '/swagger', '/api'];
  routes.forEach(function (route) {
    var li = document.createElement('li');
    li.textContent = route;
    panel.appendChild(li);
  });
});`

func panelsJSHandler() *Response {
	r := newResponse(StatusOK)
	r.Header.Set("Content-Type", "application/javascript")
	r.Body = []byte(panelsJS)
	return r
}
