package reactssr

import (
	_ "embed"
	"net/http"
	"strings"
	"time"
)

//go:embed ujs.js
var ujsSource string

// ClientScript returns the browser-side dispatcher bound to lib's global and
// mount entry point. It mounts every [data-react] element on page load.
func ClientScript(lib LibraryNames) string {
	return strings.NewReplacer(
		"__LIBRARY_GLOBAL__", lib.Global,
		"__MOUNT_ENTRY__", lib.MountEntry,
	).Replace(ujsSource)
}

// ClientScript returns the dispatcher for this Renderer's library names.
func (r *Renderer) ClientScript() string {
	return ClientScript(r.names)
}

// ClientScriptHandler serves ClientScript as application/javascript.
func ClientScriptHandler(lib LibraryNames) http.Handler {
	body := ClientScript(lib)
	modTime := time.Now()
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		http.ServeContent(w, req, "react_ujs.js", modTime, strings.NewReader(body))
	})
}
