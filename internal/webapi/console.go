package webapi

import (
	"github.com/cryguy/reactssr/internal/core"
)

// LogFunc receives one console call from JS.
type LogFunc func(level, message string)

// SetupConsole installs a Go-backed globalThis.console. Bare engines ship
// without one, and rendering libraries call console.error for warnings.
func SetupConsole(rt core.JSRuntime, logFn LogFunc) error {
	if err := rt.RegisterFunc("__console", func(level, message string) {
		logFn(level, message)
	}); err != nil {
		return err
	}

	consoleJS := `
(function() {
	var levels = ['log', 'info', 'warn', 'error', 'debug', 'trace'];
	var con = {};
	for (var i = 0; i < levels.length; i++) {
		(function(lvl) {
			con[lvl] = function() {
				var parts = [];
				for (var j = 0; j < arguments.length; j++) {
					var arg = arguments[j];
					if (typeof arg === 'object' && arg !== null) {
						try { parts.push(JSON.stringify(arg)); } catch (e) { parts.push('[object Object]'); }
					} else {
						parts.push(String(arg));
					}
				}
				__console(lvl, parts.join(' '));
			};
		})(levels[i]);
	}
	globalThis.console = con;
})();
`
	return rt.Eval(consoleJS)
}
