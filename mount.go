package reactssr

import (
	"encoding/json"
	"fmt"
	"html/template"
)

// ActivationScript builds the script element that mounts name against the
// element with id mountID. argsJSON must be the exact bytes the server render
// used; otherwise the client markup diverges and the library rebuilds the
// subtree instead of attaching to it.
func ActivationScript(lib LibraryNames, name, mountID string, argsJSON []byte) string {
	// The id is caller-controlled; as a JSON string literal it cannot close
	// the script element or the string.
	idJSON, _ := json.Marshal(mountID)
	return fmt.Sprintf(`<script type="text/javascript">%s.%s(%s(%s), document.getElementById(%s))</script>`,
		lib.Global, lib.MountEntry, name, argsJSON, idJSON)
}

// ActivationScript validates and encodes args and returns the activation
// script for an element rendered elsewhere.
func (r *Renderer) ActivationScript(name, mountID string, args any) (template.HTML, error) {
	if err := validateComponentName(name); err != nil {
		return "", err
	}
	argsJSON, err := encodeArgs(args)
	if err != nil {
		return "", err
	}
	return template.HTML(ActivationScript(r.names, name, mountID, argsJSON)), nil
}
