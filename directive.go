package reactssr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// DirectiveAttr marks an element for mounting by the client dispatcher. Its
// value is the component name; the element's other data-* attributes are the
// component arguments.
const DirectiveAttr = "data-react"

// ReactDirective renders name server-side inside a wrapper that carries the
// mount directive instead of an inline script. The client dispatcher (see
// ClientScript) mounts it on page load.
func (r *Renderer) ReactDirective(name string, args any, opts ...Option) (template.HTML, error) {
	if err := validateComponentName(name); err != nil {
		return "", err
	}
	tag, attrs, _, err := r.parseOptions(opts)
	if err != nil {
		return "", err
	}
	argsJSON, err := encodeArgs(args)
	if err != nil {
		return "", err
	}
	argAttrs, err := encodeDataArgs(argsJSON)
	if err != nil {
		return "", err
	}

	markup, err := r.renderJSON(name, argsJSON)
	if err != nil {
		return "", err
	}

	nodeAttrs, err := htmlAttrs(attrs)
	if err != nil {
		return "", err
	}
	for _, a := range nodeAttrs {
		if a.Key == DirectiveAttr || strings.HasPrefix(a.Key, "data-") {
			return "", fmt.Errorf("attribute %q collides with component arguments", a.Key)
		}
	}
	nodeAttrs = append(nodeAttrs, html.Attribute{Key: DirectiveAttr, Val: name})
	nodeAttrs = append(nodeAttrs, argAttrs...)

	var buf bytes.Buffer
	if err := renderWrapper(&buf, tag, nodeAttrs, markup); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// encodeDataArgs turns a JSON object into data-* attributes, preserving key
// order. Each value survives decodeDataValue unchanged: strings are written
// raw unless their raw form would itself parse as JSON.
func encodeDataArgs(argsJSON []byte) ([]html.Attribute, error) {
	dec := json.NewDecoder(bytes.NewReader(argsJSON))
	if _, err := dec.Token(); err != nil {
		return nil, &SerializationError{Err: err}
	}

	var out []html.Attribute
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &SerializationError{Err: err}
		}
		key := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, &SerializationError{Path: key, Err: err}
		}

		attr := "data-" + kebabCase(key)
		if key == "react" || camelCase(strings.TrimPrefix(attr, "data-")) != key || !attrPattern.MatchString(attr) {
			return nil, &SerializationError{Path: key, Err: errors.New("key cannot be represented as a data attribute")}
		}

		val := string(raw)
		var s string
		if raw[0] == '"' && json.Unmarshal(raw, &s) == nil && !json.Valid([]byte(s)) {
			val = s
		}
		out = append(out, html.Attribute{Key: attr, Val: val})
	}
	return out, nil
}

// decodeDataValue mirrors the client: JSON when it parses, the raw string
// otherwise. Numbers keep their exact text.
func decodeDataValue(val string) any {
	dec := json.NewDecoder(strings.NewReader(val))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return val
	}
	return v
}

// kebabCase maps fooBar to foo-bar, the inverse of the DOM dataset mapping.
func kebabCase(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// camelCase maps foo-bar to fooBar the way element.dataset does.
func camelCase(s string) string {
	var b strings.Builder
	upper := false
	for i, r := range s {
		if r == '-' && i+1 < len(s) && s[i+1] >= 'a' && s[i+1] <= 'z' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
