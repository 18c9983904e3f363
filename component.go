package reactssr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const defaultTag = "div"

var (
	tagPattern  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)
	attrPattern = regexp.MustCompile(`^[a-zA-Z_:][-a-zA-Z0-9_:.]*$`)
)

// Option configures the wrapper element of ReactComponent and ReactDirective.
type Option func(*tagOptions)

type tagOptions struct {
	tag   string
	attrs map[string]any
}

// Tag sets the wrapper tag, e.g. Tag("span").
func Tag(name string) Option {
	return func(o *tagOptions) { o.tag = name }
}

// Attrs merges HTML attributes into the wrapper. A "tag" key overrides the
// wrapper tag; a "data" key holding a map expands to data-* attributes.
// Values: true renders the attribute with its own name as value, false and
// nil omit it, []string is space-joined, anything else is fmt.Sprint'ed.
func Attrs(attrs map[string]any) Option {
	return func(o *tagOptions) {
		for k, v := range attrs {
			if k == "tag" {
				if s, ok := v.(string); ok {
					o.tag = s
				} else {
					o.tag = fmt.Sprint(v)
				}
				continue
			}
			o.attrs[k] = v
		}
	}
}

// ID sets the mount element id. Without it a random id is generated.
func ID(id string) Option {
	return func(o *tagOptions) { o.attrs["id"] = id }
}

// Class sets the wrapper's class attribute.
func Class(class string) Option {
	return func(o *tagOptions) { o.attrs["class"] = class }
}

// parseOptions resolves the wrapper tag and attributes, assigning a fresh id
// when none was supplied.
func (r *Renderer) parseOptions(opts []Option) (string, map[string]any, string, error) {
	o := &tagOptions{tag: defaultTag, attrs: make(map[string]any)}
	for _, opt := range opts {
		opt(o)
	}
	if !tagPattern.MatchString(o.tag) {
		return "", nil, "", fmt.Errorf("invalid wrapper tag %q", o.tag)
	}

	id, _ := o.attrs["id"].(string)
	if o.attrs["id"] != nil && id == "" {
		id = fmt.Sprint(o.attrs["id"])
	}
	if id == "" {
		id = r.newID()
	}
	o.attrs["id"] = id
	return strings.ToLower(o.tag), o.attrs, id, nil
}

// ReactComponent renders name server-side, wraps the markup in the configured
// element and appends the script that mounts the component on that element
// in the browser. The same argument encoding and id feed both halves.
func (r *Renderer) ReactComponent(name string, args any, opts ...Option) (template.HTML, error) {
	if err := validateComponentName(name); err != nil {
		return "", err
	}
	tag, attrs, id, err := r.parseOptions(opts)
	if err != nil {
		return "", err
	}
	argsJSON, err := encodeArgs(args)
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
	var buf bytes.Buffer
	if err := renderWrapper(&buf, tag, nodeAttrs, markup); err != nil {
		return "", err
	}
	buf.WriteString(ActivationScript(r.names, name, id, argsJSON))
	return template.HTML(buf.String()), nil
}

// renderWrapper writes <tag attrs>markup</tag>. markup is inserted verbatim.
func renderWrapper(buf *bytes.Buffer, tag string, attrs []html.Attribute, markup string) error {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
	if markup != "" {
		n.AppendChild(&html.Node{Type: html.RawNode, Data: markup})
	}
	if err := html.Render(buf, n); err != nil {
		return fmt.Errorf("rendering <%s> wrapper: %w", tag, err)
	}
	return nil
}

// htmlAttrs orders attributes id first, then by name, and expands values.
func htmlAttrs(attrs map[string]any) ([]html.Attribute, error) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "id" || keys[j] == "id" {
			return keys[i] == "id"
		}
		return keys[i] < keys[j]
	})

	out := make([]html.Attribute, 0, len(keys))
	for _, k := range keys {
		if k == "data" {
			if data, ok := attrs[k].(map[string]any); ok {
				expanded, err := dataAttrs(data)
				if err != nil {
					return nil, err
				}
				out = append(out, expanded...)
				continue
			}
		}
		if !attrPattern.MatchString(k) {
			return nil, fmt.Errorf("invalid attribute name %q", k)
		}
		switch v := attrs[k].(type) {
		case nil:
		case bool:
			if v {
				out = append(out, html.Attribute{Key: k, Val: k})
			}
		case string:
			out = append(out, html.Attribute{Key: k, Val: v})
		case []string:
			out = append(out, html.Attribute{Key: k, Val: strings.Join(v, " ")})
		default:
			out = append(out, html.Attribute{Key: k, Val: fmt.Sprint(v)})
		}
	}
	return out, nil
}

// dataAttrs expands a map into data-* attributes, JSON-encoding non-strings.
func dataAttrs(data map[string]any) ([]html.Attribute, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]html.Attribute, 0, len(keys))
	for _, k := range keys {
		key := "data-" + k
		if !attrPattern.MatchString(key) {
			return nil, fmt.Errorf("invalid attribute name %q", key)
		}
		var val string
		switch v := data[k].(type) {
		case string:
			val = v
		default:
			enc, err := json.Marshal(v)
			if err != nil {
				return nil, &SerializationError{Path: "data." + k, Err: err}
			}
			val = string(enc)
		}
		out = append(out, html.Attribute{Key: key, Val: val})
	}
	return out, nil
}
