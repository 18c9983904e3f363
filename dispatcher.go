package reactssr

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"weak"

	"golang.org/x/net/html"
)

// Mounter attaches a component to a directive element.
type Mounter interface {
	Mount(el *html.Node, component string, args map[string]any) error
}

// MounterFunc adapts a function to Mounter.
type MounterFunc func(el *html.Node, component string, args map[string]any) error

func (f MounterFunc) Mount(el *html.Node, component string, args map[string]any) error {
	return f(el, component, args)
}

// Dispatcher is the server-side counterpart of the client script: it scans a
// parsed document for mount directives and mounts each element once. A
// second scan that meets an element it already mounted is rejected as a
// whole, before anything is mounted again.
//
// Mounted elements are held weakly: a document dropped by the caller is
// collected and its entries are removed, so one Dispatcher can serve any
// number of pages.
type Dispatcher struct {
	mounter Mounter

	mu      sync.Mutex
	mounted map[weak.Pointer[html.Node]]struct{}
}

// NewDispatcher creates a Dispatcher that mounts through m.
func NewDispatcher(m Mounter) *Dispatcher {
	return &Dispatcher{mounter: m, mounted: make(map[weak.Pointer[html.Node]]struct{})}
}

// markMounted records n. The caller holds mu.
func (d *Dispatcher) markMounted(n *html.Node) {
	wp := weak.Make(n)
	d.mounted[wp] = struct{}{}
	runtime.AddCleanup(n, d.forget, wp)
}

func (d *Dispatcher) forget(wp weak.Pointer[html.Node]) {
	d.mu.Lock()
	delete(d.mounted, wp)
	d.mu.Unlock()
}

// Directive is one mount directive found in a document.
type Directive struct {
	Element   *html.Node
	Component string
	Args      map[string]any
}

// Directives returns every element carrying DirectiveAttr, in document
// order, with its argument map. The directive key itself is not an argument.
func Directives(doc *html.Node) []Directive {
	var out []Directive
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if name, ok := attr(n, DirectiveAttr); ok {
				out = append(out, Directive{Element: n, Component: name, Args: dataArgs(n)})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// Dispatch mounts every directive in doc and returns how many were mounted.
func (d *Dispatcher) Dispatch(doc *html.Node) (int, error) {
	directives := Directives(doc)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, dir := range directives {
		if _, ok := d.mounted[weak.Make(dir.Element)]; ok {
			id, _ := attr(dir.Element, "id")
			return 0, &AlreadyMountedError{Component: dir.Component, ID: id}
		}
		if err := validateComponentName(dir.Component); err != nil {
			return 0, err
		}
	}

	for i, dir := range directives {
		if err := d.mounter.Mount(dir.Element, dir.Component, dir.Args); err != nil {
			return i, fmt.Errorf("mounting %s: %w", dir.Component, err)
		}
		d.markMounted(dir.Element)
	}
	return len(directives), nil
}

// PrerenderPage fills every mount directive element in the page with the
// component's server-rendered markup, leaving the directive in place for the
// client dispatcher.
func (r *Renderer) PrerenderPage(in io.Reader, out io.Writer) error {
	doc, err := html.Parse(in)
	if err != nil {
		return fmt.Errorf("parsing page: %w", err)
	}

	d := NewDispatcher(MounterFunc(func(el *html.Node, component string, args map[string]any) error {
		if !attachedTo(el, doc) {
			// Replaced along with an enclosing directive's children.
			return nil
		}
		markup, err := r.RenderToString(component, args)
		if err != nil {
			return err
		}
		for c := el.FirstChild; c != nil; {
			next := c.NextSibling
			el.RemoveChild(c)
			c = next
		}
		el.AppendChild(&html.Node{Type: html.RawNode, Data: string(markup)})
		return nil
	}))
	if _, err := d.Dispatch(doc); err != nil {
		return err
	}
	return html.Render(out, doc)
}

func dataArgs(n *html.Node) map[string]any {
	args := make(map[string]any)
	for _, a := range n.Attr {
		if a.Namespace != "" || a.Key == DirectiveAttr || !strings.HasPrefix(a.Key, "data-") {
			continue
		}
		args[camelCase(strings.TrimPrefix(a.Key, "data-"))] = decodeDataValue(a.Val)
	}
	return args
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attachedTo(n, root *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}
