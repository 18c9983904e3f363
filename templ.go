package reactssr

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Component adapts ReactComponent to templ, so a page can embed it as
// @renderer.Component("Hello", props).
func (r *Renderer) Component(name string, args any, opts ...Option) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fragment, err := r.ReactComponent(name, args, opts...)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, string(fragment))
		return err
	})
}
