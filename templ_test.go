package reactssr

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestComponent_Templ(t *testing.T) {
	r := newTestRenderer(t)
	fixedID(r, "t1")

	var buf bytes.Buffer
	if err := r.Component("Hello", map[string]any{"name": "templ"}, Tag("span")).Render(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	want, err := r.ReactComponent("Hello", map[string]any{"name": "templ"}, Tag("span"))
	if err != nil {
		t.Fatal(err)
	}
	if buf.String() != string(want) {
		t.Errorf("templ output\n%s\nwant\n%s", buf.String(), want)
	}
	if !strings.HasPrefix(buf.String(), `<span id="t1">`) {
		t.Errorf("output = %s", buf.String())
	}
}

func TestComponent_TemplError(t *testing.T) {
	r := newTestRenderer(t)

	var buf bytes.Buffer
	err := r.Component("Missing", nil).Render(context.Background(), &buf)
	var nf *ComponentNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want ComponentNotFoundError", err)
	}
	if buf.Len() != 0 {
		t.Error("partial output written")
	}
}
