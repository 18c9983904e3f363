//go:build v8

package reactssr

import (
	"github.com/cryguy/reactssr/internal/core"
	"github.com/cryguy/reactssr/internal/v8engine"
)

func newCompiler() core.Compiler {
	return v8engine.Compile
}
