//go:build !v8

package reactssr

import (
	"github.com/cryguy/reactssr/internal/core"
	"github.com/cryguy/reactssr/internal/quickjs"
)

func newCompiler() core.Compiler {
	return quickjs.Compile
}
