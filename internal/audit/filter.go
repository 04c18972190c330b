package audit

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"

	"github.com/kmkrofficial/signature/internal/core"
)

// Filter is a compiled boolean expression over an audit entry, e.g.
//
//	entry.Action == "gate.denied" && entry.Principal?.Email endsWith "@example.com"
type Filter struct {
	program *vm.Program
}

func filterEnv(entry core.AuditEntry) map[string]any {
	return map[string]any{
		"entry": entry,
	}
}

// CompileFilter parses and type-checks code.
func CompileFilter(code string) (*Filter, error) {
	program, err := expr.Compile(code, expr.Env(filterEnv(core.AuditEntry{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling filter: %w", err)
	}
	return &Filter{program: program}, nil
}

// Match reports whether entry satisfies the filter. Evaluation errors count as no match.
func (f *Filter) Match(entry core.AuditEntry) bool {
	out, err := expr.Run(f.program, filterEnv(entry))
	if err != nil {
		log.Debug().Err(err).Str("entry", entry.ID).Msg("error evaluating audit filter")
		return false
	}
	b, ok := out.(bool)
	return ok && b
}
