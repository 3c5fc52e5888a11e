// Package condition evaluates boolean branch-routing expressions against an
// execution's variable bag.
package condition

import (
	"log/slog"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Evaluator compiles and runs expressions with expr. Only the variable bag's
// top-level keys are exposed as bindings; expressions have no access to the
// surrounding process, filesystem, or network.
// Thread-safe: compiled *vm.Program objects are cached and reused across
// goroutines.
type Evaluator struct {
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewEvaluator creates a condition evaluator.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{
		logger: logger.With("module", "condition_evaluator"),
		cache:  make(map[string]*vm.Program),
	}
}

// Evaluate runs expression against variables and reduces the result to a
// boolean. Any compile or runtime error is logged and resolves to false:
// condition failures route to the false/no-match branch, they never fail the
// workflow.
func (e *Evaluator) Evaluate(expression string, variables map[string]any) bool {
	if expression == "" {
		return true
	}

	env := variables
	if env == nil {
		env = map[string]any{}
	}

	program, err := e.getOrCompile(expression, env)
	if err != nil {
		e.logger.Error("Condition expression failed to compile, treating as false",
			"expression", expression, "error", err)

		return false
	}

	out, err := vm.Run(program, env)
	if err != nil {
		e.logger.Error("Condition expression failed to evaluate, treating as false",
			"expression", expression, "error", err)

		return false
	}

	return Truthy(out)
}

func (e *Evaluator) getOrCompile(expression string, env map[string]any) (*vm.Program, error) {
	e.mu.RLock()
	if program, ok := e.cache[expression]; ok {
		e.mu.RUnlock()

		return program, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if program, ok := e.cache[expression]; ok {
		return program, nil
	}

	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}

	e.cache[expression] = program

	return program, nil
}

// Truthy reduces an evaluation result of any type to a boolean.
func Truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != "" && v != "false" && v != "0"
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case nil:
		return false
	default:
		return false
	}
}
