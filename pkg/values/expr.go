package values

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// exprVariable is the name a CEL expression uses for the source snapshot.
const exprVariable = "ctx"

var (
	exprEnv     *cel.Env
	exprEnvErr  error
	exprEnvOnce sync.Once

	programs   = make(map[string]cel.Program)
	programsMu sync.RWMutex
)

func env() (*cel.Env, error) {
	exprEnvOnce.Do(func() {
		exprEnv, exprEnvErr = cel.NewEnv(
			cel.Variable(exprVariable, cel.MapType(cel.StringType, cel.DynType)),
		)
	})
	return exprEnv, exprEnvErr
}

// Expr resolves a CEL expression evaluated with the source snapshot bound to
// ctx, e.g. `ctx.total > 100 && ctx.status == "open"`.
func Expr(expression string) (Value, error) {
	prg, err := compileExpr(expression)
	if err != nil {
		return Value{}, fmt.Errorf("invalid expression %q: %w", expression, err)
	}

	return Value{
		kind: KindExpr,
		key:  expression,
		fn: func(src Source) (any, error) {
			out, _, err := prg.Eval(map[string]any{exprVariable: snapshot(src)})
			if err != nil {
				return nil, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
			}
			return out.Value(), nil
		},
	}, nil
}

func MustExpr(expression string) Value {
	v, err := Expr(expression)
	if err != nil {
		panic(err)
	}
	return v
}

func compileExpr(expression string) (cel.Program, error) {
	programsMu.RLock()
	if prg, ok := programs[expression]; ok {
		programsMu.RUnlock()
		return prg, nil
	}
	programsMu.RUnlock()

	e, err := env()
	if err != nil {
		return nil, err
	}

	ast, issues := e.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}

	prg, err := e.Program(ast)
	if err != nil {
		return nil, err
	}

	programsMu.Lock()
	programs[expression] = prg
	programsMu.Unlock()

	return prg, nil
}
