package discount

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/types"
)

// Facts are the session values an eligibility expression can reference.
// Money amounts are exposed as doubles, which is fine for rule
// thresholds; exact arithmetic stays in the pricing code.
type Facts struct {
	PlayMinutes int64
	TimeCost    types.Money
	ItemsTotal  types.Money
	Total       types.Money
	Weekday     time.Weekday
	TableType   string
}

func (f Facts) vars() map[string]any {
	return map[string]any{
		"playMinutes": f.PlayMinutes,
		"timeCost":    f.TimeCost.InexactFloat64(),
		"itemsTotal":  f.ItemsTotal.InexactFloat64(),
		"total":       f.Total.InexactFloat64(),
		"weekday":     int64(f.Weekday),
		"tableType":   f.TableType,
	}
}

// RuleEngine compiles and evaluates eligibility expressions.
// Compiled programs are cached by source text; safe for concurrent use.
type RuleEngine struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewRuleEngine builds the CEL environment with the session fact schema.
func NewRuleEngine() (*RuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("playMinutes", cel.IntType),
		cel.Variable("timeCost", cel.DoubleType),
		cel.Variable("itemsTotal", cel.DoubleType),
		cel.Variable("total", cel.DoubleType),
		cel.Variable("weekday", cel.IntType),
		cel.Variable("tableType", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("build cel env: %w", err)
	}
	return &RuleEngine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Compile validates an expression and caches its program.
// Called on discount create/update so bad expressions are rejected
// before they reach a receipt.
func (e *RuleEngine) Compile(expr string) error {
	_, err := e.program(expr)
	return err
}

// Eligible evaluates the expression against the facts.
// An empty expression is always eligible.
func (e *RuleEngine) Eligible(expr string, facts Facts) (bool, error) {
	if expr == "" {
		return true, nil
	}

	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(facts.vars())
	if err != nil {
		return false, apperror.NewBusinessRule("DISCOUNT_RULE_ERROR", "eligibility rule failed to evaluate").
			WithDetail("expression", expr).
			WithCause(err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, apperror.NewBusinessRule("DISCOUNT_RULE_ERROR", "eligibility rule did not produce a boolean").
			WithDetail("expression", expr)
	}
	return result, nil
}

func (e *RuleEngine) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(expr)
	if iss.Err() != nil {
		return nil, apperror.NewValidation("invalid eligibility expression").
			WithDetail("expression", expr).
			WithCause(iss.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, apperror.NewValidation("eligibility expression must return a boolean").
			WithDetail("expression", expr).
			WithDetail("type", ast.OutputType().String())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build program: %w", err)
	}

	e.mu.Lock()
	e.programs[expr] = prg
	e.mu.Unlock()

	return prg, nil
}
