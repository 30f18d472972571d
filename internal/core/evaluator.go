package core

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// EvaluateCondition compiles and evaluates a boolean expression against env.
// An empty condition is always true.
func EvaluateCondition(condition string, env any) (bool, error) {
	if condition == "" {
		return true, nil
	}

	program, err := expr.Compile(condition, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("invalid condition '%s': %v", condition, err)
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluation failed: %v", err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition must return a boolean, got %T", output)
	}
	return result, nil
}
