package actors

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.uber.org/zap"

	"github.com/san-kum/trackprop/internal/propagator"
)

// Env is the variable set visible to expression conditions.
type Env struct {
	Step       int     `expr:"step"`
	X          float64 `expr:"x"`
	Y          float64 `expr:"y"`
	Z          float64 `expr:"z"`
	R          float64 `expr:"r"`
	PathLength float64 `expr:"path_length"`
	Momentum   float64 `expr:"p"`
	Charge     float64 `expr:"q"`
	Time       float64 `expr:"t"`
	Surface    string  `expr:"surface"`
	Passed     int     `expr:"passed"`
}

func envOf(s *propagator.State) Env {
	st := s.Stepping
	env := Env{
		Step:       s.Step,
		X:          st.Position[0],
		Y:          st.Position[1],
		Z:          st.Position[2],
		R:          st.Position.Perp(),
		PathLength: st.PathLength,
		Momentum:   st.Momentum,
		Charge:     st.Charge,
		Time:       st.Time,
	}
	if s.Navigation != nil {
		env.Surface = s.Navigation.Current
		env.Passed = len(s.Navigation.Passed)
	}
	return env
}

// Expr aborts when a boolean expression over Env holds, e.g.
// "r > 1000 || p < 0.1".
type Expr struct {
	source  string
	program *vm.Program
}

// NewExpr compiles src once. The program is immutable and shared by all
// propagations using this condition.
func NewExpr(src string) (*Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("actors: empty expression")
	}
	program, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("actors: compile condition %q: %w", src, err)
	}
	return &Expr{source: src, program: program}, nil
}

func (e *Expr) Name() string { return "expr(" + e.source + ")" }

func (e *Expr) Source() string { return e.source }

// Check reports false when the expression fails to evaluate.
func (e *Expr) Check(s *propagator.State) bool {
	out, err := expr.Run(e.program, envOf(s))
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("condition evaluation failed", zap.String("expr", e.source), zap.Error(err))
		}
		return false
	}
	ok, _ := out.(bool)
	return ok
}
