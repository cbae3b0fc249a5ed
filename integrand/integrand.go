// Package integrand provides named target functions, most of them with a
// closed-form antiderivative so estimates can be checked against the exact
// value.
package integrand

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"mc-integrator/domain"
)

// DefaultName is the integrand used when none is requested.
const DefaultName = "square"

// Integrand is a target function together with a display expression and,
// when known, an antiderivative.
type Integrand struct {
	Name string
	Expr string
	F    domain.Func
	// Antiderivative is nil when no closed form is known.
	Antiderivative func(x float64) float64
}

// Exact returns ∫_a^b F(x)dx from the antiderivative.
func (in Integrand) Exact(a, b float64) (float64, bool) {
	if in.Antiderivative == nil {
		return 0, false
	}
	return in.Antiderivative(b) - in.Antiderivative(a), true
}

// Cacheable reports whether results for this integrand may be cached by name.
// Anonymous functions have no stable identity. The name is the whole cache
// identity, so a caller-built Integrand must not reuse a catalog name for a
// different F: it would read, and write, the catalog function's cached
// references.
func (in Integrand) Cacheable() bool {
	return in.Name != ""
}

var catalog = map[string]Integrand{
	"square": {
		Name:           "square",
		Expr:           "x^2",
		F:              func(x float64) float64 { return x * x },
		Antiderivative: func(x float64) float64 { return x * x * x / 3 },
	},
	"cube": {
		Name:           "cube",
		Expr:           "x^3",
		F:              func(x float64) float64 { return x * x * x },
		Antiderivative: func(x float64) float64 { return x * x * x * x / 4 },
	},
	"sin": {
		Name:           "sin",
		Expr:           "sin(x)",
		F:              math.Sin,
		Antiderivative: func(x float64) float64 { return -math.Cos(x) },
	},
	"cos": {
		Name:           "cos",
		Expr:           "cos(x)",
		F:              math.Cos,
		Antiderivative: math.Sin,
	},
	"exp": {
		Name:           "exp",
		Expr:           "e^x",
		F:              math.Exp,
		Antiderivative: math.Exp,
	},
	"sqrt": {
		Name:           "sqrt",
		Expr:           "sqrt(x)",
		F:              math.Sqrt,
		Antiderivative: func(x float64) float64 { return 2 * x * math.Sqrt(x) / 3 },
	},
	"x-exp-minus-x": {
		Name:           "x-exp-minus-x",
		Expr:           "x*e^(-x)",
		F:              func(x float64) float64 { return x * math.Exp(-x) },
		Antiderivative: func(x float64) float64 { return -(x + 1) * math.Exp(-x) },
	},
	"lorentzian": {
		Name:           "lorentzian",
		Expr:           "1/(1+x^2)",
		F:              func(x float64) float64 { return 1 / (1 + x*x) },
		Antiderivative: math.Atan,
	},
	"gaussian": {
		Name:           "gaussian",
		Expr:           "e^(-x^2)",
		F:              func(x float64) float64 { return math.Exp(-x * x) },
		Antiderivative: func(x float64) float64 { return math.Sqrt(math.Pi) / 2 * math.Erf(x) },
	},
	"inverse": {
		Name:           "inverse",
		Expr:           "1/x",
		F:              func(x float64) float64 { return 1 / x },
		Antiderivative: func(x float64) float64 { return math.Log(math.Abs(x)) },
	},
}

// Names returns the catalog names in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a catalog name or a polynomial written "poly:c0,c1,...".
func Lookup(name string) (Integrand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	if rest, ok := strings.CutPrefix(name, "poly:"); ok {
		return ParsePoly(rest)
	}
	in, ok := catalog[name]
	if !ok {
		return Integrand{}, fmt.Errorf("unknown integrand %q (known: %s, poly:c0,c1,...)", name, strings.Join(Names(), ", "))
	}
	return in, nil
}

// Poly returns the polynomial c[0] + c[1]x + c[2]x^2 + ...
func Poly(coeffs ...float64) Integrand {
	c := append([]float64(nil), coeffs...)
	anti := make([]float64, len(c)+1)
	for i, ci := range c {
		anti[i+1] = ci / float64(i+1)
	}

	parts := make([]string, len(c))
	for i, ci := range c {
		parts[i] = strconv.FormatFloat(ci, 'g', -1, 64)
	}
	return Integrand{
		Name:           "poly:" + strings.Join(parts, ","),
		Expr:           polyExpr(c),
		F:              func(x float64) float64 { return horner(c, x) },
		Antiderivative: func(x float64) float64 { return horner(anti, x) },
	}
}

// ParsePoly parses comma-separated coefficients in ascending degree.
func ParsePoly(spec string) (Integrand, error) {
	fields := strings.Split(spec, ",")
	coeffs := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Integrand{}, fmt.Errorf("parse polynomial coefficient %q: %w", f, err)
		}
		if !domain.IsFinite(v) {
			return Integrand{}, fmt.Errorf("polynomial coefficient %q is not finite", f)
		}
		coeffs = append(coeffs, v)
	}
	if len(coeffs) == 0 {
		return Integrand{}, fmt.Errorf("polynomial %q has no coefficients", spec)
	}
	return Poly(coeffs...), nil
}

func horner(c []float64, x float64) float64 {
	var y float64
	for i := len(c) - 1; i >= 0; i-- {
		y = y*x + c[i]
	}
	return y
}

func polyExpr(c []float64) string {
	var terms []string
	for i := len(c) - 1; i >= 0; i-- {
		if c[i] == 0 {
			continue
		}
		coef := strconv.FormatFloat(c[i], 'g', -1, 64)
		switch i {
		case 0:
			terms = append(terms, coef)
		case 1:
			terms = append(terms, coef+"*x")
		default:
			terms = append(terms, fmt.Sprintf("%s*x^%d", coef, i))
		}
	}
	if len(terms) == 0 {
		return "0"
	}
	return strings.ReplaceAll(strings.Join(terms, " + "), "+ -", "- ")
}
