package script

import (
	"fmt"
	"strings"

	"github.com/cadhy/cadhy/pkg/factory"
	"github.com/cadhy/cadhy/pkg/kernel"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// kwPrefix marks keyword names rewritten by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites script source before it reaches zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal), so
//     keywords need no global symbol registration.
//  2. ; line comments become // comments, which is what zygomys expects.
//
// Both transformations respect string literal boundaries.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword", preserving := assignment.
		if b[i] == ':' && i+1 < len(b) {
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types
// ---------------------------------------------------------------------------

// sexpFactory wraps a live factory so scripts can thread it through further
// expressions.
type sexpFactory struct {
	f factory.Composable
}

func (s *sexpFactory) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s-factory)", s.f.Name())
}
func (s *sexpFactory) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a placement position.
type sexpVec3 struct {
	pos kernel.Position
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %.1f %.1f %.1f)", v.pos.X, v.pos.Y, v.pos.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Argument parsing helpers
// ---------------------------------------------------------------------------

// kwArgs separates a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// isKW reports whether a Sexp is a preprocessed keyword string, returning
// the bare keyword name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// toFloat64 extracts a number from a Sexp.
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// positionals extracts exactly n numeric positional arguments.
func positionals(name string, pa kwArgs, n int) ([]float64, error) {
	if len(pa.positional) != n {
		return nil, fmt.Errorf("%s requires %d numeric arguments, got %d", name, n, len(pa.positional))
	}

	out := make([]float64, n)
	for i, s := range pa.positional {
		f, err := toFloat64(s)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
		}
		out[i] = f
	}

	return out, nil
}

// atPosition extracts the optional :at placement keyword.
func atPosition(name string, pa kwArgs) (kernel.Position, error) {
	v, ok := pa.kw["at"]
	if !ok {
		return kernel.Position{}, nil
	}

	vec, ok := v.(*sexpVec3)
	if !ok {
		return kernel.Position{}, fmt.Errorf("%s: at: expected vec3, got %T (%s)", name, v, v.SexpString(nil))
	}

	return vec.pos, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// factoryCollector gathers the factories a script produces, in source order.
type factoryCollector struct {
	factories []factory.Composable
}

func (c *factoryCollector) add(f factory.Composable) {
	c.factories = append(c.factories, f)
}

func (c *factoryCollector) disposeAll() {
	for _, f := range c.factories {
		f.Dispose()
	}
	c.factories = nil
}

// finishFactory validates a freshly configured factory, collecting it on
// success and disposing it on failure.
func finishFactory(name string, c *factoryCollector, f factory.Composable) (zygo.Sexp, error) {
	if !f.IsValid() {
		f.Dispose()
		return zygo.SexpNull, fmt.Errorf("%s: parameters failed validation", name)
	}

	c.add(f)

	return &sexpFactory{f: f}, nil
}

// registerBuiltins installs the geometry DSL into a zygomys environment.
// Each primitive builtin configures a factory against ops and records it in
// the collector; the factories stay idle until the caller drives them.
func registerBuiltins(env *zygo.Zlisp, ops kernel.Operations, c *factoryCollector) {

	// (vec3 x y z)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		v, err := positionals("vec3", pa, 3)
		if err != nil {
			return zygo.SexpNull, err
		}

		return &sexpVec3{pos: kernel.Position{X: v[0], Y: v[1], Z: v[2]}}, nil
	})

	// (box width height depth :at (vec3 ...))
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		dims, err := positionals("box", pa, 3)
		if err != nil {
			return zygo.SexpNull, err
		}

		pos, err := atPosition("box", pa)
		if err != nil {
			return zygo.SexpNull, err
		}

		f := factory.NewBox(ops)
		f.SetWidth(dims[0])
		f.SetHeight(dims[1])
		f.SetDepth(dims[2])
		f.SetPosition(pos)

		if f.Width() != dims[0] || f.Height() != dims[1] || f.Depth() != dims[2] {
			f.Dispose()
			return zygo.SexpNull, fmt.Errorf("box: dimensions must be positive")
		}

		return finishFactory("box", c, f)
	})

	// (cylinder radius height :at (vec3 ...))
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		dims, err := positionals("cylinder", pa, 2)
		if err != nil {
			return zygo.SexpNull, err
		}

		pos, err := atPosition("cylinder", pa)
		if err != nil {
			return zygo.SexpNull, err
		}

		f := factory.NewCylinder(ops)
		f.SetRadius(dims[0])
		f.SetHeight(dims[1])
		f.SetPosition(pos)

		if f.Radius() != dims[0] || f.Height() != dims[1] {
			f.Dispose()
			return zygo.SexpNull, fmt.Errorf("cylinder: radius and height must be positive")
		}

		return finishFactory("cylinder", c, f)
	})

	// (sphere radius :at (vec3 ...))
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		dims, err := positionals("sphere", pa, 1)
		if err != nil {
			return zygo.SexpNull, err
		}

		pos, err := atPosition("sphere", pa)
		if err != nil {
			return zygo.SexpNull, err
		}

		f := factory.NewSphere(ops)
		f.SetRadius(dims[0])
		f.SetPosition(pos)

		if f.Radius() != dims[0] {
			f.Dispose()
			return zygo.SexpNull, fmt.Errorf("sphere: radius must be positive")
		}

		return finishFactory("sphere", c, f)
	})

	// (cone baseRadius topRadius height :at (vec3 ...))
	env.AddFunction("cone", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		dims, err := positionals("cone", pa, 3)
		if err != nil {
			return zygo.SexpNull, err
		}

		pos, err := atPosition("cone", pa)
		if err != nil {
			return zygo.SexpNull, err
		}

		f := factory.NewCone(ops)
		f.SetBaseRadius(dims[0])
		f.SetTopRadius(dims[1])
		f.SetHeight(dims[2])
		f.SetPosition(pos)

		if f.BaseRadius() != dims[0] || f.TopRadius() != dims[1] || f.Height() != dims[2] {
			f.Dispose()
			return zygo.SexpNull, fmt.Errorf("cone: radii must be non-negative and height positive")
		}

		return finishFactory("cone", c, f)
	})

	// (torus majorRadius minorRadius :at (vec3 ...))
	env.AddFunction("torus", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		dims, err := positionals("torus", pa, 2)
		if err != nil {
			return zygo.SexpNull, err
		}

		pos, err := atPosition("torus", pa)
		if err != nil {
			return zygo.SexpNull, err
		}

		f := factory.NewTorus(ops)
		f.SetMajorRadius(dims[0])
		f.SetMinorRadius(dims[1])
		f.SetPosition(pos)

		if f.MajorRadius() != dims[0] || f.MinorRadius() != dims[1] {
			f.Dispose()
			return zygo.SexpNull, fmt.Errorf("torus: radii must be positive")
		}

		return finishFactory("torus", c, f)
	})
}
