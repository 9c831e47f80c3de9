package scenario

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/trek/nav"
	"github.com/pthm-cable/trek/obstacles"
)

// Engine is the part of the simulation a script can drive.
type Engine interface {
	AgentNames() []string
	MoveAgent(name string, target r2.Vec) error
	StopAgent(name string) error
	SetIgnoreCollisions(name string, enabled bool) error
	AgentPosition(name string) (r2.Vec, error)
	AgentState(name string) (nav.State, error)
	AddObstacle(o obstacles.Obstacle) (string, error)
	RemoveObstacle(id string) bool
}

// scriptModules are the tengo stdlib modules scripts may import.
var scriptModules = []string{"math", "text", "rand", "fmt", "enum"}

// The script body runs on every tick, so top-level variables do not survive
// between ticks; engine.memory does.
const scriptDispatch = `
update(__engine, __tick)
`

// Script is a compiled tengo scenario script. A script defines
//
//	update := func(engine, tick) { ... }
//
// which is called once per tick before any agent moves.
type Script struct {
	name     string
	compiled *tengo.Compiled
	engine   *tengo.ImmutableMap
}

// LoadScript reads and compiles a script file bound to engine.
func LoadScript(path string, engine Engine, logger *slog.Logger) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return NewScript(path, src, engine, logger)
}

// NewScript compiles src bound to engine. name is used in errors and logs.
func NewScript(name string, src []byte, engine Engine, logger *slog.Logger) (*Script, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("script", name)

	full := string(src) + "\n" + scriptDispatch
	script := tengo.NewScript([]byte(full))
	if err := script.Add("__engine", map[string]any{}); err != nil {
		return nil, fmt.Errorf("binding engine for %s: %w", name, err)
	}
	if err := script.Add("__tick", 0); err != nil {
		return nil, fmt.Errorf("binding tick for %s: %w", name, err)
	}
	script.SetImports(stdlib.GetModuleMap(scriptModules...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", name, err)
	}

	return &Script{name: name, compiled: compiled, engine: buildEngine(engine, logger)}, nil
}

// Update runs the script's update function for tick.
func (s *Script) Update(tick int) error {
	if err := s.compiled.Set("__engine", s.engine); err != nil {
		return err
	}
	if err := s.compiled.Set("__tick", tick); err != nil {
		return err
	}
	if err := s.compiled.Run(); err != nil {
		return fmt.Errorf("%s tick %d: %w", s.name, tick, err)
	}
	return nil
}

// Name returns the script's file name.
func (s *Script) Name() string {
	return s.name
}

func buildEngine(e Engine, logger *slog.Logger) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	values["memory"] = &tengo.Map{Value: map[string]tengo.Object{}}

	values["agents"] = &tengo.UserFunction{Name: "agents", Value: func(args ...tengo.Object) (tengo.Object, error) {
		names := e.AgentNames()
		out := make([]tengo.Object, len(names))
		for i, n := range names {
			out[i] = &tengo.String{Value: n}
		}
		return &tengo.Array{Value: out}, nil
	}}

	values["move_to"] = &tengo.UserFunction{Name: "move_to", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 3 {
			return nil, tengo.ErrWrongNumArguments
		}
		name := objectAsString(args[0])
		x, okX := tengo.ToFloat64(args[1])
		y, okY := tengo.ToFloat64(args[2])
		if !okX || !okY {
			return nil, tengo.ErrInvalidArgumentType{Name: "x/y", Expected: "float", Found: args[1].TypeName()}
		}
		return result(logger, "move_to", e.MoveAgent(name, r2.Vec{X: x, Y: y})), nil
	}}

	values["stop"] = &tengo.UserFunction{Name: "stop", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		return result(logger, "stop", e.StopAgent(objectAsString(args[0]))), nil
	}}

	values["set_ignore_collisions"] = &tengo.UserFunction{Name: "set_ignore_collisions", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 2 {
			return nil, tengo.ErrWrongNumArguments
		}
		enabled := !args[1].IsFalsy()
		return result(logger, "set_ignore_collisions", e.SetIgnoreCollisions(objectAsString(args[0]), enabled)), nil
	}}

	values["position"] = &tengo.UserFunction{Name: "position", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		p, err := e.AgentPosition(objectAsString(args[0]))
		if err != nil {
			return tengo.UndefinedValue, nil
		}
		return &tengo.Array{Value: []tengo.Object{&tengo.Float{Value: p.X}, &tengo.Float{Value: p.Y}}}, nil
	}}

	values["state"] = &tengo.UserFunction{Name: "state", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		st, err := e.AgentState(objectAsString(args[0]))
		if err != nil {
			return tengo.UndefinedValue, nil
		}
		return &tengo.String{Value: st.String()}, nil
	}}

	values["add_rect"] = &tengo.UserFunction{Name: "add_rect", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 5 {
			return nil, tengo.ErrWrongNumArguments
		}
		f, ok := floats(args[1:])
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: "x/y/w/h", Expected: "float"}
		}
		id, err := e.AddObstacle(obstacles.Obstacle{
			ID: objectAsString(args[0]), Kind: obstacles.KindRect,
			Center: r2.Vec{X: f[0], Y: f[1]}, Width: f[2], Height: f[3],
		})
		if err != nil {
			logger.Warn("add_rect failed", "error", err)
			return tengo.FalseValue, nil
		}
		return &tengo.String{Value: id}, nil
	}}

	values["add_circle"] = &tengo.UserFunction{Name: "add_circle", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 4 {
			return nil, tengo.ErrWrongNumArguments
		}
		f, ok := floats(args[1:])
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: "x/y/r", Expected: "float"}
		}
		id, err := e.AddObstacle(obstacles.Obstacle{
			ID: objectAsString(args[0]), Kind: obstacles.KindCircle,
			Center: r2.Vec{X: f[0], Y: f[1]}, Radius: f[2],
		})
		if err != nil {
			logger.Warn("add_circle failed", "error", err)
			return tengo.FalseValue, nil
		}
		return &tengo.String{Value: id}, nil
	}}

	values["remove_obstacle"] = &tengo.UserFunction{Name: "remove_obstacle", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		if e.RemoveObstacle(objectAsString(args[0])) {
			return tengo.TrueValue, nil
		}
		return tengo.FalseValue, nil
	}}

	values["log"] = &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = objectAsString(a)
		}
		logger.Info(strings.Join(parts, " "))
		return tengo.UndefinedValue, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

// result maps an engine error to a script boolean, logging failures.
func result(logger *slog.Logger, fn string, err error) tengo.Object {
	if err != nil {
		logger.Warn(fn+" failed", "error", err)
		return tengo.FalseValue
	}
	return tengo.TrueValue
}

func floats(args []tengo.Object) ([]float64, bool) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, ok := tengo.ToFloat64(a)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func objectAsString(o tengo.Object) string {
	if s, ok := tengo.ToString(o); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
