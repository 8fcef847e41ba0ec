package engine

import (
	"encoding/json"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string        `json:"op"`                    // Operation: "trace", "shape", "basis"
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] canvas transform, affine totals only
	Path        []PathCommand `json:"path,omitempty"`        // Path data
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	Opacity     float64       `json:"opacity,omitempty"`     // Global alpha
	Dashed      bool          `json:"dashed,omitempty"`
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["Z"].
type PathCommand []any

// Style is the paint used for the shape.
type Style struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
}

const (
	traceOpacity = 0.35
	basisIColor  = "#2e9e44"
	basisJColor  = "#d7263d"
)

// CompileDrawCommands generates the draw list for one frame: the shape at the
// previous total as a faded trace, the shape at the current total, then the
// images of the two basis vectors. The trace is skipped when it would sit
// exactly under the shape.
func CompileDrawCommands(shape Polygon, style Style, current, previous Matrix3, gridUnit float64) []DrawCommand {
	if len(shape) == 0 {
		return nil
	}

	var commands []DrawCommand
	if previous != current {
		trace := compileShape("trace", shape, style, previous)
		trace.Opacity = traceOpacity
		trace.Dashed = true
		commands = append(commands, trace)
	}

	shapeCmd := compileShape("shape", shape, style, current)
	shapeCmd.Opacity = 1
	commands = append(commands, shapeCmd)

	commands = append(commands,
		compileBasis(current, Vec(gridUnit, 0), basisIColor),
		compileBasis(current, Vec(0, gridUnit), basisJColor),
	)
	return commands
}

// compileShape emits an affine total as a canvas transform over the untouched
// vertices. A projective total cannot be expressed that way, so its vertices
// are projected here; a shape sent to infinity gets an empty path.
func compileShape(op string, shape Polygon, style Style, m Matrix3) DrawCommand {
	cmd := DrawCommand{
		Op:          op,
		Fill:        style.Fill,
		Stroke:      style.Stroke,
		StrokeWidth: style.StrokeWidth,
	}
	if aff, ok := m.Affine(); ok {
		cmd.Transform = CanvasTransform(aff)
		cmd.Path = polygonPath(shape)
		return cmd
	}
	projected := shape.Transform(m)
	if projected.Finite() {
		cmd.Path = polygonPath(projected)
	}
	return cmd
}

func compileBasis(m Matrix3, axis Vector2D, color string) DrawCommand {
	origin := m.MultiplyVector(Vec(0, 0))
	tip := m.MultiplyVector(axis)
	cmd := DrawCommand{
		Op:          "basis",
		Stroke:      color,
		StrokeWidth: 3,
		Opacity:     1,
	}
	if (Polygon{origin, tip}).Finite() {
		cmd.Path = []PathCommand{{"M", origin.X, origin.Y}, {"L", tip.X, tip.Y}}
	}
	return cmd
}

func polygonPath(p Polygon) []PathCommand {
	path := make([]PathCommand, 0, len(p)+1)
	for i, v := range p {
		xy := v.ToArray()
		op := "L"
		if i == 0 {
			op = "M"
		}
		path = append(path, PathCommand{op, xy[0], xy[1]})
	}
	return append(path, PathCommand{"Z"})
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
