//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/inamate/transformlab/internal/engine"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine(engine.DefaultGridUnit, 0)

	// Create the engine API object
	api := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	api.Set("apply", js.FuncOf(apply))
	api.Set("undo", js.FuncOf(undo))
	api.Set("redo", js.FuncOf(redo))
	api.Set("reset", js.FuncOf(reset))

	// --- Queries (frontend ← backend) ---
	api.Set("render", js.FuncOf(render))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("getShapeBounds", js.FuncOf(getShapeBounds))
	api.Set("getState", js.FuncOf(getState))
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("inverse", js.FuncOf(inverse))
	api.Set("determinant", js.FuncOf(determinant))

	// Register on global scope
	js.Global().Set("transformEngine", api)

	// Signal that WASM is ready
	js.Global().Set("transformWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}

	if err := eng.LoadDocument(args[0].String()); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	sessionID := "sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		sessionID = args[0].String()
	}

	eng.LoadSampleDocument(sessionID)
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// apply takes the 9 row-major input fields, either as one array or as 9
// separate arguments.
func apply(this js.Value, args []js.Value) interface{} {
	fields := fieldsFromArgs(args)
	step, err := eng.Apply(fields)
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "stepId": step.ID})
}

func fieldsFromArgs(args []js.Value) []string {
	if len(args) == 1 && args[0].Type() == js.TypeObject {
		arr := args[0]
		fields := make([]string, arr.Length())
		for i := range fields {
			fields[i] = arr.Index(i).String()
		}
		return fields
	}

	fields := make([]string, len(args))
	for i, a := range args {
		fields[i] = a.String()
	}
	return fields
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Redo())
}

func reset(this js.Value, args []js.Value) interface{} {
	eng.Reset()
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.HitTest(args[0].Float(), args[1].Float()))
}

func getShapeBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetShapeBounds())
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetState())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetDocument())
}

// inverse returns the inverse of the current total as a JSON array, or null
// when it is singular.
func inverse(this js.Value, args []js.Value) interface{} {
	inv, ok := eng.Current().Inverse()
	if !ok {
		return js.Null()
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return js.Null()
	}
	return js.ValueOf(string(data))
}

func determinant(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Determinant())
}
