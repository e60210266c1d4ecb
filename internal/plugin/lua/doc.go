// Package lua provides the sandboxed Lua runtime that local config modules
// and Lua plugins run in.
//
// It wraps gopher-lua with:
//   - a sandbox with no io, os or debug libraries and no chunk loaders
//   - a require that resolves only builtin and host-preloaded modules
//   - a per-call execution timeout
//   - a Go/Lua value bridge
//
// # State
//
//	state := lua.NewState(lua.WithExecutionTimeout(time.Second))
//	defer state.Close()
//
//	state.PreloadModule("distill", loader)
//	if err := state.DoFile("confdistill.lua"); err != nil {
//	    fmt.Println(lua.Message(err))
//	    for _, frame := range lua.Traceback(err) {
//	        fmt.Println("  " + frame)
//	    }
//	}
//
// # Bridge
//
// Bridge converts scalars, sequences and string-keyed tables in both
// directions. Go values without a Lua equivalent travel as userdata.
package lua
