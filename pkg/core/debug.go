package core

// DebugMode controls whether stack traces are captured for warnings,
// lifecycle errors, and recovered panics.
var DebugMode = true

// SetDebugMode enables or disables stack capture.
func SetDebugMode(debug bool) {
	DebugMode = debug
}
