// Package logger wraps zap with:
//   - a global sugared logger writing console or JSON lines,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level parsing and a shared, runtime-adjustable level,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Components receive a context at construction and log through it, so every
// line carries the component name.
package logger
