// Package logger wraps zap with a global sugared logger and context helpers.
//
// Pipelines carry the logger in their context so that every line emitted for a
// packaging run is tagged with the run id and the platform being built. The
// encoder is the colored console one unless SetFormat switches to JSON, which
// CI jobs use to ship logs.
package logger
