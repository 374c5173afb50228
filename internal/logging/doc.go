// Package logging provides structured debug logging for bstest.
//
// Logs are written through slog, using charmbracelet/log as the handler, and
// controlled by the --debug flag:
//
//	logging.Debug("spawning simulated target", "name", name, "image", image)
//	logging.Warn("cleanup kill failed", "name", name, "error", err)
//
// Setup is called once by the CLI with the session's output sink as the
// writer, so debug records land in the same destination as user-facing
// messages. User-facing status lines live on output.Sink.
package logging
