// Package logger provides a singleton Zap logger with context-based scoping.
//
// The logger is initialized once in main with Init(); request middleware can
// attach a scoped logger (request_id, etc.) to the context and any layer
// below retrieves it with From(ctx), falling back to the singleton when no
// scoped logger is present.
//
//	logger.Init(logger.Config{Env: "prod", Level: "info"})
//	defer logger.Sync()
//
//	log := logger.From(ctx)
//	log.Info("login completed", logger.Provider(name), logger.UserID(id))
package logger
