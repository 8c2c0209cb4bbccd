// Package logger provides structured logging for apikit using zerolog.
//
// It supports JSON and console output, level configuration, component
// scoped loggers and request-scoped fields carried in context.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("downstream")
//	log.Info("call completed", logger.Fields("service", "graph", "status", 200))
package logger
