// Package logger provides structured logging for vaultkit on zerolog.
//
// The adapter logs one debug line per exchange with method, URL, namespace,
// status and duration. Client tokens never reach the log stream verbatim;
// use RedactToken for anything that might carry one.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("vault")
//	log.Debug("vault request", logger.RequestFields("GET", url, "ns1"))
package logger
