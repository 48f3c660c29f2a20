/*
Package log provides structured logging for SkyShift using zerolog.

The log package wraps zerolog to give every component — API server, scheduler,
skylet controllers — a component-scoped child logger with consistent fields
(component, cluster, job). Console output in development, JSON in production,
same as the teacher's logging layer.

Usage:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("scheduler")
	logger.Info().Str("job", job.Metadata.Name).Msg("assigned cluster")
*/
package log
