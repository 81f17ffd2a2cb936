/*
Package observability provides lifecycle hooks for monitoring the Parley runtime.

Metrics records Prometheus counters for node entries, chosen options and finished
conversations. LoggingHooks writes the same notifications to a structured logger.
Both return domain.LifecycleHooks that can be merged and passed to the engine.
*/
package observability
