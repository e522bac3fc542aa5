/*
Package metrics defines and registers this toolkit's Prometheus collectors.

Webhook handlers record request counts and durations by route, the cleanup
engine records bytes reclaimed by category, the health sampler records the
current problematic-container gauge per server, and the OS/Docker updaters
record counts of applied updates and pulled images. Everything is exposed
at /metrics alongside pkg/webhook's route table via Handler().
*/
package metrics
