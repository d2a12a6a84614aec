/*
Package metrics tracks operation counts and byte totals for the store
and exposes them both as Prometheus text exposition and as a
hand-formatted legacy text block.

The counters (puts, gets, deletes, dedup hits, keys/objects/bytes
totals) are the source of truth, held as atomic values so handlers never
take a lock just to bump a counter. Metrics.Handler() wraps them in a
private Prometheus registry rather than the global one, so more than one
Metrics instance — one per store, as in tests — can coexist without a
duplicate-registration panic.

The package also carries a small health-check registry (ComponentHealth,
RegisterComponent, GetHealth/GetReadiness) behind the /health, /ready
and /live routes, reporting whether the store and listener have
finished initializing. The plain-text /healthz route is answered by
the api package and does not consult it.
*/
package metrics
