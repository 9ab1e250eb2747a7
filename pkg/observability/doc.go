/*
Package observability turns transition lifecycle events into Prometheus metrics.

Metrics are exposed as domain.LifecycleHooks, so they compose with any other
hook set through domain.MergeHooks:

	m, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	orch, err := transit.New(loader, transit.WithLifecycleHooks(m.Hooks()))
*/
package observability
