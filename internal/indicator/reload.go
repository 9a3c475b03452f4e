package indicator

import "log/slog"

// ReloadConfigs updates the engine to exactly the given specs.
// It preserves processors that already exist (keeping their computed series
// and retained state) and only creates instances for genuinely new specs,
// which are computed against the last history seen. Processors not named by
// specs are dropped. Returns the number of preserved and new processors.
func (e *Engine) ReloadConfigs(specs []Spec) (preserved, created int, err error) {
	if err := ValidateSpecs(specs); err != nil {
		return 0, 0, err
	}

	keys := make([]string, 0, len(specs))
	for _, spec := range specs {
		key := spec.Key()
		keys = append(keys, key)
		if _, ok := e.byKey[key]; ok {
			preserved++
			continue
		}
		u, err := NewUpdater(spec, e.observer, e.log)
		if err != nil {
			return preserved, created, err
		}
		e.Register(u)
		created++
	}
	dropped := e.Retain(keys)
	e.reorder(keys)

	e.log.Info("indicator config reloaded",
		slog.Int("configs", len(specs)),
		slog.Int("preserved", preserved),
		slog.Int("created", created),
		slog.Int("dropped", dropped),
	)
	return preserved, created, nil
}

// reorder makes registration order follow keys; all keys must be registered.
func (e *Engine) reorder(keys []string) {
	order := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := e.byKey[k]; ok {
			order = append(order, k)
		}
	}
	e.order = order
}
