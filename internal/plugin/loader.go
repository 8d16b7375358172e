package plugin

import "log/slog"

// Report summarizes one Load pass.
type Report struct {
	Loaded []string
	Failed []string
	Errors map[string]error
}

// Load registers definitions in dependency-safe order — tools first, then
// actions, then behaviors — so actions can consult tools at instantiation
// time. One plugin's failure never blocks the rest.
func Load(r *Registry, defs []Definition) Report {
	rep := Report{Errors: make(map[string]error)}

	for _, t := range []Type{TypeTool, TypeAction, TypeBehavior} {
		for _, def := range defs {
			if def.Type != t {
				continue
			}
			if err := r.Register(def); err != nil {
				slog.Warn("plugin load failed", "plugin", def.Name, "type", string(def.Type), "error", err)
				rep.Failed = append(rep.Failed, def.Name)
				rep.Errors[def.Name] = err
				continue
			}
			rep.Loaded = append(rep.Loaded, def.Name)
		}
	}

	slog.Info("plugins loaded", "loaded", len(rep.Loaded), "failed", len(rep.Failed))
	return rep
}

// Reload swaps one plugin definition in place: deactivate by name, then
// re-register. Other plugins and their cached instances are untouched.
func Reload(r *Registry, def Definition) error {
	r.Deactivate(def.Name)
	return r.Register(def)
}
