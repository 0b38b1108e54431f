// Package api provides the HTTP API for the application
package api

import (
	"appimagefinder/internal/core/timerange"
	"appimagefinder/internal/platform/config"
	"appimagefinder/internal/platform/logger"
	phttp "appimagefinder/internal/platform/net/http"

	"appimagefinder/internal/modkit"
	"appimagefinder/internal/modkit/httpkit"
	"appimagefinder/internal/modkit/module"

	metamod "appimagefinder/internal/services/api/meta/module"
	releasesmod "appimagefinder/internal/services/api/releases/module"
	finderdom "appimagefinder/internal/services/finder/domain"
	findermod "appimagefinder/internal/services/finder/module"
)

// Options are the API options
type Options struct {
	Config config.Conf

	// Runner replaces the finder built from Config, mostly for tests
	Runner   finderdom.RunnerPort
	Defaults finderdom.Scan
}

// Mount builds the modules and mounts them under /api/v1 on r
func Mount(r phttp.Router, opt Options) error {
	deps := modkit.Deps{
		Log: *logger.Named("api"),
		Cfg: opt.Config,
	}

	mods := []module.Module{metamod.New(deps)}

	runner, defaults := opt.Runner, opt.Defaults
	if runner == nil {
		finder, err := findermod.New(deps)
		if err != nil {
			return err
		}
		runner = module.MustPortsOf[finderdom.RunnerPort](finder)
		defaults = finder.DefaultScan(timerange.Window{})
		mods = append(mods, finder)
	}

	mods = append(mods, releasesmod.New(deps, modkit.WithPorts(releasesmod.Ports{
		Runner:   runner,
		Defaults: defaults,
	})))

	stack := httpkit.CommonStack(httpkit.StackFromConfig(opt.Config.Prefix("CORE_API_")))
	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		for _, m := range mods {
			deps.Log.Debug().Str("module", m.Name()).Msg("mounting module")
			m.MountRoutes(api)
		}
	})
	return nil
}
