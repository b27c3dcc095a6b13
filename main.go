package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Readm/i2c_verif/stimulus"
	"github.com/Readm/i2c_verif/tb"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout))
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("i2c_verif", flag.ContinueOnError)
	fs.SetOutput(stdout)
	var (
		configName = fs.String("config", "", "Predefined configuration name (e.g., 'i2c_loopback', 'i2c_full_byte')")
		list       = fs.Bool("list", false, "List predefined configurations and exit")
		seed       = fs.Int64("seed", 0, "Stimulus seed (0 keeps the configuration seed)")
		lo         = fs.Int("lo", 0, "Stimulus domain low bound (inclusive)")
		hi         = fs.Int("hi", 0, "Stimulus domain high bound (exclusive)")
		divisor    = fs.Int("divisor", 0, "SCL prescaler written to the divisor registers")
		readback   = fs.Bool("readback", false, "Read every payload back with START+READ+STOP")
		mode       = fs.String("scoreboard", "", "Readback scoreboard mode: in-order or lagged")
		constraint = fs.String("constraint", "", "Lua script defining accept(v) to restrict the domain")
		xmlPath    = fs.String("xml", "", "Export the coverage report as XML")
		jsonPath   = fs.String("json", "", "Export the coverage report as JSON")
		webAddr    = fs.String("web", "", "Serve the live web view on this address")
		headless   = fs.Bool("headless", true, "Run without the web view")
		maxCycles  = fs.Uint64("max-cycles", 0, "Abort after this many cycles")
		logLevel   = fs.String("log-level", "info", "Log level: error, warn, info, debug")
		bins       = fs.Bool("bins", false, "Print per-bin hit counts in the coverage report")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level, err := ParseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 2
	}
	log := NewLogger(level, "[I2CV] ")

	if *list {
		for _, bc := range GetPredefinedConfigs() {
			fmt.Fprintf(stdout, "%-16s %s", bc.Name, bc.Description)
			if bc.ExpectFailure {
				fmt.Fprint(stdout, " (expected to fail)")
			}
			fmt.Fprintln(stdout)
		}
		return 0
	}

	var cfg *Config
	if *configName != "" {
		cfg = GetConfigByName(*configName)
		if cfg == nil {
			log.Warnf("Configuration '%s' not found, using default", *configName)
		}
	}
	if cfg == nil {
		cfg = defaultConfig()
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = *seed
		case "lo":
			cfg.DomainLo = *lo
		case "hi":
			cfg.DomainHi = *hi
		case "divisor":
			cfg.Divisor = *divisor
		case "readback":
			cfg.Readback = *readback
		case "scoreboard":
			cfg.ScoreboardMode = *mode
		case "constraint":
			cfg.ConstraintScript = *constraint
		case "xml":
			cfg.ReportXML = *xmlPath
		case "json":
			cfg.ReportJSON = *jsonPath
		case "web":
			cfg.WebAddr = *webAddr
			cfg.Headless = false
		case "headless":
			cfg.Headless = *headless
		case "max-cycles":
			cfg.MaxCycles = *maxCycles
		}
	})
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if err := ValidateConfig(cfg); err != nil {
		log.Errorf("Invalid configuration: %v", err)
		return 2
	}

	var script *stimulus.Constraint
	if cfg.ConstraintScript != "" {
		script, err = stimulus.LoadConstraintFile(cfg.ConstraintScript)
		if err != nil {
			log.Errorf("%v", err)
			return 2
		}
		defer script.Close()
	}

	env, err := tb.NewEnv(cfg.Options(script), log)
	if err != nil {
		log.Errorf("Build environment: %v", err)
		return 2
	}
	log.Infof("Bench %s, seed %d", cfg.Name, cfg.Seed)

	metrics := newMetricsCollector(5*time.Second, log)
	env.Progress.Connect("metrics", metrics.RecordProgress)
	if line := newProgressLine(stdout); line != nil && level < LogLevelDebug {
		env.Progress.Connect("terminal", line.Update)
	}

	var web *WebServer
	if !cfg.Headless {
		web = NewWebServer(cfg.WebAddr, log)
		env.Progress.Connect("web", web.UpdateProgress)
	}

	var (
		res    *tb.Result
		runErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, runErr = env.Run(gctx)
		if web != nil && res != nil {
			web.SetReport(res.Coverage)
			log.Infof("Run finished; web view stays up until interrupted")
		}
		return nil
	})
	if web != nil {
		g.Go(func() error { return web.Serve(gctx) })
	}
	if err := g.Wait(); err != nil {
		log.Errorf("Web server: %v", err)
	}

	if res != nil {
		if err := res.Coverage.WriteText(stdout, *bins); err != nil {
			log.Errorf("Coverage report: %v", err)
			return 1
		}
		PrintStats(stdout, res)
	}
	if runErr != nil {
		return 1
	}
	return 0
}
