package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"alive/internal/config"
	"alive/internal/explain"
	"alive/internal/history"
	"alive/internal/intake"
	"alive/internal/ipc"
	"alive/internal/notify"
	"alive/internal/predict"
	"alive/internal/proxy"
	"alive/internal/session"
	"alive/internal/simulate"
	"alive/internal/speech"
	"alive/internal/speech/bus"
	"alive/internal/speech/device"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	mode := cli.StringP("mode", "m", "", "Speech mode: device or bus (overrides env)")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	cfg := config.Load(*envFile)
	if *mode != "" {
		cfg.SpeechMode = *mode
	}

	script := intake.DefaultScript()
	if cfg.ScriptPath != "" {
		var err error
		script, err = intake.LoadScript(cfg.ScriptPath)
		if err != nil {
			log.Error("Failed to load script", "path", cfg.ScriptPath, "err", err)
			os.Exit(1)
		}
		log.Debug("Loaded script", "path", cfg.ScriptPath)
	}

	store, err := history.Open(cfg.DBPath)
	if err != nil {
		log.Error("Failed to open history store", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	log.Debug("Opened history store", "path", cfg.DBPath)

	var popts []predict.Option
	if cfg.ProxyAddr != "" {
		httpClient, err := proxy.NewSocksClient(cfg.ProxyAddr, cfg.PredictTimeout)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", cfg.ProxyAddr, "err", err)
			os.Exit(1)
		}
		popts = append(popts, predict.WithHTTPClient(httpClient))
		log.Debug("Loaded proxy")
	}
	popts = append(popts, predict.WithTimeout(cfg.PredictTimeout))
	predictor := predict.New(cfg.PredictURL, popts...)

	d := &daemon{
		cfg:       cfg,
		script:    script,
		store:     store,
		predictor: predictor,
	}

	switch cfg.SpeechMode {
	case "device":
		rec, err := device.NewRecognizer(cfg.WhisperModel)
		if err != nil {
			log.Error("Failed to init device speech", "err", err)
			os.Exit(1)
		}
		defer rec.Close()
		d.device = rec
		d.engine = speech.NewEngine(rec, device.NewSynthesizer(), speech.WithSettle(cfg.Settle))

	case "bus":
		link, err := bus.Dial(cfg.BusURL, cfg.BusPeer, time.Second)
		if err != nil {
			log.Error("Failed to connect to speech bus", "url", cfg.BusURL, "err", err)
			os.Exit(1)
		}
		defer link.Close()
		d.engine = speech.NewEngine(link, link, speech.WithSettle(cfg.Settle))

	default:
		log.Error("Unknown speech mode", "mode", cfg.SpeechMode)
		os.Exit(1)
	}

	log.Debug("Loaded speech engine", "mode", cfg.SpeechMode)

	if err := ipc.Serve(cfg.SocketPath, d.handle); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful")

	select {}
}

type daemon struct {
	cfg       config.Config
	script    intake.Script
	engine    *speech.Engine
	store     *history.Store
	predictor *predict.Client
	device    *device.Recognizer // nil in bus mode

	runner session.Runner
}

func (d *daemon) handle(req ipc.Request) ipc.Response {
	switch req.Cmd {
	case "intake":
		return d.startIntake()
	case "cancel":
		return d.cancelIntake()
	case "ask":
		return d.ask(strings.Join(req.Args, " "))
	case "simulate":
		return d.simulate(req.Args)
	case "history":
		return d.history(strings.Join(req.Args, " "))
	case "transcribe":
		return d.transcribe(req.Args)
	default:
		log.Warn("Unknown command", "cmd", req.Cmd)
		return fail("unknown command %q", req.Cmd)
	}
}

// startIntake spawns one voice session; a second request while one is
// running is refused rather than queued.
func (d *daemon) startIntake() ipc.Response {
	var earcon func() error
	if d.cfg.EarconPath != "" && d.cfg.SpeechMode == "device" {
		path := d.cfg.EarconPath
		earcon = func() error { return notify.Earcon(path) }
	}

	s, err := d.runner.Start(session.Config{
		Engine:    d.engine,
		Script:    d.script,
		Predictor: d.predictor,
		History:   d.store,
		Earcon:    earcon,
		Chat:      d.cfg.Chat,
	})
	if err != nil {
		return fail("%v", err)
	}

	return ok("intake session %s started", s.ID())
}

func (d *daemon) cancelIntake() ipc.Response {
	if !d.runner.Cancel() {
		return fail("no intake session running")
	}
	d.engine.Stop()
	return ok("session cancelled")
}

// ask answers a free-text question against the most recent stored result.
func (d *daemon) ask(question string) ipc.Response {
	if question == "" {
		return fail("ask needs a question")
	}

	res, err := d.store.Latest(context.Background())
	if err != nil {
		return fail("history lookup: %v", err)
	}
	if res == nil {
		return fail("no assessment on record yet, run an intake first")
	}

	return ok("%s", explain.Analyze(question, *res))
}

// simulate applies the what-if offsets: simulate [age] [smoke] [active],
// where "-" or a missing argument keeps the patient's actual value.
func (d *daemon) simulate(args []string) ipc.Response {
	res, err := d.store.Latest(context.Background())
	if err != nil {
		return fail("history lookup: %v", err)
	}
	if res == nil {
		return fail("no assessment on record yet, run an intake first")
	}

	in, err := simulate.FromArgs(*res, args)
	if err != nil {
		return fail("usage: simulate [age|-] [smoke|-] [active|-]: %v", err)
	}

	risk := simulate.Adjust(*res, in)
	return ok("simulated risk: %.1f%% (baseline %.1f%%)", risk*100, res.RiskPercent())
}

func (d *daemon) history(name string) ipc.Response {
	if name == "" {
		return fail("history needs a patient name")
	}

	results, err := d.store.List(context.Background(), name, 20)
	if err != nil {
		return fail("history lookup: %v", err)
	}
	if len(results) == 0 {
		return fail("no visits on record for %s", name)
	}

	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s  %5.1f%%  %s\n", r.Date, r.RiskPercent(), r.RiskCategory)
	}
	return ok("%s", strings.TrimRight(b.String(), "\n"))
}

func (d *daemon) transcribe(args []string) ipc.Response {
	if len(args) != 1 {
		return fail("usage: transcribe <file>")
	}
	if d.device == nil {
		return fail("transcribe needs device speech mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	text, err := d.device.TranscribeFile(ctx, args[0])
	if err != nil {
		return fail("transcribe: %v", err)
	}
	return ok("%s", text)
}

func ok(format string, a ...any) ipc.Response {
	return ipc.Response{OK: true, Reply: fmt.Sprintf(format, a...)}
}

func fail(format string, a ...any) ipc.Response {
	return ipc.Response{Err: fmt.Sprintf(format, a...)}
}
