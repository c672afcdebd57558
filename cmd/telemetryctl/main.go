package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"

	"codeberg.org/mutker/telemetry"
	"codeberg.org/mutker/telemetry/client"
	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/event"
	"codeberg.org/mutker/telemetry/internal/logger"
	"codeberg.org/mutker/telemetry/internal/pid"
	"codeberg.org/mutker/telemetry/ping"
	"codeberg.org/mutker/telemetry/schedule"
	"codeberg.org/mutker/telemetry/storage"
)

const flushTimeout = 10 * time.Second

var (
	cfg *config.Configuration

	configFile string
	logLevel   string
	dataDir    string
	endpoint   string
	eventCount int
	noUpload   bool
)

func init() {
	pflag.StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	pflag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warning, error)")
	pflag.StringVar(&dataDir, "data-dir", "", "Directory for telemetry state")
	pflag.StringVar(&endpoint, "endpoint", "", "Telemetry server endpoint")
	pflag.IntVar(&eventCount, "events", 5, "Number of demo events to record")
	pflag.BoolVar(&noUpload, "no-upload", false, "Build and store pings without uploading")
	pflag.Parse()

	opts := []config.Option{}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if logLevel != "" {
		opts = append(opts, config.WithOverride("log_level", logLevel))
	}
	if dataDir != "" {
		opts = append(opts, config.WithOverride("data_directory", dataDir))
	}
	if endpoint != "" {
		opts = append(opts, config.WithOverride("server_endpoint", endpoint))
	}

	var err error
	cfg, err = config.Load(opts...)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel.String(), logger.IsService())
	logger.Debug().Msg("Config loaded")

	// Without an endpoint there is nowhere to upload to; pings stay stored.
	if noUpload || cfg.ServerEndpoint == "" {
		cfg.SetUploadEnabled(false)
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	repo, scheduler, tel, err := setup()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry stack")
	}

	if err := exercise(ctx, tel); err != nil {
		logger.Error().Err(err).Msg("Demo session failed")
	}

	report(ctx, repo)
	cleanup(scheduler, repo)
}

func setup() (storage.Repository, *schedule.CronScheduler, *telemetry.Telemetry, error) {
	if err := pid.Write(cfg.DataDirectory); err != nil {
		return nil, nil, nil, err
	}

	storageCfg := storage.DefaultConfig(cfg.DataDirectory)
	storageCfg.MaxPingsPerType = cfg.MaximumPingsPerType
	repo, err := storage.NewRepository(storageCfg, ping.NewJSONSerializer(), logger.Default())
	if err != nil {
		return nil, nil, nil, err
	}

	uploader := client.New(cfg)
	scheduler := schedule.NewCronScheduler(repo, uploader)
	if err := scheduler.Start(cfg); err != nil {
		return nil, nil, nil, multierror.Append(err, repo.Close()).ErrorOrNil()
	}

	tel, err := telemetry.Initialize(cfg, repo, uploader, scheduler)
	if err != nil {
		return nil, nil, nil, multierror.Append(err, scheduler.Close(), repo.Close()).ErrorOrNil()
	}

	coreBuilder, err := ping.NewCoreBuilder(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	eventsBuilder, err := ping.NewMobileEventsBuilder(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := tel.AddPingBuilder(coreBuilder); err != nil {
		return nil, nil, nil, err
	}
	if err := tel.AddPingBuilder(eventsBuilder); err != nil {
		return nil, nil, nil, err
	}

	return repo, scheduler, tel, nil
}

// exercise drives one synthetic session through the pipeline: session
// bracketing, a handful of events, a search, ping builds and an upload
// request.
func exercise(ctx context.Context, tel *telemetry.Telemetry) error {
	if err := tel.SetDefaultSearchProvider(func() string { return "ddg" }); err != nil {
		return err
	}
	if err := tel.RecordSessionStart(); err != nil {
		return err
	}

	for i := 0; i < eventCount; i++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		telemetry.Record(event.New("action", "click", "menu").
			WithExtra("iteration", strconv.Itoa(i)))
	}

	if err := tel.RecordSearch("actionbar", "ddg"); err != nil {
		return err
	}
	if err := tel.RecordSessionEnd(); err != nil {
		return err
	}

	if err := tel.QueuePing(ping.TypeCore); err != nil {
		return err
	}
	if err := tel.QueuePing(ping.TypeMobileEvents); err != nil {
		return err
	}
	if err := tel.ScheduleUpload(); err != nil {
		return err
	}

	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	return tel.Flush(flushCtx)
}

func report(ctx context.Context, repo storage.Repository) {
	types, err := repo.Types(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list stored ping types")

		return
	}
	if len(types) == 0 {
		logger.Info().Msg("No pings waiting for upload")

		return
	}

	for _, pingType := range types {
		count, err := repo.Count(ctx, pingType)
		if err != nil {
			logger.Error().Err(err).Str("type", pingType).Msg("Failed to count stored pings")

			continue
		}
		logger.Info().Str("type", pingType).Int("stored", count).Msg("Pings waiting for upload")
	}
}

func cleanup(scheduler *schedule.CronScheduler, repo storage.Repository) {
	var errs *multierror.Error
	if err := telemetry.Shutdown(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := scheduler.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := repo.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := pid.Remove(cfg.DataDirectory); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		logger.Error().Err(err).Msg("Teardown finished with errors")

		return
	}
	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
