package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/motioncam/capture"
	"github.com/yeti47/motioncam/ccc/db"
	"github.com/yeti47/motioncam/ccc/logging"
	"github.com/yeti47/motioncam/config"
	filemanagement "github.com/yeti47/motioncam/file-management"
	"github.com/yeti47/motioncam/journal"
	motiondetection "github.com/yeti47/motioncam/motion-detection"
	"github.com/yeti47/motioncam/notifications"
	postprocessing "github.com/yeti47/motioncam/post-processing"
	"github.com/yeti47/motioncam/recording"
	"github.com/yeti47/motioncam/scheduling"
	"github.com/yeti47/motioncam/status"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to the configuration file")

	// Config override flags
	cameraBackend := flag.String("camera-backend", "", "Camera backend, raspi or gocv (overrides config)")
	cameraDevice := flag.String("camera-device", "", "Camera device for the gocv backend (overrides config)")
	motionSensor := flag.String("motion-sensor", "", "Motion sensor, gpio, gocv or none (overrides config)")
	motionPin := flag.String("motion-pin", "", "GPIO pin of the motion sensor (overrides config)")
	pictureInterval := flag.Int("picture-interval", 0, "Seconds between periodic stills (overrides config)")
	minVideoLength := flag.Int("min-video-length", 0, "Minimum clip length in seconds (overrides config)")
	maxVideoLength := flag.Int("max-video-length", 0, "Maximum clip length in seconds (overrides config)")
	pictureDir := flag.String("picture-dir", "", "Directory for stills (overrides config)")
	videoDir := flag.String("video-dir", "", "Directory for clips (overrides config)")
	journalPath := flag.String("journal", "", "Path of the capture journal database (overrides config)")
	logPath := flag.String("log-path", "", "Log directory (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	statusAddr := flag.String("status-addr", "", "Listen address of the status endpoint (overrides config)")

	flag.Parse()


	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cfg.Override(config.ConfigOverrides{
		CameraBackend:          cameraBackend,
		CameraDevice:           cameraDevice,
		MotionSensor:           motionSensor,
		MotionPin:              motionPin,
		PictureIntervalSeconds: pictureInterval,
		MinVideoLengthSeconds:  minVideoLength,
		MaxVideoLengthSeconds:  maxVideoLength,
		PictureSaveDir:         pictureDir,
		VideoSaveDir:           videoDir,
		JournalPath:            journalPath,
		LogPath:                logPath,
		LogLevel:               logLevel,
		StatusAddr:             statusAddr,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.CreateLogger(logging.LogLevel(cfg.LogLevel), cfg.LogPath, "motioncam")
	logger.Info("Starting motioncam",
		"camera_backend", cfg.CameraBackend,
		"motion_sensor", cfg.MotionSensor,
		"picture_interval_seconds", cfg.PictureIntervalSeconds,
		"min_video_length_seconds", cfg.MinVideoLengthSeconds,
		"max_video_length_seconds", cfg.MaxVideoLengthSeconds,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start", "error", err)
		os.Exit(1)
	}
	defer application.close()

	if cfg.StatusAddr != "" {
		application.goRun(func() { application.serveStatus(ctx, cfg) })
	}

	if err := application.controller.Run(ctx); err != nil {
		logger.Error("Capture loop ended with error", "error", err)
	}
	logger.Info("Motioncam stopped")
}

// app holds the wired components and everything that must be released on exit
type app struct {
	logger     logging.Logger
	tracker    *filemanagement.LocalFileTracker
	controller *capture.Controller
	repo       journal.CaptureRepository
	closers    []func() error
	background sync.WaitGroup
}

// goRun starts fn in a goroutine that close waits for
func (a *app) goRun(fn func()) {
	a.background.Add(1)
	go func() {
		defer a.background.Done()
		fn()
	}()
}

func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*app, error) {
	a := &app{logger: logger}
	configProvider := config.NewStaticSettingsProvider(*cfg)

	recordingSettings := recording.NewRecordingSettingsProvider(configProvider)
	layout := filemanagement.MediaLayout{
		PictureDir:    cfg.PictureSaveDir,
		VideoDir:      cfg.VideoSaveDir,
		ClipExtension: recordingSettings.GetSettings().ClipExtension(),
	}
	a.tracker = filemanagement.NewLocalFileTracker(layout, logger)
	if err := a.tracker.EnsureDirectories(); err != nil {
		return nil, err
	}

	camera, frames, err := a.buildCamera(ctx, cfg, recordingSettings)
	if err != nil {
		a.close()
		return nil, err
	}

	sensor, err := a.buildSensor(ctx, configProvider, frames)
	if err != nil {
		a.close()
		return nil, err
	}

	captureJournal, err := a.buildJournal(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	var inspector postprocessing.ClipInspector = postprocessing.NopClipInspector
	if cfg.ProbeClips {
		inspector = postprocessing.NewFFmpegClipInspector(logger)
	}

	settings := scheduling.NewSchedulerSettingsProvider(configProvider).GetSettings()
	if err := settings.Validate(); err != nil {
		a.close()
		return nil, err
	}
	scheduler := scheduling.NewScheduler(settings, a.tracker.Layout(), logger, time.Now())

	a.controller = capture.NewController(scheduler, sensor, camera, a.tracker, captureJournal, inspector, cfg.TickInterval(), logger)

	notificationSettings := notifications.NewNotificationSettingsProvider(configProvider).GetSettings()
	if notificationSettings.Enabled() {
		sender := notifications.NewSMTPSender(
			notificationSettings.SMTPHost,
			notificationSettings.SMTPPort,
			notificationSettings.SMTPUser,
			notificationSettings.SMTPPass,
			notificationSettings.SMTPFrom,
		)
		notifier := notifications.NewEmailMotionNotifier(notificationSettings, sender, logger)
		notifier.Start(ctx)
		a.controller.SetMotionNotifier(notifier)
		a.closers = append(a.closers, func() error {
			notifier.Wait()
			return nil
		})
	}

	return a, nil
}

func (a *app) buildCamera(ctx context.Context, cfg *config.Config, provider config.SettingsProvider[recording.RecordingSettings]) (recording.CameraDevice, motiondetection.FrameSource, error) {
	switch cfg.CameraBackend {
	case recording.BackendGoCV:
		camera, err := recording.NewGoCVCamera(provider, a.logger)
		if err != nil {
			return nil, nil, err
		}
		camera.Start(ctx)
		a.closers = append(a.closers, camera.Close)
		return camera, camera, nil
	default:
		return recording.NewRaspiCamera(provider, a.logger), nil, nil
	}
}

func (a *app) buildSensor(ctx context.Context, configProvider config.SettingsProvider[config.Config], frames motiondetection.FrameSource) (motiondetection.MotionSensor, error) {
	provider := motiondetection.NewMotionDetectionSettingsProvider(configProvider)

	switch provider.GetSettings().Sensor {
	case motiondetection.SensorGPIO:
		sensor, err := motiondetection.NewGPIOMotionSensor(provider, a.logger)
		if err != nil {
			return nil, err
		}
		sensor.Start(ctx)
		a.closers = append(a.closers, sensor.Close)
		return sensor, nil
	case motiondetection.SensorGoCV:
		if frames == nil {
			return nil, fmt.Errorf("motion sensor gocv requires the gocv camera backend")
		}
		sensor := motiondetection.NewGoCVMotionSensor(frames, provider, a.logger)
		a.closers = append(a.closers, sensor.Close)
		return sensor, nil
	default:
		a.logger.Warn("No motion sensor configured, only periodic stills will be taken")
		return motiondetection.NopMotionSensor, nil
	}
}

func (a *app) buildJournal(ctx context.Context, cfg *config.Config) (journal.Journal, error) {
	if cfg.JournalPath == "" {
		return journal.NopJournal, nil
	}

	database, err := db.Open(cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	a.closers = append(a.closers, database.Close)

	repo, err := journal.NewSQLiteCaptureRepository(database)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture repository: %w", err)
	}
	if err := journal.RecoverOpenClips(ctx, repo, time.Now(), a.logger); err != nil {
		a.logger.Warn("Failed to close clips left open by a previous run", "error", err)
	}

	a.repo = repo
	return journal.NewJournal(repo, a.logger), nil
}

func (a *app) serveStatus(ctx context.Context, cfg *config.Config) {
	router := initializeGin(cfg)
	router.Use(gin.Recovery())
	router.Use(status.RequestLogger(a.logger))

	handler := status.NewStatusHandler(a.logger, a.controller, a.repo, a.tracker.LatestPath())
	status.SetupRoutes(router, handler)

	if err := status.Serve(ctx, cfg.StatusAddr, router, a.logger); err != nil {
		a.logger.Error("Status server failed", "error", err)
	}
}

// close waits for background goroutines, then releases resources in reverse order of acquisition
func (a *app) close() {
	a.background.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to release resource", "error", err)
		}
	}
	a.closers = nil
}
