package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"clearstream/api"
	"clearstream/config"
	"clearstream/handlers"
	"clearstream/internal/database"
	"clearstream/services/cleaner"
	"clearstream/services/metadata"
	"clearstream/services/queue"
	"clearstream/utils"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	// Determine config path (env or default)
	configPath := os.Getenv("CLEARSTREAM_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	// Generate the management PIN on first run
	settings.Server.PIN = strings.TrimSpace(settings.Server.PIN)
	if settings.Server.PIN == "" {
		pin, err := utils.GeneratePIN()
		if err != nil {
			log.Fatalf("failed to generate PIN: %v", err)
		}
		settings.Server.PIN = pin
		if err := cfgManager.Save(settings); err != nil {
			log.Fatalf("failed to persist generated PIN: %v", err)
		}
	}
	fmt.Printf("management PIN: %s\n", settings.Server.PIN)

	if settings.Transcoding.FFmpegPath == "" {
		settings.Transcoding.FFmpegPath = "ffmpeg"
	}
	if path, err := exec.LookPath(settings.Transcoding.FFmpegPath); err == nil {
		settings.Transcoding.FFmpegPath = path
	} else if settings.Transcoding.RealTimeEnabled {
		log.Printf("warning: disabling real-time transcoding: ffmpeg not found at %q: %v", settings.Transcoding.FFmpegPath, err)
		settings.Transcoding.RealTimeEnabled = false
	}

	// Best-effort save so the config persists the defaults
	_ = cfgManager.Save(settings)

	if dir := filepath.Dir(settings.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("failed to create database directory: %v", err)
		}
	}
	db, err := database.Open(settings.Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	fileRepo := database.NewFileRepository(db.Connection())
	movieRepo := database.NewMovieRepository(db.Connection())

	// Background job queue and its handlers
	jobQueue := queue.New(settings.Queue.Workers, settings.Queue.Depth)

	metadataService := metadata.NewService(
		settings.Metadata.TMDBAPIKey,
		settings.Metadata.TVDBAPIKey,
		settings.Metadata.Language,
		settings.Cache.Directory,
	)
	metadataService.RegisterJobs(jobQueue)

	movieCleaner := cleaner.New(movieRepo)
	movieCleaner.RegisterJobs(jobQueue)

	registerThumbnailJob(jobQueue, fileRepo, cfgManager)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	jobQueue.Start(rootCtx)

	// HTTP surface
	sourceFs := afero.NewOsFs()
	videoHandler := handlers.NewVideoHandler(fileRepo, sourceFs, cfgManager, jobQueue)
	hlsHandler := handlers.NewHLSHandler(fileRepo, cfgManager)
	metadataHandler := handlers.NewMetadataHandler(metadataService, jobQueue)

	getPIN := func() string {
		s, err := cfgManager.Load()
		if err != nil {
			return settings.Server.PIN
		}
		return s.Server.PIN
	}

	r := utils.NewRouter()
	api.Register(r, videoHandler, hlsHandler, metadataHandler, getPIN)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // no write timeout for streaming
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	// Cancelling the root context tears down any session still piping and
	// stops queue workers after their in-flight jobs.
	rootCancel()
	jobQueue.Stop()

	log.Println("shutdown complete")
}

// registerThumbnailJob wires the post-processing job that derives a
// thumbnail for a file after it has been streamed. Payload is the file id.
func registerThumbnailJob(q *queue.Queue, files *database.FileRepository, cfgManager *config.Manager) {
	q.Register("deriveThumbnail", func(ctx context.Context, payload any) error {
		fileID, ok := payload.(int64)
		if !ok {
			return fmt.Errorf("deriveThumbnail: unexpected payload %T", payload)
		}

		settings, err := cfgManager.Load()
		if err != nil {
			return err
		}

		dest := filepath.Join(settings.Cache.Directory, "thumbnails", strconv.FormatInt(fileID, 10)+".jpg")
		if _, err := os.Stat(dest); err == nil {
			return nil // already derived
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}

		file, err := files.FindByID(ctx, fileID)
		if err != nil {
			return err
		}

		// Grab a frame a little into the file; the very first frame is
		// usually black.
		offset := 10.0
		if file.Duration > 0 && file.Duration < offset {
			offset = file.Duration / 2
		}

		jobCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()

		cmd := exec.CommandContext(jobCtx, settings.Transcoding.FFmpegPath,
			"-hide_banner", "-loglevel", "error",
			"-ss", strconv.FormatFloat(offset, 'f', -1, 64),
			"-i", file.Path,
			"-vframes", "1",
			"-vf", "scale=480:-1",
			"-y", dest,
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("thumbnail for file %d: %w (%s)", fileID, err, strings.TrimSpace(string(out)))
		}

		log.Printf("[thumbnail] derived thumbnail for file %d", fileID)
		return nil
	})
}
