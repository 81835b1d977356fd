package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server      ServerSettings      `json:"server"`
	Database    DatabaseSettings    `json:"database"`
	Cache       CacheSettings       `json:"cache"`
	Streaming   StreamingSettings   `json:"streaming"`
	Transcoding TranscodingSettings `json:"transcoding"`
	Metadata    MetadataSettings    `json:"metadata"`
	Queue       QueueSettings       `json:"queue"`
	Log         LogConfig           `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	PIN  string `json:"pin"`
}

// DatabaseSettings defines where the library database lives.
type DatabaseSettings struct {
	Path string `json:"path"`
}

type CacheSettings struct {
	Directory string `json:"directory"`
}

// StreamingSettings controls delivery behavior.
type StreamingSettings struct {
	// DefaultLanguage is the ISO 639-2 code preferred when a file carries
	// multiple audio tracks.
	DefaultLanguage string `json:"defaultLanguage"`
	// SegmentLength is the HLS segment duration in seconds.
	SegmentLength float64 `json:"segmentLength"`
	// TargetContainer is the container served without recoding.
	TargetContainer string `json:"targetContainer"`
}

// TranscodingSettings describes the external transcoder and codec policy.
type TranscodingSettings struct {
	// RealTimeEnabled turns on the recode fallthrough for containers that
	// do not match the target container.
	RealTimeEnabled bool   `json:"realTimeEnabled"`
	FFmpegPath      string `json:"ffmpegPath"`
	FFprobePath     string `json:"ffprobePath"`

	// VideoCodec and AudioCodec are the re-encode codecs used when the
	// source codec is not in the corresponding target set.
	VideoCodec string `json:"videoCodec"`
	AudioCodec string `json:"audioCodec"`

	// TargetVideoCodecs and TargetAudioCodecs list source codecs that are
	// passed through with "copy" instead of re-encoded.
	TargetVideoCodecs []string `json:"targetVideoCodecs"`
	TargetAudioCodecs []string `json:"targetAudioCodecs"`

	HardwareAcceleration bool   `json:"hardwareAcceleration"`
	HardwareAccelerator  string `json:"hardwareAccelerator"`
}

type MetadataSettings struct {
	TMDBAPIKey string `json:"tmdbApiKey"`
	TVDBAPIKey string `json:"tvdbApiKey"`
	Language   string `json:"language"`
}

// QueueSettings sizes the background job queue.
type QueueSettings struct {
	Workers int `json:"workers"`
	Depth   int `json:"depth"`
}

// LogConfig represents file logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// Defaults returns the settings written on first run.
func Defaults() Settings {
	return Settings{
		Server: ServerSettings{
			Host: "0.0.0.0",
			Port: 8989,
		},
		Database: DatabaseSettings{Path: filepath.Join("cache", "library.db")},
		Cache:    CacheSettings{Directory: "cache"},
		Streaming: StreamingSettings{
			DefaultLanguage: "eng",
			SegmentLength:   10,
			TargetContainer: "mp4",
		},
		Transcoding: TranscodingSettings{
			RealTimeEnabled:   true,
			FFmpegPath:        "ffmpeg",
			FFprobePath:       "ffprobe",
			VideoCodec:        "libx264",
			AudioCodec:        "aac",
			TargetVideoCodecs: []string{"h264"},
			TargetAudioCodecs: []string{"aac", "ac3", "mp3"},
		},
		Metadata: MetadataSettings{Language: "en"},
		Queue:    QueueSettings{Workers: 4, Depth: 256},
		Log: LogConfig{
			File:       filepath.Join("cache", "clearstream.log"),
			MaxSize:    50,
			MaxAge:     14,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

// Manager loads and persists settings as a JSON document.
type Manager struct {
	path string
	mu   sync.Mutex
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load reads settings from disk, creating the file with defaults if missing.
func (m *Manager) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		settings := Defaults()
		if err := m.save(settings); err != nil {
			return Settings{}, err
		}
		return settings, nil
	}
	if err != nil {
		return Settings{}, err
	}

	settings := Defaults()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Save writes settings to disk atomically.
func (m *Manager) Save(settings Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(settings)
}

func (m *Manager) save(settings Settings) error {
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.path)
}
