package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}

	// Priority 2: GLASSCRIBE_LOG_PATH environment variable
	envPath := os.Getenv("GLASSCRIBE_LOG_PATH")
	if envPath != "" {
		if !filepath.IsAbs(envPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, envPath), nil
		}
		return envPath, nil
	}

	// Priority 3: OS cache directory
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, "glasscribe"), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	var err error
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// State records one session state machine transition.
func State(from, to string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("from", from).
		Str("to", to).
		Msg("state")
}

func FrameSent(frameType string, bytes int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("frame", frameType).
		Int("bytes", bytes).
		Msg("frame_sent")
}

func FrameRecv(frameType string) {
	if !logReady {
		return
	}
	diagLog.Debug().
		Str("frame", frameType).
		Msg("frame_recv")
}

func SegmentDropped(reason, text string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("reason", reason).
		Str("text", text).
		Msg("segment_dropped")
}

func Reconnect(attempt, max int) {
	if !logReady {
		return
	}
	diagLog.Warn().
		Int("attempt", attempt).
		Int("max", max).
		Msg("reconnect")
}

// ConversationStats is emitted when a conversation ends.
func ConversationStats(audioSent, segmentsReceived int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("audio_sent", audioSent).
		Int("segments_received", segmentsReceived).
		Msg("conversation_stats")
}

func SessionStart(server string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("server", server).
		Msg("session_start")
}

func SessionEnd() {
	if !logReady {
		return
	}
	diagLog.Info().Msg("session_end")
}
