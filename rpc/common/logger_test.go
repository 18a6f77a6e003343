package common

import (
	"sync"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

// TestParseLogLevel tests the mapping of level names
func TestParseLogLevel(t *testing.T) {
	testCases := []struct {
		in      string
		want    logger.LogLevel
		wantErr bool
	}{
		{"debug", logger.DEBUG, false},
		{"INFO", logger.INFO, false},
		{"", logger.INFO, false},
		{"warn", logger.WARNING, false},
		{"warning", logger.WARNING, false},
		{"error", logger.ERROR, false},
		{"verbose", logger.INFO, true},
	}

	for _, tc := range testCases {
		got, err := ParseLogLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLogLevel(%q): unexpected error state %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// TestLoggerLevelFilter tests that messages below the configured level are dropped
func TestLoggerLevelFilter(t *testing.T) {
	l := CreateLogger("test").(*shKVLogger)

	l.SetLevel(logger.WARNING)
	if l.enabled(logger.INFO) || l.enabled(logger.DEBUG) {
		t.Errorf("Expected info and debug to be filtered at warning level")
	}
	if !l.enabled(logger.WARNING) || !l.enabled(logger.ERROR) {
		t.Errorf("Expected warning and error to pass at warning level")
	}
}

// TestInitLoggersWhileLogging changes levels while other goroutines log,
// like a second server starting next to a running one
func TestInitLoggersWhileLogging(t *testing.T) {
	if err := InitLoggers("error"); err != nil {
		t.Fatalf("Failed to init loggers: %v", err)
	}
	log := logger.GetLogger("rpc")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				log.Debugf("message %d", j)
			}
		}()
	}
	for i := 0; i < 100; i++ {
		if err := InitLoggers("error"); err != nil {
			t.Fatalf("Failed to init loggers: %v", err)
		}
	}
	wg.Wait()

	if err := InitLoggers("loud"); err == nil {
		t.Errorf("Expected error for unknown level")
	}
}
