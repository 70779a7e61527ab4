package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// backendLog is the logging backend used to create all subsystem loggers.
var backendLog = NewBackend()

var (
	subsystemsMutex sync.Mutex
	subsystems      = map[string]*Logger{}
)

// RegisterSubSystem returns the logger for the given subsystem tag, creating
// it if it was not registered yet. Every package that logs holds one of
// these in a package-level `log` variable.
func RegisterSubSystem(subsystem string) *Logger {
	subsystemsMutex.Lock()
	defer subsystemsMutex.Unlock()
	logger, ok := subsystems[subsystem]
	if !ok {
		logger = backendLog.Logger(subsystem)
		subsystems[subsystem] = logger
	}
	return logger
}

// InitLog attaches the standard output streams and log files to the backend
// and launches it. The general log file receives everything down to trace;
// the error log file receives warnings and up.
func InitLog(logFile, errLogFile string) {
	err := backendLog.AddLogWriter(os.Stdout, LevelInfo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding stdout to the logger: %s", err)
		os.Exit(1)
	}
	err = backendLog.AddLogFile(logFile, LevelTrace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding log file %s as log rotator for level %s: %s", logFile, LevelTrace, err)
		os.Exit(1)
	}
	err = backendLog.AddLogFile(errLogFile, LevelWarn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding log file %s as log rotator for level %s: %s", errLogFile, LevelWarn, err)
		os.Exit(1)
	}
	err = backendLog.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting the logger: %s ", err)
		os.Exit(1)
	}
}

// SetLogLevels sets the logging level for all of the subsystems to the
// given level
func SetLogLevels(level Level) {
	subsystemsMutex.Lock()
	defer subsystemsMutex.Unlock()
	for _, logger := range subsystems {
		logger.SetLevel(level)
	}
}

// ParseAndSetLogLevels attempts to parse the given debug level and set the
// subsystem levels accordingly. An appropriately sanitized error is
// returned if anything is invalid.
//
// The levelStr format is either a single level applied to every subsystem,
// or a comma-separated list of subsystem=level pairs.
func ParseAndSetLogLevels(levelStr string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(levelStr, ",") && !strings.Contains(levelStr, "=") {
		level, ok := LevelFromString(levelStr)
		if !ok {
			return errors.Errorf("the specified debug level [%s] is invalid", levelStr)
		}
		SetLogLevels(level)
		return nil
	}

	for _, logLevelPair := range strings.Split(levelStr, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return errors.Errorf("the specified debug level contains an invalid "+
				"subsystem/level pair [%s]", logLevelPair)
		}

		fields := strings.Split(logLevelPair, "=")
		if len(fields) != 2 {
			return errors.Errorf("the specified debug level has an invalid "+
				"format [%s] -- use format subsystem1=level1,subsystem2=level2", logLevelPair)
		}
		subsystem, levelStr := fields[0], fields[1]

		subsystemsMutex.Lock()
		logger, ok := subsystems[subsystem]
		subsystemsMutex.Unlock()
		if !ok {
			return errors.Errorf("the specified subsystem [%s] is invalid -- "+
				"supported subsystems %v", subsystem, supportedSubsystems())
		}

		level, ok := LevelFromString(levelStr)
		if !ok {
			return errors.Errorf("the specified debug level [%s] is invalid", levelStr)
		}
		logger.SetLevel(level)
	}

	return nil
}

// supportedSubsystems returns a sorted slice of the registered subsystems
func supportedSubsystems() []string {
	subsystemsMutex.Lock()
	defer subsystemsMutex.Unlock()
	tags := make([]string, 0, len(subsystems))
	for tag := range subsystems {
		tags = append(tags, tag)
	}
	return tags
}

// Close shuts the logging backend down, waiting for everything queued so
// far to be written
func Close() {
	backendLog.Close()
}
