package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

const (
	defaultConfigFilename = "obold.conf"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogLevel       = "info"
)

var (
	// DefaultHomeDir is the default home directory for obold
	DefaultHomeDir = btcutil.AppDataDir("obold", false)

	defaultConfigFile = filepath.Join(DefaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(DefaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(DefaultHomeDir, defaultLogDirname)
)

// Flags holds the command-line and config-file options of obold
type Flags struct {
	ShowVersion  bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile   string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir      string `short:"b" long:"datadir" description:"Directory to store the ledger database in"`
	LogDir       string `long:"logdir" description:"Directory to write log files in"`
	DebugLevel   string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	BatchFile    string `long:"batchfile" description:"File containing the serialized transaction batch to resolve"`
	UTXOSeedFile string `long:"utxoseed" description:"File containing a serialized UTXO pool snapshot to seed an empty ledger store with"`
	Exhaustive   bool   `long:"exhaustive" description:"Resolve the batch with exhaustive maximal conflict-free set enumeration instead of fee-priority propagation"`
}

// Config is the combined and validated configuration of obold
type Config struct {
	*Flags
}

func defaultFlags() *Flags {
	return &Flags{
		ConfigFile: defaultConfigFile,
		DataDir:    defaultDataDir,
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
	}
}

// LoadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func LoadConfig() (*Config, error) {
	cfgFlags := defaultFlags()

	// Pre-parse the command line options to see if an alternative config
	// file was specified.
	preCfg := defaultFlags()
	preParser := flags.NewParser(preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, err
		}
	}

	appName := filepath.Base(os.Args[0])
	if preCfg.ShowVersion {
		// Leave printing the version to the caller, which knows it.
		return &Config{Flags: preCfg}, nil
	}

	// Load additional config from file.
	parser := flags.NewParser(cfgFlags, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		// Only a missing default config file is tolerated.
		if !os.IsNotExist(errors.Cause(err)) || preCfg.ConfigFile != defaultConfigFile {
			return nil, errors.Wrapf(err, "%s: error parsing config file", appName)
		}
	}

	// Parse command line options again to ensure they take precedence.
	_, err = parser.Parse()
	if err != nil {
		return nil, err
	}

	cfg := &Config{Flags: cfgFlags}

	// Expand and normalize the directory paths, and make sure the data
	// directory exists.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	err = os.MkdirAll(cfg.DataDir, 0700)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to create data directory", appName)
	}

	if cfg.BatchFile == "" && cfg.UTXOSeedFile == "" {
		return nil, errors.Errorf("%s: at least one of --batchfile and --utxoseed must be specified", appName)
	}

	return cfg, nil
}

// LogFile returns the path of the general log file
func (cfg *Config) LogFile() string {
	return filepath.Join(cfg.LogDir, "obold.log")
}

// ErrLogFile returns the path of the error log file
func (cfg *Config) ErrLogFile() string {
	return filepath.Join(cfg.LogDir, "obold_err.log")
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[1:])
		} else {
			fmt.Fprintf(os.Stderr, "Failed to expand home directory: %s\n", err)
		}
	}
	return filepath.Clean(os.ExpandEnv(path))
}
