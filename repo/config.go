package repo

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcutil"
	"github.com/chainhaul/settlementd/version"
	"github.com/jessevdk/go-flags"
	"github.com/natefinch/lumberjack"
	"github.com/op/go-logging"
)

const (
	defaultConfigFilename = "settlementd.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "settlementd.log"
)

var (
	// DefaultHomeDir is the platform specific default data directory.
	DefaultHomeDir = btcutil.AppDataDir("settlementd", false)

	defaultConfigFile = filepath.Join(DefaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(DefaultHomeDir, defaultLogDirname)

	fileLogFormat   = logging.MustStringFormatter(`%{time:2006-01-02T15:04:05} [%{level}] [%{module}] %{message}`)
	stdoutLogFormat = logging.MustStringFormatter(`%{color:reset}%{color}%{time:15:04:05.000} [%{level}] [%{module}] %{message}`)
)

// Config defines the configuration options for the settlement engine.
//
// See LoadConfig for details on the configuration load process.
type Config struct {
	ShowVersion bool   `short:"v" long:"version" description:"Display version information and exit"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"d" long:"datadir" description:"Directory to store data"`
	LogDir      string `long:"logdir" description:"Directory to log output."`
	LogLevel    string `short:"l" long:"loglevel" description:"set the logging level [debug, info, notice, warning, error, critical]" default:"info"`

	APIAddr     string `long:"apiaddr" description:"Address the settlement API listens on" default:"127.0.0.1:8337"`
	GatewayAddr string `long:"gatewayaddr" description:"Websocket address of the off-chain channel node" default:"ws://127.0.0.1:4001"`
	LedgerAddr  string `long:"ledgeraddr" description:"HTTP address of the ledger query service" default:"http://127.0.0.1:8090"`

	EscrowAddress string `long:"escrowaddress" description:"Address of the escrow verifier script"`
	LocalParty    string `long:"localparty" description:"Key reference identifying this node in payment channels"`
	RemoteParty   string `long:"remoteparty" description:"Key reference identifying the channel counterparty"`

	ContestationPeriod uint64 `long:"contestationperiod" description:"Contestation period in seconds used when initializing a channel" default:"60"`
	FundingTarget      int64  `long:"fundingtarget" description:"Initial channel funding target in minor units" default:"1000000"`

	ChannelOpenTimeout  time.Duration `long:"openchanneltimeout" description:"How long to wait for a channel to open" default:"30s"`
	PaymentTimeout      time.Duration `long:"paymenttimeout" description:"How long to wait for an off-chain payment confirmation" default:"10s"`
	ChannelCloseTimeout time.Duration `long:"closechanneltimeout" description:"How long to wait for a channel to close and finalize" default:"60s"`

	FeePerByte int64 `long:"feeperbyte" description:"Linear fee model coefficient in minor units per byte" default:"44"`
	FeeBase    int64 `long:"feebase" description:"Linear fee model constant in minor units" default:"155381"`
	MinOutput  int64 `long:"minoutput" description:"Minimum value of a transaction output in minor units" default:"1000"`
	MaxTxSize  int64 `long:"maxtxsize" description:"Maximum serialized transaction size in bytes" default:"16384"`
	MaxValueSize int64 `long:"maxvaluesize" description:"Maximum serialized size of a single output value in bytes" default:"5000"`

	SubmitRetries uint `long:"submitretries" description:"How many times the API layer retries a failed submission with a rebuilt transaction" default:"3"`
}

// LoadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//	1) Start with a default config with sane settings
//	2) Pre-parse the command line to check for an alternative config file
//	3) Load configuration file overwriting defaults with any specified options
//	4) Parse CLI options and overwrite/add any specified options
//
// The above results in the engine functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options. Command line options always take precedence.
func LoadConfig() (*Config, []string, error) {
	// Default config.
	cfg := Config{
		DataDir:    DefaultHomeDir,
		ConfigFile: defaultConfigFile,
		LogDir:     defaultLogDir,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified. Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := flags.NewParser(&cfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil, nil, err
		}
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version.String())
		os.Exit(0)
	}

	if preCfg.DataDir != "" && preCfg.ConfigFile == defaultConfigFile {
		cfg.ConfigFile = filepath.Join(preCfg.DataDir, defaultConfigFilename)
		if preCfg.LogDir == "" || preCfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(preCfg.DataDir, defaultLogDirname)
		}
	}

	// Load additional config from file.
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(cfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		return nil, nil, err
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	setupLogging(cfg.LogDir, cfg.LogLevel)

	return &cfg, remainingArgs, nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(pth string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(pth, "~") {
		homeDir := filepath.Dir(DefaultHomeDir)
		pth = strings.Replace(pth, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(pth))
}

func setupLogging(logDir, logLevel string) {
	backendStdout := logging.NewLogBackend(os.Stdout, "", 0)
	backendStdoutFormatter := logging.NewBackendFormatter(backendStdout, stdoutLogFormat)

	if logDir != "" {
		rotator := &lumberjack.Logger{
			Filename:   path.Join(logDir, defaultLogFilename),
			MaxSize:    10, // Megabytes
			MaxBackups: 3,
			MaxAge:     30, // Days
		}

		backendFile := logging.NewLogBackend(rotator, "", 0)
		backendFileFormatter := logging.NewBackendFormatter(backendFile, fileLogFormat)
		logging.SetBackend(backendStdoutFormatter, backendFileFormatter)
	} else {
		logging.SetBackend(backendStdoutFormatter)
	}

	var level logging.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = logging.DEBUG
	case "info":
		level = logging.INFO
	case "notice":
		level = logging.NOTICE
	case "warning":
		level = logging.WARNING
	case "error":
		level = logging.ERROR
	case "critical":
		level = logging.CRITICAL
	default:
		level = logging.INFO
	}
	logging.SetLevel(level, "")
}
