package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/code-payments/timelock-wallet-client/pkg/lockcache"
	"github.com/code-payments/timelock-wallet-client/pkg/solana"
	"github.com/code-payments/timelock-wallet-client/pkg/timelock"
	"github.com/code-payments/timelock-wallet-client/pkg/wallet"
)

const (
	envPrefix      = "TIMELOCK"
	configName     = ".timelockctl"
	outputText     = "text"
	outputJSON     = "json"
	defaultCluster = "devnet"
)

type config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	Output    string `mapstructure:"output"`

	// RPC lists endpoint URLs or cluster names, tried in order.
	RPC               []string `mapstructure:"rpc"`
	RequestsPerSecond float64  `mapstructure:"requests_per_second"`
	MaxRetries        uint     `mapstructure:"max_retries"`

	Keypair string `mapstructure:"keypair"`
	Cache   string `mapstructure:"cache"`

	timelock.Config `mapstructure:",squash"`
}

func defaultConfig() config {
	client := solana.DefaultClientConfig()

	return config{
		LogLevel:          "info",
		LogFormat:         outputText,
		Output:            outputText,
		RPC:               []string{defaultRPC()},
		RequestsPerSecond: client.RequestsPerSecond,
		MaxRetries:        client.MaxRetries,
		Keypair:           filepath.Join(homeDir(), ".config", "solana", "id.json"),
		Cache:             filepath.Join(homeDir(), configName, "locks.db"),
		Config:            timelock.DefaultConfig(),
	}
}

func defaultRPC() string {
	if url := os.Getenv("SOLANA_RPC_URL"); url != "" {
		return url
	}
	return defaultCluster
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// environment holds everything a command needs. Network clients, the wallet
// and the cache are created on first use.
type environment struct {
	v          *viper.Viper
	configPath string

	// httpClient overrides the RPC transport when set.
	httpClient *http.Client

	cfg config
	log *logrus.Entry

	rpc    solana.Client
	client *timelock.Client
	cache  *lockcache.Cache
}

func newEnvironment() *environment {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("rpc", envPrefix+"_RPC_URL")

	defaults := defaultConfig()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("rpc", defaults.RPC)
	v.SetDefault("requests_per_second", defaults.RequestsPerSecond)
	v.SetDefault("max_retries", defaults.MaxRetries)
	v.SetDefault("keypair", defaults.Keypair)
	v.SetDefault("cache", defaults.Cache)
	v.SetDefault("program_id", defaults.ProgramID)
	v.SetDefault("commitment", defaults.Commitment)
	v.SetDefault("confirm_timeout", defaults.ConfirmTimeout)
	v.SetDefault("poll_interval", defaults.PollInterval)
	v.SetDefault("compute_unit_price", defaults.ComputeUnitPrice)
	v.SetDefault("compute_unit_limit", defaults.ComputeUnitLimit)
	v.SetDefault("cluster", "")

	return &environment{
		v:   v,
		log: logrus.StandardLogger().WithField("type", "cmd/timelockctl"),
	}
}

func (e *environment) bindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&e.configPath, "config", "", "config file (default $HOME/"+configName+".yaml)")
	flags.StringSlice("rpc", nil, "RPC endpoint URL or cluster name; repeat to add fallbacks")
	flags.String("program-id", "", "time lock program id")
	flags.String("keypair", "", "Solana keygen keypair file used to sign")
	flags.String("commitment", "", "commitment level: processed, confirmed or finalized")
	flags.StringP("output", "o", "", "output format: text or json")
	flags.String("log-level", "", "log level")
	flags.String("cache", "", "path to the local lock cache")

	for key, name := range map[string]string{
		"rpc":        "rpc",
		"program_id": "program-id",
		"keypair":    "keypair",
		"commitment": "commitment",
		"output":     "output",
		"log_level":  "log-level",
		"cache":      "cache",
	} {
		_ = e.v.BindPFlag(key, flags.Lookup(name))
	}
}

// load reads the config file, environment and flags, in increasing order of
// precedence, and configures logging.
func (e *environment) load() error {
	if e.configPath != "" {
		e.v.SetConfigFile(e.configPath)
	} else {
		e.v.AddConfigPath(homeDir())
		e.v.SetConfigName(configName)
		e.v.SetConfigType("yaml")
	}

	err := e.v.ReadInConfig()
	_, isConfigNotFound := err.(viper.ConfigFileNotFoundError)
	if err != nil && !isConfigNotFound {
		return errors.Wrap(err, "failed to load config")
	}

	cfg := defaultConfig()
	if err := e.v.Unmarshal(&cfg); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}

	switch cfg.Output {
	case outputText, outputJSON:
	default:
		return errors.Errorf("invalid output format %q (use text or json)", cfg.Output)
	}

	configureLogger(cfg)

	e.cfg = cfg
	e.log = logrus.StandardLogger().WithFields(logrus.Fields{
		"type":   "cmd/timelockctl",
		"run_id": uuid.New().String(),
	})
	return nil
}

// configureLogger writes logs to stderr so command output on stdout stays
// machine readable.
func configureLogger(cfg config) {
	if cfg.LogFormat == outputJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{})
	}

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", cfg.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stderr)
}

func (e *environment) endpoints() ([]string, error) {
	var endpoints []string
	for _, raw := range e.cfg.RPC {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}

			endpoint, err := solana.ResolveEndpoint(part)
			if err != nil {
				return nil, err
			}
			endpoints = append(endpoints, endpoint)
		}
	}

	if len(endpoints) == 0 {
		return nil, errors.New("no rpc endpoint configured")
	}
	return endpoints, nil
}

// cluster is the configured cluster, or the one the first endpoint belongs
// to. Unknown endpoints yield no cluster, which disables airdrops.
func (e *environment) cluster() solana.Cluster {
	if e.cfg.Cluster != "" {
		if c, err := solana.ParseCluster(string(e.cfg.Cluster)); err == nil {
			return c
		}
		return ""
	}

	for _, raw := range e.cfg.RPC {
		first := strings.TrimSpace(strings.Split(raw, ",")[0])
		if c, err := solana.ParseCluster(first); err == nil {
			return c
		}
		if c, ok := solana.ClusterForEndpoint(first); ok {
			return c
		}
		break
	}
	return ""
}

func (e *environment) rpcClient() (solana.Client, error) {
	if e.rpc != nil {
		return e.rpc, nil
	}

	endpoints, err := e.endpoints()
	if err != nil {
		return nil, err
	}

	clientConfig := solana.DefaultClientConfig()
	clientConfig.Endpoints = endpoints
	clientConfig.RequestsPerSecond = e.cfg.RequestsPerSecond
	clientConfig.MaxRetries = e.cfg.MaxRetries
	if e.httpClient != nil {
		clientConfig.HTTPClient = e.httpClient
	}

	rpc, err := solana.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	e.rpc = rpc
	return rpc, nil
}

// timelockClient returns the client, connecting the keypair wallet. When
// signing isn't needed a missing keypair file leaves the client without a
// wallet.
func (e *environment) timelockClient(ctx context.Context, needsSigner bool) (*timelock.Client, error) {
	if e.client != nil {
		if needsSigner && e.client.Wallet() == nil {
			return nil, errors.Wrapf(timelock.ErrNoWallet, "keypair %s", e.cfg.Keypair)
		}
		return e.client, nil
	}

	rpc, err := e.rpcClient()
	if err != nil {
		return nil, err
	}

	var w wallet.Wallet
	if _, statErr := os.Stat(e.cfg.Keypair); statErr == nil || needsSigner {
		w, err = wallet.Connect(ctx, wallet.KeygenFileConnector(e.cfg.Keypair))
		if err != nil {
			return nil, err
		}
	}

	cfg := e.cfg.Config
	cfg.Cluster = e.cluster()
	cfg.Clock = time.Now

	client, err := timelock.New(rpc, w, cfg)
	if err != nil {
		return nil, err
	}

	e.client = client
	return client, nil
}

func (e *environment) lockCache(ctx context.Context) (*lockcache.Cache, error) {
	if e.cache != nil {
		return e.cache, nil
	}

	cache, err := lockcache.Open(ctx, e.cfg.Cache)
	if err != nil {
		return nil, err
	}

	e.cache = cache
	return cache, nil
}

func (e *environment) close() {
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			e.log.WithError(err).Warn("failed to close lock cache")
		}
		e.cache = nil
	}
}
