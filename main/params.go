// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	log "github.com/inconshreveable/log15"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ava-labs/queryvm/chain"
	"github.com/ava-labs/queryvm/facade"
	"github.com/ava-labs/queryvm/memnode"
)

const (
	envPrefix = "QUERYVM"

	configFileKey      = "config-file"
	versionKey         = "version"
	httpHostKey        = "http-host"
	httpPortKey        = "http-port"
	maxGasInvokeKey    = "max-gas-invoke"
	addressHRPKey      = "address-hrp"
	logLevelKey        = "log-level"
	logFormatKey       = "log-format"
	mempoolSizeKey     = "mempool-size"
	validatorsCountKey = "validators-count"
	userAgentKey       = "user-agent"
	tcpPortKey         = "tcp-port"
	wsPortKey          = "ws-port"
	seedPeersKey       = "seed-peers"
	blockedSendersKey  = "blocked-senders"
	buildIntervalKey   = "build-interval"

	terminalFormat = "terminal"
	jsonFormat     = "json"
)

var (
	errBadPort      = errors.New("port out of range")
	errBadLogFormat = errors.New("log format must be terminal or json")
	errBadInterval  = errors.New("build interval must be positive")
)

type config struct {
	HTTPHost      string
	HTTPPort      uint16
	LogLevel      log.Lvl
	LogFormat     string
	BuildInterval time.Duration
	Facade        facade.Config
	Node          memnode.Config
}

func buildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(Name, pflag.ContinueOnError)

	fs.String(configFileKey, "", "Path to a JSON, YAML or TOML config file")
	fs.Bool(versionKey, false, "If true, prints the version and quits")
	fs.String(httpHostKey, "127.0.0.1", "Address the HTTP server listens on")
	fs.Uint(httpPortKey, 9650, "Port the HTTP server listens on")
	fs.Uint64(maxGasInvokeKey, facade.DefaultMaxGasInvoke, "Gas ceiling of every invocation")
	fs.String(addressHRPKey, facade.DefaultAddressHRP, "Human readable part of bech32 addresses")
	fs.String(logLevelKey, "info", "Log level")
	fs.String(logFormatKey, terminalFormat, "Log format, terminal or json")
	fs.Int(mempoolSizeKey, 0, "Maximum number of pooled transactions. 0 uses the default")
	fs.Int(validatorsCountKey, 0, "Number of active validators. 0 uses the default")
	fs.String(userAgentKey, fmt.Sprintf("/%s:%s/", Name, Version), "User agent reported by getversion")
	fs.Uint(tcpPortKey, 9651, "P2P port reported by getversion")
	fs.Uint(wsPortKey, 0, "Websocket port reported by getversion")
	fs.StringSlice(seedPeersKey, nil, "Comma separated host:port list of known peers")
	fs.StringSlice(blockedSendersKey, nil, "Comma separated addresses whose transactions are rejected")
	fs.Duration(buildIntervalKey, 5*time.Second, "How often pending transactions are packed into a block")

	return fs
}

// getViper returns the viper environment for the binary. Flags take
// precedence over QUERYVM_ environment variables, which take precedence over
// the config file.
func getViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if path := v.GetString(configFileKey); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}
	return v, nil
}

func getPort(v *viper.Viper, key string) (uint16, error) {
	port := v.GetUint(key)
	if port > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %s=%d", errBadPort, key, port)
	}
	return uint16(port), nil
}

func parseConfig(v *viper.Viper) (config, error) {
	c := config{
		HTTPHost:      v.GetString(httpHostKey),
		LogFormat:     v.GetString(logFormatKey),
		BuildInterval: v.GetDuration(buildIntervalKey),
		Facade: facade.Config{
			MaxGasInvoke: v.GetUint64(maxGasInvokeKey),
			AddressHRP:   v.GetString(addressHRPKey),
		},
		Node: memnode.Config{
			MempoolSize:     v.GetInt(mempoolSizeKey),
			ValidatorsCount: v.GetInt(validatorsCountKey),
			SeedPeers:       v.GetStringSlice(seedPeersKey),
			NodeInfo: facade.NodeInfo{
				Nonce:     uint32(time.Now().UnixNano()),
				UserAgent: v.GetString(userAgentKey),
			},
		},
	}
	if err := c.Facade.Verify(); err != nil {
		return config{}, err
	}
	if c.LogFormat != terminalFormat && c.LogFormat != jsonFormat {
		return config{}, fmt.Errorf("%w: %q", errBadLogFormat, c.LogFormat)
	}
	if c.BuildInterval <= 0 {
		return config{}, errBadInterval
	}

	var err error
	if c.LogLevel, err = log.LvlFromString(v.GetString(logLevelKey)); err != nil {
		return config{}, err
	}
	if c.HTTPPort, err = getPort(v, httpPortKey); err != nil {
		return config{}, err
	}
	if c.Node.NodeInfo.TCPPort, err = getPort(v, tcpPortKey); err != nil {
		return config{}, err
	}
	if c.Node.NodeInfo.WSPort, err = getPort(v, wsPortKey); err != nil {
		return config{}, err
	}

	for _, sender := range v.GetStringSlice(blockedSendersKey) {
		hash, err := parseScriptHash(c.Facade.AddressHRP, sender)
		if err != nil {
			return config{}, fmt.Errorf("bad blocked sender %q: %w", sender, err)
		}
		c.Node.BlockedSenders = append(c.Node.BlockedSenders, hash)
	}
	return c, nil
}

// parseScriptHash accepts a bech32 address or a CB58 script hash.
func parseScriptHash(hrp, s string) (ids.ShortID, error) {
	if hash, err := chain.ParseAddress(hrp, s); err == nil {
		return hash, nil
	}
	return ids.ShortFromString(s)
}
