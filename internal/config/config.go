// Package config parses node startup configuration, following the
// jessevdk/go-flags struct-tag pattern the decred family (EXCCoin-exccd)
// carries in its go.mod for exactly this purpose.
package config

import (
	"time"

	"github.com/jessevdk/go-flags"
)

// Config is the full set of node startup options (spec section 6).
type Config struct {
	Address         string        `long:"address" description:"this node's validator address" required:"true"`
	ListenAddr      string        `long:"listen" description:"simulated network peer id override" default:""`
	RPCListenAddr   string        `long:"rpclisten" description:"address the transaction RPC endpoint binds to" default:"127.0.0.1:8645"`
	DataDir         string        `long:"datadir" description:"directory for node state and logs" default:"./data"`
	LogFile         string        `long:"logfile" description:"path to the rotating log file" default:"./data/sidechain.log"`
	StakingAmount   uint64        `long:"stakingamount" description:"fixed self-stake amount for genesis, in cents" default:"10000"`
	EpochDuration   uint64        `long:"epochduration" description:"number of slots per epoch" default:"10"`
	BlockInterval   time.Duration `long:"blockinterval" description:"target spacing between proposed blocks" default:"6s"`
	MaxTxnsPerBlock int           `long:"maxtxns" description:"maximum transactions included per block" default:"100"`
	SecurityParam   uint32        `long:"securityparam" description:"CCoK security parameter (reveal budget)" default:"128"`
	DebugLevel      string        `long:"debuglevel" description:"log level: trace, debug, info, warn, error, critical" default:"info"`
}

// Load parses args (normally os.Args[1:]) into a Config, applying
// defaults from the struct tags above.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	return cfg, nil
}
