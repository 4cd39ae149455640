package evm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	RPCUrl           string `envconfig:"RPC_URL" default:"https://mainnet.base.org"`
	QuoterAddress    string `envconfig:"QUOTER_ADDRESS" default:"0x3d4e44Eb1374240CE5F1B871ab261CD16335B76a"` // Uniswap QuoterV2 on Base
	SignerPrivateKey string `envconfig:"SIGNER_PRIVATE_KEY"`                                                  // optional, enables delivery
}

func LoadConfig() (c *Config, err error) {
	c = &Config{}
	err = envconfig.Process("", c)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(c.QuoterAddress) {
		return nil, fmt.Errorf("QUOTER_ADDRESS %q is not a valid address", c.QuoterAddress)
	}
	return c, nil
}
