package main

import (
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// prints a fresh custodial key for SIGNER_PRIVATE_KEY and the address that
// has to hold the sale token
func main() {
	key, err := crypto.GenerateKey()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("SIGNER_PRIVATE_KEY=" + hexutil.Encode(crypto.FromECDSA(key)))
	fmt.Println("address:", crypto.PubkeyToAddress(key.PublicKey).Hex())
}
