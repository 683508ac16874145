package actors

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/nbd-wtf/go-nostr/nip06"
	"github.com/sasha-s/go-deadlock"
	"trustmesh/engine/library"
)

var currentWallet library.Wallet
var currentWalletMutex = &deadlock.Mutex{}

// MyWallet returns the key used to sign mirrored signals. A configured privateKey wins, then
// rootDir/wallet.dat, and otherwise a new wallet is generated and saved there.
func MyWallet() (library.Wallet, error) {
	currentWalletMutex.Lock()
	defer currentWalletMutex.Unlock()
	if len(currentWallet.PrivateKey) > 0 {
		return currentWallet, nil
	}
	if sk := MakeOrGetConfig().GetString("privateKey"); sk != "" {
		pk, err := getPubKey(sk)
		if err != nil {
			return library.Wallet{}, err
		}
		currentWallet = library.Wallet{PrivateKey: sk, Account: pk}
		return currentWallet, nil
	}
	path := MakeOrGetConfig().GetString("rootDir") + "wallet.dat"
	if w, ok := getWalletFromDisk(path); ok {
		currentWallet = w
		return currentWallet, nil
	}
	library.LogCLI("Generating a new wallet, write down the seed words if you want to keep it", library.LevelInfo)
	w, err := makeNewWallet()
	if err != nil {
		return library.Wallet{}, err
	}
	if err := persistWallet(path, w); err != nil {
		return library.Wallet{}, err
	}
	currentWallet = w
	return currentWallet, nil
}

func makeNewWallet() (library.Wallet, error) {
	seedWords, err := nip06.GenerateSeedWords()
	if err != nil {
		return library.Wallet{}, err
	}
	seed := nip06.SeedFromWords(seedWords)
	sk, err := nip06.PrivateKeyFromSeed(seed)
	if err != nil {
		return library.Wallet{}, err
	}
	pk, err := getPubKey(sk)
	if err != nil {
		return library.Wallet{}, err
	}
	return library.Wallet{
		PrivateKey: sk,
		SeedWords:  seedWords,
		Account:    pk,
	}, nil
}

// getPubKey returns the x-only public key for a hex private key.
func getPubKey(privateKey string) (string, error) {
	keyb, err := hex.DecodeString(privateKey)
	if err != nil {
		return "", fmt.Errorf("decoding key from hex: %w", err)
	}
	if len(keyb) != 32 {
		return "", fmt.Errorf("private key must be 32 bytes, got %d", len(keyb))
	}
	_, pubkey := btcec.PrivKeyFromBytes(keyb)
	return hex.EncodeToString(pubkey.SerializeCompressed()[1:]), nil
}

func persistWallet(path string, w library.Wallet) error {
	b, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0600)
}

func getWalletFromDisk(path string) (w library.Wallet, ok bool) {
	file, err := os.ReadFile(path)
	if err != nil {
		library.LogCLI(fmt.Sprintf("Error getting wallet file: %s", err.Error()), library.LevelDebug)
		return library.Wallet{}, false
	}
	err = json.Unmarshal(file, &w)
	if err != nil || w.PrivateKey == "" {
		library.LogCLI("Error parsing wallet file", library.LevelWarn)
		return library.Wallet{}, false
	}
	return w, true
}
