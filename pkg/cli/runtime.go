package cli

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gofiber/fiber/v2/log"
	"github.com/grexie/secretchat/pkg/auth"
	"github.com/grexie/secretchat/pkg/config"
	"github.com/grexie/secretchat/pkg/contract"
	"github.com/grexie/secretchat/pkg/fhe"
	"github.com/grexie/secretchat/pkg/messenger"
	"github.com/grexie/secretchat/pkg/simulated"
	"github.com/grexie/secretchat/pkg/storage"
	"github.com/grexie/secretchat/pkg/storage/interfaces"
	"github.com/grexie/secretchat/pkg/wallet"
)

type runtime struct {
	config    config.Config
	messenger messenger.Messenger
	storage   interfaces.IStorageBackend
	client    *ethclient.Client
}

func (c *cli) loadConfig() (config.Config, error) {
	cfg, err := config.Parse(c.environment)
	if err != nil {
		return config.Config{}, err
	}

	if c.address != "" {
		if !common.IsHexAddress(c.address) {
			return config.Config{}, fmt.Errorf("invalid contract address: %q", c.address)
		}
		cfg.ContractAddress = c.address
	}

	if level, err := config.ParseLogLevel(cfg.LogLevel); err != nil {
		return config.Config{}, err
	} else {
		log.SetLevel(level)
	}

	return cfg, nil
}

func (c *cli) simulatedNetwork(cfg config.Config) (contract.SecretChat, fhe.Instance, wallet.Signer, error) {
	network := c.network
	if network == nil {
		network = simulated.NewNetwork(big.NewInt(cfg.ChainID), simulated.WithAddress(cfg.Contract()))
	}

	var signer wallet.Signer
	if cfg.PrivateKey == "" {
		if s, err := wallet.GenerateSigner(network.ChainID()); err != nil {
			return nil, nil, nil, err
		} else {
			log.Warnf("SECRETCHAT_PRIVATE_KEY not set, using ephemeral account %s", s.Address().Hex())
			signer = s
		}
	} else if s, err := wallet.NewSignerFromHex(cfg.PrivateKey, network.ChainID()); err != nil {
		return nil, nil, nil, err
	} else {
		signer = s
	}

	return network.Contract(), network.Instance(), signer, nil
}

func (c *cli) sepoliaNetwork(ctx context.Context, cfg config.Config, rt *runtime) (contract.SecretChat, fhe.Instance, wallet.Signer, error) {
	if cfg.RPCURL == "" {
		return nil, nil, nil, fmt.Errorf("rpc url not configured, set SECRETCHAT_RPC_URL")
	}

	chainID := big.NewInt(cfg.ChainID)

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error connecting to %s: %w", cfg.RPCURL, err)
	}
	rt.client = client

	if chat, err := contract.NewSecretChat(cfg.Contract(), client); err != nil {
		return nil, nil, nil, err
	} else if instance, err := fhe.NewRelayerClient(fhe.RelayerConfig{
		BaseURL:           cfg.RelayerURL,
		ChainID:           chainID,
		DecryptionAddress: common.HexToAddress(cfg.DecryptionAddress),
		Timeout:           cfg.RelayerTimeout,
	}, auth.NewAuth(cfg.RelayerKeys)); err != nil {
		return nil, nil, nil, err
	} else if signer, err := wallet.NewSignerFromHex(cfg.PrivateKey, chainID); err != nil {
		return nil, nil, nil, err
	} else {
		return chat, instance, signer, nil
	}
}

// load wires a messenger for the configured network. The caller must close
// the returned runtime.
func (c *cli) load(ctx context.Context) (*runtime, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}

	rt := &runtime{config: cfg}

	var (
		chat     contract.SecretChat
		instance fhe.Instance
		signer   wallet.Signer
	)

	switch cfg.Network {
	case config.NetworkSimulated:
		chat, instance, signer, err = c.simulatedNetwork(cfg)
	default:
		chat, instance, signer, err = c.sepoliaNetwork(ctx, cfg, rt)
	}
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	if rt.storage, err = storage.NewStorage(ctx, cfg.StorageBackend, cfg.MongoURL); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	if rt.messenger, err = messenger.NewMessenger(chat, instance, signer, rt.storage, messenger.Config{
		DecryptDurationDays: cfg.DecryptDurationDays,
		CacheSize:           cfg.DecryptCacheSize,
	}); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	log.Debugf("using %s network, contract %s, account %s", cfg.Network, chat.Address().Hex(), signer.Address().Hex())

	return rt, nil
}

func (rt *runtime) Close(ctx context.Context) {
	if rt.storage != nil {
		if err := rt.storage.Close(ctx); err != nil {
			log.Warnf("error closing storage: %v", err)
		}
	}
	if rt.client != nil {
		rt.client.Close()
	}
}
