package fhe

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/grexie/secretchat/pkg/api/interop"
	"github.com/grexie/secretchat/pkg/auth"
)

type RelayerConfig struct {
	BaseURL           string
	ChainID           *big.Int
	DecryptionAddress common.Address
	Timeout           time.Duration
}

// RelayerClient talks to a relayer gateway that owns the FHE public key
// material and the threshold decryption network.
type RelayerClient struct {
	client *resty.Client
	auth   auth.Auth
	config RelayerConfig
}

var _ Instance = &RelayerClient{}

func NewRelayerClient(config RelayerConfig, a auth.Auth) (*RelayerClient, error) {
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, fmt.Errorf("fhe: relayer url not configured, set SECRETCHAT_RELAYER_URL")
	} else if config.ChainID == nil {
		return nil, fmt.Errorf("fhe: relayer chain id not configured")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetTimeout(config.Timeout).
		SetHeader("Content-Type", "application/json")

	return &RelayerClient{client: client, auth: a, config: config}, nil
}

type inputValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type inputProofRequest struct {
	ContractAddress common.Address `json:"contractAddress"`
	UserAddress     common.Address `json:"userAddress"`
	Values          []inputValue   `json:"values"`
}

type inputProofResponse struct {
	Handles    []string      `json:"handles"`
	InputProof hexutil.Bytes `json:"inputProof"`
}

type keypairResponse struct {
	PublicKey  hexutil.Bytes `json:"publicKey"`
	PrivateKey hexutil.Bytes `json:"privateKey"`
}

type handleContractPair struct {
	Handle          string         `json:"handle"`
	ContractAddress common.Address `json:"contractAddress"`
}

type userDecryptRequest struct {
	HandleContractPairs []handleContractPair `json:"handleContractPairs"`
	PrivateKey          hexutil.Bytes        `json:"privateKey"`
	PublicKey           hexutil.Bytes        `json:"publicKey"`
	Signature           string               `json:"signature"`
	ContractAddresses   []common.Address     `json:"contractAddresses"`
	UserAddress         common.Address       `json:"userAddress"`
	StartTimestamp      string               `json:"startTimestamp"`
	DurationDays        string               `json:"durationDays"`
}

type userDecryptResponse struct {
	Results map[string]string `json:"results"`
}

// statusError maps relayer refusals onto the Instance sentinel errors.
func statusError(path string, status int, message string) error {
	switch status {
	case http.StatusForbidden:
		return fmt.Errorf("fhe: relayer %s: %w: %s", path, ErrNotAuthorized, message)
	case http.StatusNotFound:
		return fmt.Errorf("fhe: relayer %s: %w: %s", path, ErrUnknownHandle, message)
	default:
		return fmt.Errorf("fhe: relayer %s: %s", path, message)
	}
}

func (r *RelayerClient) post(ctx context.Context, path string, body any, data any) error {
	var res interop.APIResponse[json.RawMessage]

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req := r.client.R().
		SetContext(ctx).
		SetBody(b).
		SetResult(&res).
		SetError(&res)

	if r.auth != nil {
		if headers, err := r.auth.SignHeaders(b); err != nil {
			return err
		} else {
			req.SetHeaders(headers)
		}
	}

	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("fhe: relayer request %s: %w", path, err)
	}

	if !res.Success {
		message := resp.Status()
		if res.Error != nil {
			message = *res.Error
		}
		log.Warnf("relayer %s failed with status %d: %s", path, resp.StatusCode(), message)
		return statusError(path, resp.StatusCode(), message)
	} else if resp.IsError() {
		return statusError(path, resp.StatusCode(), resp.Status())
	}

	if data == nil {
		return nil
	}
	return json.Unmarshal(res.Data, data)
}

func (r *RelayerClient) EncryptUint32(ctx context.Context, contract common.Address, user common.Address, value uint32) (EncryptedInput, error) {
	var res inputProofResponse

	req := inputProofRequest{
		ContractAddress: contract,
		UserAddress:     user,
		Values:          []inputValue{{Type: "euint32", Value: strconv.FormatUint(uint64(value), 10)}},
	}

	if err := r.post(ctx, "/v1/input-proof", &req, &res); err != nil {
		return EncryptedInput{}, err
	} else if len(res.Handles) != len(req.Values) {
		return EncryptedInput{}, fmt.Errorf("fhe: relayer returned %d handles for %d values", len(res.Handles), len(req.Values))
	}

	out := EncryptedInput{InputProof: res.InputProof}
	for _, h := range res.Handles {
		if handle, err := HandleFromHex(h); err != nil {
			return EncryptedInput{}, err
		} else {
			out.Handles = append(out.Handles, handle)
		}
	}

	return out, nil
}

func (r *RelayerClient) GenerateKeypair(ctx context.Context) (Keypair, error) {
	var res keypairResponse

	if err := r.post(ctx, "/v1/keypair", struct{}{}, &res); err != nil {
		return Keypair{}, err
	}

	return Keypair{PublicKey: res.PublicKey, PrivateKey: res.PrivateKey}, nil
}

func (r *RelayerClient) CreateEIP712(publicKey []byte, contractAddresses []common.Address, startTimestamp int64, durationDays int) apitypes.TypedData {
	return NewUserDecryptTypedData(r.config.ChainID, r.config.DecryptionAddress, publicKey, contractAddresses, startTimestamp, durationDays)
}

func (r *RelayerClient) UserDecrypt(ctx context.Context, req UserDecryptRequest) (map[Handle]*big.Int, error) {
	var res userDecryptResponse

	if len(req.Pairs) == 0 {
		return nil, ErrEmptyHandleList
	}

	body := userDecryptRequest{
		PrivateKey:        req.Keypair.PrivateKey,
		PublicKey:         req.Keypair.PublicKey,
		Signature:         strings.TrimPrefix(req.Signature, "0x"),
		ContractAddresses: req.ContractAddresses,
		UserAddress:       req.UserAddress,
		StartTimestamp:    strconv.FormatInt(req.StartTimestamp, 10),
		DurationDays:      strconv.Itoa(req.DurationDays),
	}
	for _, p := range req.Pairs {
		body.HandleContractPairs = append(body.HandleContractPairs, handleContractPair{Handle: p.Handle.Hex(), ContractAddress: p.ContractAddress})
	}

	if err := r.post(ctx, "/v1/user-decrypt", &body, &res); err != nil {
		return nil, err
	}

	results := make(map[Handle]*big.Int, len(res.Results))
	for k, v := range res.Results {
		if handle, err := HandleFromHex(k); err != nil {
			return nil, err
		} else if n, ok := new(big.Int).SetString(v, 0); !ok {
			return nil, fmt.Errorf("fhe: relayer returned invalid value for handle %s: %q", k, v)
		} else {
			results[handle] = n
		}
	}

	for _, p := range req.Pairs {
		if _, ok := results[p.Handle]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingResult, p.Handle)
		}
	}

	return results, nil
}
