package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/timelock-wallet-client/pkg/rate"
	"github.com/code-payments/timelock-wallet-client/pkg/retry"
	"github.com/code-payments/timelock-wallet-client/pkg/retry/backoff"
)

const (
	// todo: we can retrieve these from the Syscall account
	//       but they're unlikely to change.
	ticksPerSec  = 160
	ticksPerSlot = 64
	slotsPerSec  = ticksPerSec / ticksPerSlot

	// PollRate is the rate at which signature statuses should be polled at.
	PollRate = (time.Second / slotsPerSec) / 2

	// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L11
	rpcNodeUnhealthyCode = -32005

	invalidParamCode = -32602

	rateLimitedCode = 429

	DefaultUserAgent = "Time-Locked-Wallet/1.0.0"
)

type Commitment struct {
	Commitment string `json:"commitment"`
}

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

// ParseCommitment maps a commitment name to its value.
func ParseCommitment(s string) (Commitment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case confirmationStatusProcessed:
		return CommitmentProcessed, nil
	case confirmationStatusConfirmed, "":
		return CommitmentConfirmed, nil
	case confirmationStatusFinalized:
		return CommitmentFinalized, nil
	}
	return Commitment{}, errors.Errorf("unknown commitment %q", s)
}

func (c Commitment) String() string {
	return c.Commitment
}

var (
	ErrNoAccountInfo        = errors.New("no account info")
	ErrNoBalance            = errors.New("no balance")
	ErrConfirmationTimeout  = errors.New("timed out waiting for confirmation")
	ErrTransactionNotSigned = errors.New("transaction is not signed")
)

// AccountInfo contains the Solana account information (not to be confused with a TokenAccount)
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

// KeyedAccount is an account returned from a program account scan.
type KeyedAccount struct {
	PublicKey ed25519.PublicKey
	Account   AccountInfo
}

type SignatureStatus struct {
	Slot        uint64
	ErrorResult *TransactionError

	// Confirmations will be nil if the transaction has been rooted.
	Confirmations      *int
	ConfirmationStatus string
}

func (s SignatureStatus) Confirmed() bool {
	if s.Finalized() {
		return true
	}

	if s.ConfirmationStatus == confirmationStatusConfirmed {
		return true
	}

	return *s.Confirmations >= 1
}

func (s SignatureStatus) Finalized() bool {
	return s.Confirmations == nil || s.ConfirmationStatus == confirmationStatusFinalized
}

// Reached reports whether the transaction has been observed at (at least)
// the provided commitment.
func (s SignatureStatus) Reached(commitment Commitment) bool {
	switch commitment.Commitment {
	case confirmationStatusFinalized:
		return s.Finalized()
	case confirmationStatusConfirmed:
		return s.Confirmed()
	default:
		return true
	}
}

// ProgramAccountFilter narrows a getProgramAccounts scan. Exactly one of the
// fields is set; use FilterMemcmp or FilterDataSize.
type ProgramAccountFilter struct {
	Memcmp   *MemcmpFilter `json:"memcmp,omitempty"`
	DataSize *uint64       `json:"dataSize,omitempty"`
}

type MemcmpFilter struct {
	Offset uint64 `json:"offset"`
	Bytes  string `json:"bytes"`
}

// FilterMemcmp matches accounts whose data at offset equals value.
func FilterMemcmp(offset uint64, value []byte) ProgramAccountFilter {
	return ProgramAccountFilter{
		Memcmp: &MemcmpFilter{
			Offset: offset,
			Bytes:  base58.Encode(value),
		},
	}
}

// FilterDataSize matches accounts whose data is exactly size bytes.
func FilterDataSize(size uint64) ProgramAccountFilter {
	return ProgramAccountFilter{DataSize: &size}
}

// Client provides an interaction with the Solana JSON RPC API.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
type Client interface {
	GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (AccountInfo, error)
	GetBalance(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (uint64, error)
	GetLatestBlockhash(ctx context.Context, commitment Commitment) (Blockhash, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (lamports uint64, err error)
	GetProgramAccounts(ctx context.Context, program ed25519.PublicKey, commitment Commitment, filters ...ProgramAccountFilter) ([]KeyedAccount, error)
	GetSignatureStatuses(ctx context.Context, sigs []Signature) ([]*SignatureStatus, error)
	GetTokenAccountBalance(ctx context.Context, account ed25519.PublicKey) (amount, decimals uint64, err error)
	RequestAirdrop(ctx context.Context, account ed25519.PublicKey, lamports uint64, commitment Commitment) (Signature, error)
	SubmitTransaction(ctx context.Context, txn Transaction, commitment Commitment) (Signature, error)
	AwaitSignatureStatus(ctx context.Context, sig Signature, commitment Commitment, pollInterval time.Duration) (*SignatureStatus, error)
}

// ClientConfig configures the RPC client.
type ClientConfig struct {
	// Endpoints are tried in order, rotating to the next one on rate limiting
	// or service errors.
	Endpoints []string `mapstructure:"endpoints"`

	// RequestsPerSecond is the client side limit applied to each endpoint. A
	// zero value disables throttling.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// MaxRetries is the number of additional attempts made for reads.
	MaxRetries uint `mapstructure:"max_retries"`

	UserAgent string `mapstructure:"user_agent"`

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration `mapstructure:"timeout"`

	BaseBackoff time.Duration `mapstructure:"base_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client `mapstructure:"-"`
}

// DefaultClientConfig returns the configuration used when nothing is
// overridden, pointed at devnet.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoints:         []string{Devnet.Endpoint()},
		RequestsPerSecond: 10,
		MaxRetries:        3,
		UserAgent:         DefaultUserAgent,
		Timeout:           30 * time.Second,
		BaseBackoff:       500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
	}
}

var (
	errRateLimited  = errors.New("rate limited")
	errServiceError = errors.New("service error")
)

type endpoint struct {
	url string
	rpc jsonrpc.RPCClient
}

type client struct {
	log       *logrus.Entry
	endpoints []*endpoint
	limiter   rate.Limiter
	retrier   retry.Retrier

	mu      sync.Mutex
	current int
}

// New returns a client using the specified endpoint and default settings.
func New(endpointURL string) Client {
	cfg := DefaultClientConfig()
	cfg.Endpoints = []string{endpointURL}

	c, err := NewClient(cfg)
	if err != nil {
		// Only reachable with an empty endpoint list.
		panic(err)
	}
	return c
}

// NewClient returns a client for the configured endpoints.
func NewClient(cfg ClientConfig) (Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, errors.New("at least one endpoint is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	base := cfg.BaseBackoff
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 5 * time.Second
	}

	c := &client{
		log:     logrus.StandardLogger().WithField("type", "solana/client"),
		limiter: rate.NewLocalRateLimiter(xrate.Limit(cfg.RequestsPerSecond)),
		retrier: retry.NewRetrier(
			retry.RetriableErrors(errRateLimited, errServiceError),
			retry.Limit(cfg.MaxRetries+1),
			retry.BackoffWithJitter(backoff.BinaryExponential(base), maxBackoff, 0.1),
		),
	}

	for _, url := range cfg.Endpoints {
		url = strings.TrimSpace(url)
		if url == "" {
			return nil, errors.New("empty endpoint")
		}

		c.endpoints = append(c.endpoints, &endpoint{
			url: url,
			rpc: jsonrpc.NewClientWithOpts(url, &jsonrpc.RPCClientOpts{
				HTTPClient: httpClient,
				CustomHeaders: map[string]string{
					"User-Agent": userAgent,
				},
			}),
		})
	}

	return c, nil
}

func (c *client) active() *endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoints[c.current]
}

// rotate moves to the endpoint after failed, unless another caller already
// rotated away from it.
func (c *client) rotate(failed *endpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.endpoints) < 2 || c.endpoints[c.current] != failed {
		return
	}

	c.current = (c.current + 1) % len(c.endpoints)
	c.log.WithFields(logrus.Fields{
		"from": failed.url,
		"to":   c.endpoints[c.current].url,
	}).Warn("failing over to next endpoint")
}

// call performs an idempotent request with retries and failover.
func (c *client) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	_, err := c.retrier.Retry(ctx, func() error {
		return c.callOnce(ctx, out, method, params...)
	})
	return err
}

func (c *client) callOnce(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	ep := c.active()

	if err := c.limiter.Wait(ctx, ep.url); err != nil {
		return err
	}

	err := ep.rpc.CallFor(out, method, params...)
	if err == nil {
		return nil
	}

	err = c.handleRpcError(method, ep, err)
	if errors.Is(err, errRateLimited) || errors.Is(err, errServiceError) {
		c.rotate(ep)
	}
	return err
}

func (c *client) handleRpcError(method string, ep *endpoint, err error) error {
	log := c.log.WithFields(logrus.Fields{
		"method":   method,
		"endpoint": ep.url,
	})

	switch t := err.(type) {
	case *jsonrpc.RPCError:
		if t.Code == rateLimitedCode {
			log.Warn("rate limited")
			return errors.Wrap(errRateLimited, t.Message)
		}
		if t.Code == rpcNodeUnhealthyCode {
			log.Warn("node unhealthy")
			return errors.Wrap(errServiceError, t.Message)
		}
		return err
	case *jsonrpc.HTTPError:
		if t.Code == http.StatusTooManyRequests {
			log.Warn("rate limited")
			return errors.Wrap(errRateLimited, t.Error())
		}
		if t.Code >= http.StatusInternalServerError {
			log.WithField("status", t.Code).Warn("service error")
			return errors.Wrap(errServiceError, t.Error())
		}
		return err
	default:
		// Transport level failures (dial, reset, timeout) never reached a
		// node, so they are safe to retry elsewhere.
		log.WithError(err).Warn("transport error")
		return errors.Wrap(errServiceError, err.Error())
	}
}

func (c *client) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (lamports uint64, err error) {
	if err := c.call(ctx, &lamports, "getMinimumBalanceForRentExemption", dataSize); err != nil {
		return 0, errors.Wrapf(err, "getMinimumBalanceForRentExemption() failed to send request")
	}

	return lamports, nil
}

func (c *client) GetLatestBlockhash(ctx context.Context, commitment Commitment) (hash Blockhash, err error) {
	type response struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}

	// note: we have to wrap the commitment in an []interface{} otherwise the
	//       client sends the object itself as params, which violates what the
	//       solana RPC node expects.
	var resp response
	if err := c.call(ctx, &resp, "getLatestBlockhash", []interface{}{commitment}); err != nil {
		return hash, errors.Wrapf(err, "getLatestBlockhash() failed to send request")
	}

	hash, err = BlockhashFromBase58(resp.Value.Blockhash)
	if err != nil {
		return hash, errors.Wrap(err, "invalid blockhash in response")
	}

	return hash, nil
}

func (c *client) GetBalance(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (uint64, error) {
	var resp struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, &resp, "getBalance", base58.Encode(account), commitment); err != nil {
		if rpcErr, ok := errors.Cause(err).(*jsonrpc.RPCError); ok && rpcErr.Code == invalidParamCode {
			return 0, ErrNoBalance
		}
		return 0, errors.Wrapf(err, "getBalance() failed to send request")
	}

	return resp.Value, nil
}

type tokenAmount struct {
	Amount   string `json:"amount"`   // example: "49801500000",
	Decimals uint64 `json:"decimals"` // example: 5,
}

func (c *client) GetTokenAccountBalance(ctx context.Context, account ed25519.PublicKey) (uint64, uint64, error) {
	var resp struct {
		Value tokenAmount `json:"value"`
	}
	if err := c.call(ctx, &resp, "getTokenAccountBalance", base58.Encode(account), CommitmentConfirmed); err != nil {
		if rpcErr, ok := errors.Cause(err).(*jsonrpc.RPCError); ok && rpcErr.Code == invalidParamCode {
			return 0, 0, ErrNoBalance
		}
		return 0, 0, errors.Wrapf(err, "getTokenAccountBalance() failed to send request")
	}

	amount, err := strconv.ParseUint(resp.Value.Amount, 10, 64)
	if err != nil {
		return 0, 0, errors.Errorf("invalid amount in response: %q", resp.Value.Amount)
	}

	return amount, resp.Value.Decimals, nil
}

type rpcAccount struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"`
	Executable bool     `json:"executable"`
}

func (a *rpcAccount) decode() (info AccountInfo, err error) {
	info.Owner, err = base58.Decode(a.Owner)
	if err != nil {
		return info, errors.Wrap(err, "invalid base58 encoded owner")
	}
	if len(a.Data) == 0 {
		return info, errors.New("missing account data")
	}

	info.Data, err = base64.StdEncoding.DecodeString(a.Data[0])
	if err != nil {
		return info, errors.Wrap(err, "invalid base64 encoded data")
	}

	info.Lamports = a.Lamports
	info.Executable = a.Executable
	return info, nil
}

func (c *client) GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (AccountInfo, error) {
	var resp struct {
		Value *rpcAccount `json:"value"`
	}

	config := struct {
		Commitment string `json:"commitment"`
		Encoding   string `json:"encoding"`
	}{
		Commitment: commitment.Commitment,
		Encoding:   "base64",
	}

	if err := c.call(ctx, &resp, "getAccountInfo", base58.Encode(account), config); err != nil {
		return AccountInfo{}, errors.Wrap(err, "getAccountInfo() failed to send request")
	}

	if resp.Value == nil {
		return AccountInfo{}, ErrNoAccountInfo
	}

	return resp.Value.decode()
}

func (c *client) GetProgramAccounts(ctx context.Context, program ed25519.PublicKey, commitment Commitment, filters ...ProgramAccountFilter) ([]KeyedAccount, error) {
	config := struct {
		Commitment string                 `json:"commitment"`
		Encoding   string                 `json:"encoding"`
		Filters    []ProgramAccountFilter `json:"filters,omitempty"`
	}{
		Commitment: commitment.Commitment,
		Encoding:   "base64",
		Filters:    filters,
	}

	var resp []struct {
		PubKey  string     `json:"pubkey"`
		Account rpcAccount `json:"account"`
	}
	if err := c.call(ctx, &resp, "getProgramAccounts", base58.Encode(program), config); err != nil {
		return nil, errors.Wrap(err, "getProgramAccounts() failed to send request")
	}

	accounts := make([]KeyedAccount, 0, len(resp))
	for _, r := range resp {
		key, err := ParsePublicKey(r.PubKey)
		if err != nil {
			return nil, errors.Wrap(err, "invalid account key in response")
		}

		info, err := r.Account.decode()
		if err != nil {
			return nil, errors.Wrapf(err, "invalid account %s in response", r.PubKey)
		}

		accounts = append(accounts, KeyedAccount{PublicKey: key, Account: info})
	}

	return accounts, nil
}

func (c *client) GetSignatureStatuses(ctx context.Context, sigs []Signature) ([]*SignatureStatus, error) {
	b58Sigs := make([]string, len(sigs))
	for i := range sigs {
		b58Sigs[i] = sigs[i].String()
	}

	req := struct {
		SearchTransactionHistory bool `json:"searchTransactionHistory"`
	}{
		SearchTransactionHistory: true,
	}

	type signatureStatus struct {
		Slot               uint64          `json:"slot"`
		Confirmations      *int            `json:"confirmations"`
		ConfirmationStatus string          `json:"confirmationStatus"`
		Err                json.RawMessage `json:"err"`
	}

	var resp struct {
		Value []*signatureStatus `json:"value"`
	}
	if err := c.call(ctx, &resp, "getSignatureStatuses", b58Sigs, req); err != nil {
		return nil, errors.Wrap(err, "getSignatureStatuses() failed to send request")
	}

	statuses := make([]*SignatureStatus, len(sigs))
	for i, v := range resp.Value {
		if v == nil || i >= len(statuses) {
			continue
		}

		statuses[i] = &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: v.ConfirmationStatus,
		}

		if len(v.Err) > 0 && string(v.Err) != "null" {
			var txError interface{}
			if err := json.Unmarshal(v.Err, &txError); err != nil {
				return nil, errors.Wrap(err, "failed to parse transaction result")
			}

			txErr, err := ParseTransactionError(txError)
			if err != nil {
				return nil, errors.Wrap(err, "failed to parse transaction result")
			}
			statuses[i].ErrorResult = txErr
		}
	}

	return statuses, nil
}

func (c *client) RequestAirdrop(ctx context.Context, account ed25519.PublicKey, lamports uint64, commitment Commitment) (Signature, error) {
	var sigStr string
	if err := c.call(ctx, &sigStr, "requestAirdrop", base58.Encode(account), lamports, commitment); err != nil {
		return Signature{}, errors.Wrapf(err, "requestAirdrop() failed to send request")
	}

	sig, err := SignatureFromBase58(sigStr)
	if err != nil {
		return Signature{}, errors.Wrap(err, "invalid signature in response")
	}
	if sig == (Signature{}) {
		return Signature{}, errors.New("empty signature returned")
	}

	return sig, nil
}

// SubmitTransaction sends a signed transaction exactly once. It is never
// retried: a resend after an ambiguous failure could land twice if the
// freshness token is still valid.
func (c *client) SubmitTransaction(ctx context.Context, txn Transaction, commitment Commitment) (Signature, error) {
	if !txn.IsFullySigned() {
		return Signature{}, ErrTransactionNotSigned
	}
	sig := txn.Signature()

	if err := ctx.Err(); err != nil {
		return sig, err
	}

	ep := c.active()
	if err := c.limiter.Wait(ctx, ep.url); err != nil {
		return sig, err
	}

	config := struct {
		Encoding            string `json:"encoding"`
		SkipPreflight       bool   `json:"skipPreflight"`
		PreflightCommitment string `json:"preflightCommitment"`
	}{
		Encoding:            "base64",
		SkipPreflight:       false,
		PreflightCommitment: commitment.Commitment,
	}

	var sigStr string
	err := ep.rpc.CallFor(&sigStr, "sendTransaction", txn.ToBase64(), config)
	if err != nil {
		if rpcErr, ok := err.(*jsonrpc.RPCError); ok {
			txErr, parseErr := ParseRPCError(rpcErr)
			if parseErr != nil {
				c.log.WithError(parseErr).Warn("failed to parse preflight error")
			}
			if txErr != nil {
				return sig, txErr
			}
		}

		return sig, errors.Wrap(c.handleRpcError("sendTransaction", ep, err), "sendTransaction() failed")
	}

	if sigStr != "" && sigStr != sig.String() {
		return sig, errors.Errorf("node returned unexpected signature %s (expected %s)", sigStr, sig)
	}

	return sig, nil
}

// AwaitSignatureStatus polls until sig reaches commitment or fails. It
// returns ErrConfirmationTimeout if ctx's deadline passes first, in which
// case the outcome of the transaction is unknown.
func (c *client) AwaitSignatureStatus(ctx context.Context, sig Signature, commitment Commitment, pollInterval time.Duration) (*SignatureStatus, error) {
	if pollInterval <= 0 {
		pollInterval = PollRate
	}

	log := c.log.WithFields(logrus.Fields{
		"method":     "AwaitSignatureStatus",
		"signature":  sig.String(),
		"commitment": commitment.Commitment,
	})

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		statuses, err := c.GetSignatureStatuses(ctx, []Signature{sig})
		switch {
		case err != nil:
			if ctx.Err() == nil {
				log.WithError(err).Debug("failed to poll signature status")
			}
		case len(statuses) > 0 && statuses[0] != nil:
			status := statuses[0]
			if status.ErrorResult != nil {
				return status, status.ErrorResult
			}
			if status.Reached(commitment) {
				return status, nil
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrConfirmationTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
