package solana

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Cluster is a well known Solana network.
type Cluster string

const (
	Mainnet  Cluster = "mainnet"
	Devnet   Cluster = "devnet"
	Testnet  Cluster = "testnet"
	Localnet Cluster = "localnet"
)

var clusterEndpoints = map[Cluster]string{
	Mainnet:  "https://api.mainnet-beta.solana.com",
	Devnet:   "https://api.devnet.solana.com",
	Testnet:  "https://api.testnet.solana.com",
	Localnet: "http://localhost:8899",
}

var clusterAliases = map[string]Cluster{
	"mainnet":      Mainnet,
	"mainnet-beta": Mainnet,
	"devnet":       Devnet,
	"testnet":      Testnet,
	"localnet":     Localnet,
	"localhost":    Localnet,
}

// ParseCluster maps a moniker to its Cluster.
func ParseCluster(name string) (Cluster, error) {
	c, ok := clusterAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", errors.Errorf("unknown cluster %q", name)
	}
	return c, nil
}

// Endpoint returns the public RPC endpoint for the cluster.
func (c Cluster) Endpoint() string {
	return clusterEndpoints[c]
}

// SupportsAirdrop reports whether the cluster runs a faucet.
func (c Cluster) SupportsAirdrop() bool {
	return c != Mainnet && c != ""
}

// ClusterForEndpoint returns the cluster a known public endpoint belongs to.
// Unknown endpoints are reported as not ok.
func ClusterForEndpoint(endpoint string) (Cluster, bool) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	for c, e := range clusterEndpoints {
		if e == endpoint {
			return c, true
		}
	}

	u, err := url.Parse(endpoint)
	if err == nil && strings.Contains(u.Host, "mainnet") {
		return Mainnet, true
	}
	return "", false
}

// ResolveEndpoint accepts either a cluster moniker or an http(s) URL and
// returns the URL to dial.
func ResolveEndpoint(nameOrURL string) (string, error) {
	nameOrURL = strings.TrimSpace(nameOrURL)
	if nameOrURL == "" {
		return "", errors.New("empty endpoint")
	}

	if c, err := ParseCluster(nameOrURL); err == nil {
		return c.Endpoint(), nil
	}

	u, err := url.Parse(nameOrURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.Errorf("invalid endpoint %q: expected a cluster name or http(s) url", nameOrURL)
	}
	return nameOrURL, nil
}
