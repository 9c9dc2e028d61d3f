package config

// Mint configures the collection served by the ledger.
type Mint struct {
	// Fee is the minimum payment in wei, as a decimal string.
	Fee                string   `toml:"Fee"`
	Owner              string   `toml:"Owner"`
	CategoryBoundaries []uint64 `toml:"CategoryBoundaries"`
	TokenURIs          []string `toml:"TokenURIs"`
	// FaucetAmount enables POST /v1/faucet on local networks when set.
	FaucetAmount string `toml:"FaucetAmount,omitempty"`
}

// Oracle selects and configures the randomness coordinator.
type Oracle struct {
	Mode                string  `toml:"Mode"`
	Coordinator         string  `toml:"Coordinator,omitempty"`
	KeystorePath        string  `toml:"KeystorePath"`
	PassphraseEnv       string  `toml:"PassphraseEnv,omitempty"`
	GasLane             string  `toml:"GasLane"`
	CallbackGasLimit    uint32  `toml:"CallbackGasLimit"`
	MinConfirmations    uint16  `toml:"MinConfirmations"`
	NumWords            uint32  `toml:"NumWords"`
	SubscriptionID      uint64  `toml:"SubscriptionID"`
	SubscriptionFund    string  `toml:"SubscriptionFund"`
	FulfillDelaySeconds int     `toml:"FulfillDelaySeconds"`
	RatePerSecond       float64 `toml:"RatePerSecond"`
	WebhookURL          string  `toml:"WebhookURL,omitempty"`
	WebhookToken        string  `toml:"WebhookToken,omitempty"`
	WebhookTimeout      int     `toml:"WebhookTimeout,omitempty"`
}

// Auth configures the bearer tokens that identify callers.
type Auth struct {
	HMACSecret    string `toml:"HMACSecret,omitempty"`
	HMACSecretEnv string `toml:"HMACSecretEnv,omitempty"`
	Issuer        string `toml:"Issuer"`
	Audience      string `toml:"Audience"`
	// TokenTTLSeconds bounds tokens issued by nftctl.
	TokenTTLSeconds int `toml:"TokenTTLSeconds"`
}

// RateLimit throttles API callers per client address.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

// Logging controls log output.
type Logging struct {
	Env        string `toml:"Env"`
	File       string `toml:"File,omitempty"`
	MaxSizeMB  int    `toml:"MaxSizeMB,omitempty"`
	MaxBackups int    `toml:"MaxBackups,omitempty"`
	MaxAgeDays int    `toml:"MaxAgeDays,omitempty"`
}

// Telemetry configures OTLP exporters.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint,omitempty"`
	Headers     string  `toml:"Headers,omitempty"`
	Insecure    bool    `toml:"Insecure"`
	Metrics     bool    `toml:"Metrics"`
	Traces      bool    `toml:"Traces"`
	SampleRatio float64 `toml:"SampleRatio,omitempty"`
}

// Indexer configures the SQL projection of ledger events. An empty Driver
// disables it.
type Indexer struct {
	Driver string `toml:"Driver,omitempty"`
	DSN    string `toml:"DSN,omitempty"`
}

// Notify configures signed mint notifications. An empty URL disables them.
type Notify struct {
	URL         string `toml:"URL,omitempty"`
	Secret      string `toml:"Secret,omitempty"`
	SecretEnv   string `toml:"SecretEnv,omitempty"`
	MaxAttempts int    `toml:"MaxAttempts,omitempty"`
}

// Network carries the per-network defaults from the deploy scripts.
type Network struct {
	Name             string
	ChainID          uint64
	GasLane          string
	CallbackGasLimit uint32
	MintFee          string
	SubscriptionFund string
	// Coordinator and SubscriptionID apply to webhook mode only.
	Coordinator    string
	SubscriptionID uint64
	Faucet         bool
	// Accounts selects the internal balance model: requesters are debited
	// from faucet-funded accounts. Without it the payment travels with the
	// request itself.
	Accounts bool
}

// Networks lists the built-in network presets.
var Networks = map[string]Network{
	"local": {
		Name:             "local",
		ChainID:          31337,
		GasLane:          "0xd89b2bf150e3b9e13446986e571fb9cab24b13cea0a43ea20a6049a85cc807cc",
		CallbackGasLimit: 500000,
		MintFee:          "10000000000000000",
		SubscriptionFund: "1000000000000000000000",
		Faucet:           true,
		Accounts:         true,
	},
	"rinkeby": {
		Name:             "rinkeby",
		ChainID:          4,
		GasLane:          "0xd89b2bf150e3b9e13446986e571fb9cab24b13cea0a43ea20a6049a85cc807cc",
		CallbackGasLimit: 500000,
		MintFee:          "10000000000000000",
		Coordinator:      "0x6168499c0cFfCaCD319c818142124B7A15E857ab",
		SubscriptionID:   5959,
	},
}
