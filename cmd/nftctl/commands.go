package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"randomnft/cmd/internal/passphrase"
	"randomnft/config"
	"randomnft/crypto"
	"randomnft/integrations/exports"
	"randomnft/integrations/indexer"
	"randomnft/metadata"
	"randomnft/observability/logging"
	"randomnft/oracle"
	"randomnft/rpc/middleware"
)

func runUpload(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(uploadCommand, flag.ContinueOnError)
	images := fs.String("images", "./images/randomNft", "Directory holding one image per category")
	manifestPath := fs.String("manifest", "", "Optional YAML manifest overriding names, descriptions and order")
	pinner := fs.String("pinner", "pinata", "Pinning backend: pinata or memory")
	keyEnv := fs.String("api-key-env", "PINATA_API_KEY", "Environment variable holding the Pinata API key")
	secretEnv := fs.String("api-secret-env", "PINATA_API_SECRET", "Environment variable holding the Pinata API secret")
	configPath := fs.String("config", defaultConfig, "Config file updated when -write is set")
	write := fs.Bool("write", false, "Store the token URIs in the config's Mint section")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var p metadata.Pinner
	switch *pinner {
	case "pinata":
		client, err := metadata.NewPinataClient(os.Getenv(*keyEnv), os.Getenv(*secretEnv))
		if err != nil {
			return fmt.Errorf("%w (set %s and %s)", err, *keyEnv, *secretEnv)
		}
		p = client
	case "memory":
		p = metadata.NewMemoryPinner()
	default:
		return fmt.Errorf("unknown pinner %q", *pinner)
	}
	manifest, err := metadata.LoadManifest(*manifestPath)
	if err != nil {
		return err
	}
	uploader := &metadata.Uploader{Pinner: p, Logger: logging.SetupWithWriter("nftctl", "", io.Discard)}
	uploaded, err := uploader.Upload(context.Background(), *images, manifest)
	if err != nil {
		return err
	}
	for i, u := range uploaded {
		fmt.Fprintf(out, "%d\t%s\t%s\n", i, u.File, u.TokenURI)
	}
	if !*write {
		return nil
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg.Mint.TokenURIs = metadata.TokenURIs(uploaded)
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Save(*configPath, cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d token URIs to %s\n", len(uploaded), *configPath)
	return nil
}

func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(tokenCommand, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "Path to the ledger config file")
	account := fs.String("account", "", "Account the token authenticates as")
	ttl := fs.Duration("ttl", 0, "Token lifetime (defaults to Auth.TokenTTLSeconds)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	addr, err := crypto.ParseAddress(*account)
	if err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	secret, err := cfg.JWTSecret()
	if err != nil {
		return err
	}
	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = time.Duration(cfg.Auth.TokenTTLSeconds) * time.Second
	}
	token, err := middleware.IssueToken(middleware.AuthConfig{
		HMACSecret: secret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
	}, addr, lifetime)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func runKeygen(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(keygenCommand, flag.ContinueOnError)
	path := fs.String("out", "coordinator.keystore", "Output path for the keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pass, err := passphrase.NewSource(*passEnv, "coordinator keystore").Get()
	if err != nil {
		return err
	}
	key, err := crypto.CreateKeystore(*path, pass)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\t%s\n", crypto.FormatAddress(key.Address()), *path)
	return nil
}

func runSign(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(signCommand, flag.ContinueOnError)
	keystorePath := fs.String("keystore", "coordinator.keystore", "Coordinator keystore")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	requestID := fs.Uint64("request", 0, "Request id being fulfilled")
	words := fs.String("words", "", "Comma-separated random words, decimal or 0x hex")
	if err := fs.Parse(args); err != nil {
		return err
	}
	parsed, err := parseWords(*words)
	if err != nil {
		return err
	}
	pass, err := passphrase.NewSource(*passEnv, "coordinator keystore").Get()
	if err != nil {
		return err
	}
	key, err := crypto.LoadFromKeystore(*keystorePath, pass)
	if err != nil {
		return err
	}
	f := oracle.Fulfillment{RequestID: *requestID, Words: parsed}
	if err := f.Sign(key); err != nil {
		return err
	}
	return json.NewEncoder(out).Encode(f)
}

func parseWords(raw string) ([]*uint256.Int, error) {
	var out []*uint256.Int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var (
			word *uint256.Int
			err  error
		)
		if strings.HasPrefix(part, "0x") || strings.HasPrefix(part, "0X") {
			word, err = uint256.FromHex(part)
		} else {
			word, err = uint256.FromDecimal(part)
		}
		if err != nil {
			return nil, fmt.Errorf("word %q: %w", part, err)
		}
		out = append(out, word)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one random word required")
	}
	return out, nil
}

func runExport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(exportCommand, flag.ContinueOnError)
	driver := fs.String("driver", indexer.DriverSQLite, "Indexer database driver: sqlite or postgres")
	dsn := fs.String("dsn", "", "Indexer database DSN")
	format := fs.String("format", "parquet", "Output format: parquet, csv or jsonl")
	output := fs.String("out", "mints.parquet", "Output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*dsn) == "" {
		return fmt.Errorf("-dsn required")
	}
	db, err := indexer.Open(*driver, *dsn)
	if err != nil {
		return err
	}
	idx, err := indexer.New(indexer.Config{DB: db})
	if err != nil {
		return err
	}
	assets, err := idx.Assets(context.Background(), indexer.AssetFilter{})
	if err != nil {
		return err
	}
	var checksum string
	switch *format {
	case "parquet":
		if err := exports.MintsParquet(*output, assets); err != nil {
			return err
		}
	case "csv", "jsonl":
		render := exports.MintsCSV
		if *format == "jsonl" {
			render = exports.MintsJSONL
		}
		data, sum, err := render(assets)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			return err
		}
		checksum = sum
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
	fmt.Fprintf(out, "exported %d mints to %s", len(assets), *output)
	if checksum != "" {
		fmt.Fprintf(out, " (sha256 %s)", checksum)
	}
	fmt.Fprintln(out)
	return nil
}
